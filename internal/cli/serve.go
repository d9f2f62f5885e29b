package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/cache"
	"github.com/mindcareai/mindcare/internal/history"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/server"
	"github.com/mindcareai/mindcare/internal/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Serve command flags
	servePort            int
	serveHost            string
	serveConcurrency     int
	serveMetrics         bool
	serveCORS            bool
	serveHistoryDSN      string
	serveShutdownTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for predictions",
	Long: `Start an HTTP server that scores survey records via REST API.

The model artifacts and rule tables are loaded once at startup and shared by
every request.

The server provides:
- REST API for predictions, model and rule inspection
- WebSocket streaming of predictions
- Assessment history and crisis alerts when --history-dsn is set
- Prometheus metrics endpoint

Examples:
  mindcare serve                                  # Serve ./models on localhost:8080
  mindcare serve --port 9000 --host 0.0.0.0       # Custom host and port
  mindcare serve --concurrency 16                 # Allow 16 concurrent predictions
  mindcare serve --redis-addr localhost:6379      # Cache results in Redis
  mindcare serve --history-dsn postgres://...     # Store assessments in Postgres`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd.Context(), cmd.OutOrStdout(), serveOptionsFromConfig()); err != nil {
			style.Error(cmd.ErrOrStderr(), err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := server.DefaultConfig()

	// Server configuration
	serveCmd.Flags().IntVarP(&servePort, "port", "p", defaults.Port, "server port")
	serveCmd.Flags().StringVar(&serveHost, "host", defaults.Host, "server host")
	serveCmd.Flags().IntVar(&serveConcurrency, "concurrency", defaults.Concurrency, "maximum concurrent predictions (0 for unlimited)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", defaults.ShutdownTimeout, "how long to wait for in-flight requests on shutdown")

	// Features
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", defaults.EnableMetrics, "enable Prometheus metrics endpoint")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", defaults.EnableCORS, "enable CORS headers")
	serveCmd.Flags().StringVar(&serveHistoryDSN, "history-dsn", "", "Postgres DSN for assessment history (disabled when empty)")

	_ = viper.BindPFlag("history-dsn", serveCmd.Flags().Lookup("history-dsn"))
}

// serveOptions carries the resolved configuration of the serve command.
type serveOptions struct {
	Server            server.Config
	ModelsDir         string
	RulesPath         string
	FallbackHeuristic bool
	RedisAddr         string
	CacheTTL          time.Duration
	HistoryDSN        string
	Quiet             bool
}

func serveOptionsFromConfig() serveOptions {
	config := *server.DefaultConfig()
	config.Host = serveHost
	config.Port = servePort
	config.Concurrency = serveConcurrency
	config.EnableMetrics = serveMetrics
	config.EnableCORS = serveCORS
	config.ShutdownTimeout = serveShutdownTimeout

	return serveOptions{
		Server:            config,
		ModelsDir:         viper.GetString("models-dir"),
		RulesPath:         viper.GetString("rules"),
		FallbackHeuristic: viper.GetBool("fallback-heuristic"),
		RedisAddr:         viper.GetString("redis-addr"),
		CacheTTL:          viper.GetDuration("cache-ttl"),
		HistoryDSN:        viper.GetString("history-dsn"),
		Quiet:             viper.GetBool("quiet"),
	}
}

func runServe(ctx context.Context, w io.Writer, opts serveOptions) error {
	srv, cleanup, err := buildServer(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	// Display startup info
	if !opts.Quiet {
		addr := fmt.Sprintf("%s:%d", opts.Server.Host, opts.Server.Port)
		style.Success(w, fmt.Sprintf("MindCare server starting at http://%s", addr))
		style.Info(w, fmt.Sprintf("API: http://%s/api/v1/predict", addr))
		if opts.Server.EnableMetrics {
			style.Info(w, fmt.Sprintf("Metrics: http://%s/metrics", addr))
		}
		if opts.HistoryDSN == "" {
			style.Warning(w, "Assessment history disabled, set --history-dsn to enable it")
		}
	}

	// Start server with graceful shutdown
	if err := srv.StartWithGracefulShutdown(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildServer loads the prediction state and connects the optional cache
// and history backends. cleanup closes whatever was opened.
func buildServer(ctx context.Context, opts serveOptions, extra ...server.Option) (srv *server.Server, cleanup func(), err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("Failed to close backend")
			}
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	loader := artifact.DirLoader{Dir: opts.ModelsDir, FallbackHeuristic: opts.FallbackHeuristic}
	bundle, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}

	tables, err := rules.Load(opts.RulesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var serviceOpts []predict.Option
	if opts.RedisAddr != "" {
		c := cache.New(opts.RedisAddr, opts.CacheTTL)
		closers = append(closers, c)
		if err := c.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		serviceOpts = append(serviceOpts, predict.WithCache(c))
	}

	serverOpts := []server.Option{}
	if opts.HistoryDSN != "" {
		store, err := history.Open(opts.HistoryDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history store: %w", err)
		}
		closers = append(closers, store)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to history store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		serverOpts = append(serverOpts, server.WithHistory(store))
	}
	serverOpts = append(serverOpts, extra...)

	config := opts.Server
	srv, err = server.New(&config, predict.NewService(bundle, tables, serviceOpts...), serverOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().
		Str("models_dir", opts.ModelsDir).
		Bool("heuristic", bundle.Heuristic).
		Bool("cache", opts.RedisAddr != "").
		Bool("history", opts.HistoryDSN != "").
		Msg("Server configured")

	return srv, closeAll, nil
}
