package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/cache"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const noInputMessage = "No input data provided"

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict <json | file.json>",
	Short: "Predict mental health status for one survey record",
	Long: `Predict the mental health status of one survey response.

The argument is either a JSON object or, when it ends in .json, the path of a
file holding one. The result is printed as a single line of JSON unless
--output selects yaml or text.

Input problems are reported as a failed result on stdout with exit code 0, so
callers only ever need to parse the output. A missing argument exits with 1.`,
	Example: `
  mindcare predict '{"Age": 29, "Stress_Level": 5, ...}'
  mindcare predict survey.json
  mindcare predict survey.json --output text
  mindcare predict survey.json --models-dir ./models --redis-addr localhost:6379`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		code := runPredict(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, predictOptionsFromConfig())
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

// predictOptions carries the resolved configuration of one predict call.
type predictOptions struct {
	ModelsDir         string
	RulesPath         string
	FallbackHeuristic bool
	RedisAddr         string
	CacheTTL          time.Duration
	Format            string
	Quiet             bool
}

func predictOptionsFromConfig() predictOptions {
	return predictOptions{
		ModelsDir:         viper.GetString("models-dir"),
		RulesPath:         viper.GetString("rules"),
		FallbackHeuristic: viper.GetBool("fallback-heuristic"),
		RedisAddr:         viper.GetString("redis-addr"),
		CacheTTL:          viper.GetDuration("cache-ttl"),
		Format:            formatFor("json"),
		Quiet:             viper.GetBool("quiet"),
	}
}

// runPredict scores the record named by args and writes the result. It
// returns the process exit code.
func runPredict(ctx context.Context, stdout, stderr io.Writer, args []string, opts predictOptions) int {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 0 {
		printResult(stdout, opts.Format, predict.Failure(errors.New(noInputMessage)))
		return 1
	}

	rec, err := record.Parse(args[0])
	if err != nil {
		printResult(stdout, opts.Format, predict.Failure(err))
		return 0
	}

	tables, err := rules.Load(opts.RulesPath)
	if err != nil {
		printResult(stdout, opts.Format, predict.Failure(&record.InputError{Kind: record.ReadFailed, Err: err}))
		return 0
	}

	var serviceOpts []predict.Option
	if opts.RedisAddr != "" {
		c := cache.New(opts.RedisAddr, opts.CacheTTL)
		defer c.Close()
		serviceOpts = append(serviceOpts, predict.WithCache(c))
	}

	var spin style.Spinner
	if opts.Format == "text" && !opts.Quiet {
		spin = style.NewSpinner(stderr)
		spin.SetSuffix(" Loading model from " + opts.ModelsDir)
		spin.Start()
	}

	loader := artifact.DirLoader{Dir: opts.ModelsDir, FallbackHeuristic: opts.FallbackHeuristic}
	start := time.Now()
	res := predict.Run(ctx, loader, tables, rec, serviceOpts...)

	if spin != nil {
		spin.Stop()
	}

	log.Debug().
		Bool("success", res.Success).
		Bool("cached", res.Cached).
		Dur("elapsed", time.Since(start)).
		Msg("Prediction finished")

	printResult(stdout, opts.Format, res)
	return 0
}

// printResult writes res in the requested format. JSON is a single line so
// the output can be consumed by line-oriented callers.
func printResult(w io.Writer, format string, res predict.Result) {
	switch format {
	case "yaml":
		style.PrintYAML(w, res)
	case "text":
		renderResult(w, res)
	default:
		style.PrintCompactJSON(w, res)
	}
}
