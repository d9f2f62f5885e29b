package cli

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/mindcareai/mindcare/internal/style"
)

var (
	// Global flags
	cfgFile      string
	logLevel     string
	outputFormat string
	quiet        bool
	verbose      bool

	// Model and rule selection, shared by every command that predicts
	modelsDir         string
	rulesPath         string
	fallbackHeuristic bool
	redisAddr         string
	cacheTTL          time.Duration
)

// envKeyReplacer maps flag names onto environment variable names.
var envKeyReplacer = strings.NewReplacer("-", "_")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mindcare",
	Short: "MindCare - mental health status prediction",
	Long: `MindCare scores a mental health survey response against a trained decision tree.

Each prediction returns a status class (Excellent, Good, Fair, Poor or Critical),
the model's confidence, a risk level, the risk factors found in the answers and
a list of recommendations.

The mindcare CLI predicts single records, serves predictions over HTTP and
inspects the model and rule tables in use.`,
	Version: getVersion(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return fang.Execute(context.Background(), rootCmd, fang.WithColorSchemeFunc(func(lightDark lipgloss.LightDarkFunc) fang.ColorScheme {
		return fang.ColorScheme{
			Base:           style.PrimaryTextColor,
			Title:          style.AccentColor,
			Description:    style.PrimaryTextColor,
			Codeblock:      style.CodeColor,
			Program:        style.AccentColor,
			DimmedArgument: style.MutedColor,
			Comment:        style.MutedColor,
			Flag:           style.InfoColor,
			FlagDefault:    style.MutedColor,
			Command:        style.SuccessColor,
			QuotedString:   style.WarningColor,
			Argument:       style.PrimaryTextColor,
			Help:           style.InfoColor,
			Dash:           style.MutedColor,
			ErrorHeader:    [2]color.Color{style.ErrorColor, style.ErrorBgColor},
			ErrorDetails:   style.ErrorColor,
		}
	}))
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mindcare/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "disabled", "log level (debug, info, warn, error) (default: disabled)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format (text, json, yaml); predict defaults to json, other commands to text")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Model flags
	rootCmd.PersistentFlags().StringVar(&modelsDir, "models-dir", "models", "directory holding the model artifacts")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "rule tables file (default is the built-in tables)")
	rootCmd.PersistentFlags().BoolVar(&fallbackHeuristic, "fallback-heuristic", false, "use the heuristic classifier when the model artifacts cannot be loaded")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the result cache (disabled when empty)")
	rootCmd.PersistentFlags().DurationVar(&cacheTTL, "cache-ttl", 10*time.Minute, "how long cached results are kept")

	// Bind flags to viper
	for _, name := range []string{
		"log-level", "output", "quiet", "verbose",
		"models-dir", "rules", "fallback-heuristic", "redis-addr", "cache-ttl",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mindcare" (without extension).
		viper.AddConfigPath(home + "/.mindcare")
		viper.AddConfigPath(".")
		viper.AddConfigPath(".mindcare")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables, e.g. MINDCARE_MODELS_DIR
	viper.SetEnvPrefix("MINDCARE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if !viper.GetBool("quiet") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initLogging configures the global logger
func initLogging() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Set log level
	level := viper.GetString("log-level")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
	if viper.GetBool("verbose") && zerolog.GlobalLevel() > zerolog.InfoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Logs always go to stderr so stdout stays machine readable.
	if !viper.GetBool("quiet") && viper.GetString("output") != "json" && viper.GetString("output") != "yaml" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// getVersion returns the version information
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, go: %s)", Version, Commit, Date, GoVersion)
}

// formatFor returns the output format for a command, falling back to def
// when none was configured.
func formatFor(def string) string {
	if f := viper.GetString("output"); f != "" {
		return f
	}
	return def
}
