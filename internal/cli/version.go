package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/mindcareai/mindcare/internal/model"
	"github.com/spf13/cobra"
)

// Build-time variables (set by goreleaser or build scripts)
var (
	Version   = "dev"
	Commit    = "unknown"
	Date      = "unknown"
	BuiltBy   = "unknown"
	GoVersion = runtime.Version()
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version information for mindcare, including build details and the model format it reads.`,
	Example: `
  mindcare version               # Show basic version info
  mindcare version --output json # Show version info as JSON`,
	Run: func(cmd *cobra.Command, args []string) {
		showVersion(cmd.OutOrStdout(), formatFor("text"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// VersionInfo represents version information
type VersionInfo struct {
	Version     string `json:"version" yaml:"version"`
	Commit      string `json:"commit" yaml:"commit"`
	Date        string `json:"date" yaml:"date"`
	BuiltBy     string `json:"built_by" yaml:"built_by"`
	GoVersion   string `json:"go_version" yaml:"go_version"`
	Platform    string `json:"platform" yaml:"platform"`
	ModelFormat string `json:"model_format" yaml:"model_format"`
}

func currentVersion() VersionInfo {
	return VersionInfo{
		Version:     Version,
		Commit:      Commit,
		Date:        Date,
		BuiltBy:     BuiltBy,
		GoVersion:   GoVersion,
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		ModelFormat: model.SupportedFormat,
	}
}

func showVersion(w io.Writer, format string) {
	info := currentVersion()
	if printValue(w, format, info) {
		return
	}
	printText(w, info)
}

func printText(w io.Writer, info VersionInfo) {
	fmt.Fprintf(w, "%s\n", info.Version)
}
