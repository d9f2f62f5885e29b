package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/model"
	"github.com/mindcareai/mindcare/internal/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// modelCmd represents the model command
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the loaded model",
	Long: `Load the model artifacts and print the training summary, the class order,
the feature columns and the categorical vocabularies.

Loading goes through the same validation as predict, so this command also
checks that a models directory is usable.`,
	Example: `
  mindcare model                       # Inspect ./models
  mindcare model --models-dir ./out    # Inspect another directory
  mindcare model --output json         # Machine readable summary`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loader := artifact.DirLoader{
			Dir:               viper.GetString("models-dir"),
			FallbackHeuristic: viper.GetBool("fallback-heuristic"),
		}
		if err := showModel(cmd.Context(), cmd.OutOrStdout(), loader, formatFor("text")); err != nil {
			style.Error(cmd.ErrOrStderr(), err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
}

// ModelSummary describes a loaded bundle.
type ModelSummary struct {
	Info         *model.Info         `json:"info" yaml:"info"`
	Fingerprint  string              `json:"fingerprint" yaml:"fingerprint"`
	Heuristic    bool                `json:"heuristic" yaml:"heuristic"`
	Vocabularies map[string][]string `json:"vocabularies" yaml:"vocabularies"`
}

func summarize(bundle *artifact.Bundle) ModelSummary {
	vocabularies := map[string][]string{}
	for _, field := range bundle.Encoder.Fields() {
		if v, ok := bundle.Encoder.Vocabulary(field); ok {
			vocabularies[field] = v.Labels()
		}
	}
	return ModelSummary{
		Info:         bundle.Info,
		Fingerprint:  bundle.Fingerprint,
		Heuristic:    bundle.Heuristic,
		Vocabularies: vocabularies,
	}
}

func showModel(ctx context.Context, w io.Writer, loader artifact.Loader, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bundle, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	summary := summarize(bundle)
	if printValue(w, format, summary) {
		return nil
	}

	info := summary.Info
	fmt.Fprintln(w, style.Section("Model"))
	printTable(w, []string{"PROPERTY", "VALUE"}, [][]string{
		{"Type", info.ModelType},
		{"Accuracy", fmt.Sprintf("%.2f%%", info.Accuracy*100)},
		{"Features", fmt.Sprintf("%d", len(info.Features))},
		{"Classes", strings.Join(info.Classes, ", ")},
		{"Training samples", fmt.Sprintf("%d", info.TrainingSamples)},
		{"Testing samples", fmt.Sprintf("%d", info.TestingSamples)},
		{"Format", valueOr(info.FormatVersion, "unversioned")},
		{"Fingerprint", shortFingerprint(summary.Fingerprint)},
	})

	if len(summary.Vocabularies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, style.Section("Vocabularies"))
		rows := make([][]string, 0, len(summary.Vocabularies))
		for _, field := range bundle.Encoder.Fields() {
			rows = append(rows, []string{field, strings.Join(summary.Vocabularies[field], ", ")})
		}
		printTable(w, []string{"FIELD", "LABELS"}, rows)
	}

	if summary.Heuristic {
		fmt.Fprintln(w)
		style.Warning(w, "Heuristic classifier in use, the trained model could not be loaded")
	}
	return nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
