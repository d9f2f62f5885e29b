package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/style"
	"github.com/mindcareai/mindcare/pkg/schema"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [input|result]",
	Short: "Output JSON schemas of the survey record and prediction result",
	Long: `Output the JSON schema of a survey record and of a prediction result.

When the models directory can be loaded, categorical fields of the input
schema list the labels the model knows. The result schema caps the
recommendation list at the active rules limit.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"input", "result"},
	Run: func(cmd *cobra.Command, args []string) {
		which := ""
		if len(args) > 0 {
			which = args[0]
		}
		loader := artifact.DirLoader{Dir: viper.GetString("models-dir")}
		if err := showSchema(cmd.Context(), cmd.OutOrStdout(), loader, viper.GetString("rules"), which); err != nil {
			style.Error(cmd.ErrOrStderr(), err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func showSchema(ctx context.Context, w io.Writer, loader artifact.Loader, rulesPath, which string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var vocabularies map[string][]string
	if bundle, err := loader.Load(ctx); err != nil {
		log.Debug().Err(err).Msg("Input schema generated without vocabularies")
	} else {
		vocabularies = summarize(bundle).Vocabularies
	}

	tables, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}

	out, err := schema.GetSchema(
		schema.WithVocabularies(vocabularies),
		schema.WithMaxRecommendations(tables.MaxRecommendations),
	)
	if err != nil {
		return err
	}

	switch which {
	case "":
		style.PrintJSON(w, out)
	case "input":
		style.PrintJSON(w, out.Input)
	case "result":
		style.PrintJSON(w, out.Result)
	default:
		return fmt.Errorf("unknown schema %q, expected input or result", which)
	}
	return nil
}
