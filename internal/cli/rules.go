package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the active risk and recommendation rules",
	Long: `Print the rule tables predictions are checked against: the risk factor
thresholds and the recommendation rules, in evaluation order.

Without --rules the built-in tables are shown. With --rules the file is
loaded and validated first, so this command doubles as a rules linter.`,
	Example: `
  mindcare rules                       # Built-in tables
  mindcare rules --rules custom.yaml   # Validate and show a custom file
  mindcare rules --output yaml         # Dump tables as YAML`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showRules(cmd.OutOrStdout(), viper.GetString("rules"), formatFor("text")); err != nil {
			style.Error(cmd.ErrOrStderr(), err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func showRules(w io.Writer, path, format string) error {
	tables, err := rules.Load(path)
	if err != nil {
		return err
	}
	if printValue(w, format, tables) {
		return nil
	}

	fmt.Fprintln(w, style.Section("Risk factors"))
	riskRows := make([][]string, 0, len(tables.RiskFactors))
	for _, r := range tables.RiskFactors {
		riskRows = append(riskRows, []string{r.Predicate.String(), string(r.Kind), r.Message})
	}
	printTable(w, []string{"WHEN", "KIND", "MESSAGE"}, riskRows)
	fmt.Fprintln(w, style.MutedStyle.Render("none firing: "+tables.NoRiskMessage))
	fmt.Fprintln(w)

	fmt.Fprintln(w, style.Section("Recommendations"))
	recRows := make([][]string, 0, len(tables.Recommendations))
	for _, r := range tables.Recommendations {
		recRows = append(recRows, []string{r.Name, describeCondition(r.When), fmt.Sprintf("%d", len(r.Messages))})
	}
	printTable(w, []string{"NAME", "WHEN", "MESSAGES"}, recRows)
	fmt.Fprintln(w, style.MutedStyle.Render("none firing: "+tables.FallbackRecommendation))
	fmt.Fprintln(w, style.MutedStyle.Render(fmt.Sprintf("at most %d recommendations", tables.MaxRecommendations)))
	return nil
}

func describeCondition(c rules.Condition) string {
	switch {
	case len(c.Classes) > 0:
		names := make([]string, len(c.Classes))
		for i, class := range c.Classes {
			names[i] = class.String()
		}
		return "class in " + strings.Join(names, ", ")
	case c.Equals != nil:
		return fmt.Sprintf("%s = %s", c.Field, *c.Equals)
	default:
		return fmt.Sprintf("%s %s %g", c.Field, c.Op, c.Threshold)
	}
}
