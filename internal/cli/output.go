package cli

import (
	"fmt"
	"io"

	"github.com/mindcareai/mindcare/internal/history"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/style"
)

// printValue outputs data in the given structured format. Text output is
// left to the caller.
func printValue(w io.Writer, format string, data interface{}) bool {
	switch format {
	case "json":
		style.PrintJSON(w, data)
	case "yaml":
		style.PrintYAML(w, data)
	default:
		return false
	}
	return true
}

// printTable outputs data in a human-readable table format
func printTable(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprint(w, style.Table(headers, rows))
}

// renderResult prints a prediction for a terminal reader.
func renderResult(w io.Writer, res predict.Result) {
	if !res.Success {
		style.Error(w, res.Error)
		return
	}

	fmt.Fprintln(w, style.Section("Assessment"))
	fmt.Fprintf(w, "  %-12s %s\n", "Status", style.TitleStyle.Render(res.Prediction.String()))
	fmt.Fprintf(w, "  %-12s %.1f%%\n", "Confidence", res.Confidence)
	fmt.Fprintf(w, "  %-12s %s\n", "Risk level", style.RiskStyle(string(res.RiskLevel)).Render(string(res.RiskLevel)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, style.Section("Risk factors"))
	for _, factor := range res.RiskFactors {
		fmt.Fprintln(w, style.Bullet(factor))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, style.Section("Recommendations"))
	for i, rec := range res.Recommendations {
		fmt.Fprintln(w, style.Numbered(i+1, rec))
	}

	if res.RequiresIntervention() {
		fmt.Fprintln(w, style.ErrorBoxStyle.Render(history.CrisisMessage))
	} else {
		fmt.Fprintln(w)
	}

	if res.Heuristic {
		style.Warning(w, "Heuristic classifier in use, the trained model could not be loaded")
	}
	for _, fb := range res.EncodingFallbacks {
		style.Warning(w, fmt.Sprintf("Unknown %s '%s', encoded as '%s'", fb.Field, fb.Value, fb.Substituted))
	}
	if res.Cached {
		fmt.Fprintln(w, style.MutedStyle.Render("(cached result)"))
	}
}
