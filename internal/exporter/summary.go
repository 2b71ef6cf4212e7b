package exporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// WriteSummary renders the human-readable run summary.
func WriteSummary(w io.Writer, report *domain.RunReport) error {
	fmt.Fprintf(w, "Run %s (%s)\n", report.ID, report.Status)
	fmt.Fprintf(w, "Label: %s (%s), %d rows, %d folds\n", report.Label, report.Task, report.Rows, report.Folds)
	fmt.Fprintf(w, "Candidates: %s\n", strings.Join(report.Candidates, ", "))
	fmt.Fprintf(w, "Verification: %d gaps, %d findings; %d exclusions\n\n",
		report.Verification.Gaps, report.Verification.Findings, len(report.Exclusions))

	if report.Error != "" {
		fmt.Fprintf(w, "Error: %s\n\n", report.Error)
	}

	renderModels(w, report.Models)

	for _, m := range report.Models {
		if len(m.Selection.Steps) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nSelection steps (%s)\n", m.Family)
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Step", "Added", "CV Score", "Skipped"})
		for _, step := range m.Selection.Steps {
			table.Append([]string{
				formatInt(step.Iteration),
				step.Feature,
				formatScore(step.Score),
				formatInt(skipped(step.Candidates)),
			})
		}
		table.Render()
	}
	return nil
}

// PrintRunReport writes a colored summary of the run to a terminal.
func PrintRunReport(w io.Writer, report *domain.RunReport) {
	statusColor := color.New(color.FgGreen, color.Bold)
	if report.Status != domain.RunStatusCompleted {
		statusColor = color.New(color.FgRed, color.Bold)
	}
	statusColor.Fprintf(w, "\nRun %s %s\n", report.ID, report.Status)
	if report.Error != "" {
		color.New(color.FgRed).Fprintf(w, "Error: %s\n", report.Error)
	}

	verification := color.New(color.FgGreen)
	if report.Verification.Gaps > 0 || report.Verification.Findings > 0 {
		verification = color.New(color.FgYellow)
	}
	verification.Fprintf(w, "Verification: %d gaps, %d findings\n",
		report.Verification.Gaps, report.Verification.Findings)

	color.New(color.FgCyan).Fprintf(w, "\nModels (%s, label %s)\n", report.Task, report.Label)
	renderModels(w, report.Models)

	for _, a := range report.Artifacts {
		fmt.Fprintf(w, "  %s\n", a)
	}
}

// PrintVerification writes a colored verification overview.
func PrintVerification(w io.Writer, report *domain.VerificationReport) {
	if !report.HasGaps() && len(report.Findings) == 0 {
		color.New(color.FgGreen).Fprintln(w, "All indicators fully covered, no findings")
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Indicator", "Records", "Expected", "Missing States"})
	for _, c := range report.Coverage {
		table.Append([]string{
			c.Indicator,
			formatInt(c.Records),
			formatInt(c.Expected),
			formatInt(len(c.MissingStates)),
		})
	}
	table.Render()

	if report.HasGaps() {
		color.New(color.FgYellow).Fprintf(w, "\n%d coverage gaps\n", len(report.Gaps))
	}
	if len(report.Findings) > 0 {
		counts := make(map[domain.FindingKind]int)
		for _, f := range report.Findings {
			counts[f.Kind]++
		}
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)

		color.New(color.FgYellow).Fprintf(w, "\n%d value findings\n", len(report.Findings))
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-20s %d\n", k, counts[domain.FindingKind(k)])
		}
	}
}

func renderModels(w io.Writer, models []domain.ModelReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "Features", "Params", "CV Score", "Metrics"})
	table.SetAutoWrapText(false)
	for _, m := range models {
		table.Append([]string{
			string(m.Family),
			strings.Join(m.Selection.Subset, ", "),
			formatParams(m.Evaluation.Best.Params),
			formatScore(m.Evaluation.Best.Score),
			formatMetrics(m.Metrics),
		})
	}
	table.Render()
}

func formatParams(p domain.Hyperparameters) string {
	switch {
	case p.K > 0:
		return fmt.Sprintf("k=%d", p.K)
	case p.Degree > 0:
		return fmt.Sprintf("degree=%d", p.Degree)
	default:
		return "-"
	}
}

func formatMetrics(metrics map[string]domain.Score) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + formatScore(metrics[name])
	}
	return strings.Join(parts, " ")
}

func skipped(candidates []domain.CandidateScore) int {
	n := 0
	for _, c := range candidates {
		if c.Skipped {
			n++
		}
	}
	return n
}
