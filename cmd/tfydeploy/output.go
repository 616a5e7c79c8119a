package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/tfydeploy/internal/core/domain"
	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 60

// printer writes human-facing output. Styles degrade to plain text when w
// is not a terminal.
type printer struct {
	w io.Writer

	title   lipgloss.Style
	label   lipgloss.Style
	applied lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
	dim     lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true),
		label:   r.NewStyle().Width(10),
		applied: r.NewStyle().Foreground(lipgloss.Color("2")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skipped: r.NewStyle().Foreground(lipgloss.Color("3")),
		dim:     r.NewStyle().Faint(true),
	}
}

func (p *printer) rule() {
	fmt.Fprintln(p.w, strings.Repeat("=", ruleWidth))
}

// Banner prints the start of a run.
func (p *printer) Banner(values placeholder.Values) {
	fmt.Fprintln(p.w)
	p.rule()
	fmt.Fprintln(p.w, p.title.Render("TFYDEPLOY RUN STARTED"))
	fmt.Fprintln(p.w, p.label.Render("Cluster")+": "+values.Cluster)
	fmt.Fprintln(p.w, p.label.Render("Workspace")+": "+values.Workspace)
	p.rule()
}

func (p *printer) outcome(o plan.Outcome) string {
	s := strings.ToUpper(string(o))
	switch o {
	case plan.OutcomeApplied:
		return p.applied.Render(s)
	case plan.OutcomeFailed:
		return p.failed.Render(s)
	default:
		return p.skipped.Render(s)
	}
}

// Summary prints one line per attempted step and the totals.
func (p *printer) Summary(pl plan.Plan, report *plan.Report) {
	fmt.Fprintln(p.w)
	p.rule()

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		rows = append(rows, []string{
			res.Step.Name(),
			string(res.Step.Tier),
			p.outcome(res.Outcome),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	p.table([]string{"FILE", "TIER", "OUTCOME", "DURATION"}, rows)

	for _, res := range report.Failed() {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, p.failed.Render("FAILED")+" "+res.Step.Name())
		if out := strings.TrimSpace(res.Output); out != "" {
			fmt.Fprintln(p.w, p.dim.Render(indent(out, "  ")))
		} else if res.Err != nil {
			fmt.Fprintln(p.w, p.dim.Render("  "+res.Err.Error()))
		}
	}

	c := report.Counts(pl)
	fmt.Fprintln(p.w)
	switch {
	case report.Aborted:
		fmt.Fprintln(p.w, p.failed.Render("Infrastructure deployment failed. Run stopped."))
	case report.Cancelled:
		fmt.Fprintln(p.w, p.skipped.Render("Deployment interrupted."))
	case c.Failed > 0:
		fmt.Fprintln(p.w, p.skipped.Render("Deployment finished with application failures."))
	default:
		fmt.Fprintln(p.w, p.applied.Render("All files deployed successfully."))
	}
	fmt.Fprintf(p.w, "applied %d, failed %d, skipped %d, not attempted %d in %s\n",
		c.Applied, c.Failed, c.Skipped, c.NotAttempted, report.Duration().Round(time.Millisecond))
	if report.RunID != "" {
		fmt.Fprintln(p.w, p.dim.Render("run "+report.RunID))
	}
	p.rule()
}

// Rendered prints the outcome of a render command.
func (p *printer) Rendered(outDir string, report *plan.Report) {
	for _, res := range report.Results {
		switch res.Outcome {
		case plan.OutcomeApplied:
			fmt.Fprintf(p.w, "%s %s\n", p.applied.Render("wrote"), res.Step.Name())
		case plan.OutcomeSkipped:
			fmt.Fprintf(p.w, "%s %s (not found)\n", p.skipped.Render("skip "), res.Step.Name())
		default:
			fmt.Fprintf(p.w, "%s %s: %v\n", p.failed.Render("error"), res.Step.Name(), res.Err)
		}
	}
	fmt.Fprintf(p.w, "rendered files are in %s\n", outDir)
}

// Runs prints a history listing.
func (p *printer) Runs(runs []domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, "no runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.Status),
			r.Cluster,
			r.Workspace,
		})
	}
	p.table([]string{"RUN", "STARTED", "STATUS", "CLUSTER", "WORKSPACE"}, rows)
}

// Run prints a single run with its steps.
func (p *printer) Run(r *domain.Run) {
	fmt.Fprintln(p.w, p.label.Render("Run")+": "+r.ID)
	fmt.Fprintln(p.w, p.label.Render("Status")+": "+string(r.Status))
	fmt.Fprintln(p.w, p.label.Render("Cluster")+": "+r.Cluster)
	fmt.Fprintln(p.w, p.label.Render("Workspace")+": "+r.Workspace)
	fmt.Fprintln(p.w, p.label.Render("Started")+": "+r.StartedAt.Local().Format(time.RFC3339))
	if r.FinishedAt != nil {
		fmt.Fprintln(p.w, p.label.Render("Finished")+": "+r.FinishedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintln(p.w)

	rows := make([][]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Position+1),
			s.Path,
			string(s.Tier),
			p.outcome(s.Outcome),
			(time.Duration(s.DurationMS) * time.Millisecond).String(),
		})
	}
	p.table([]string{"#", "FILE", "TIER", "OUTCOME", "DURATION"}, rows)
}

// table prints left-aligned columns. Widths are measured with lipgloss so
// styled cells line up.
func (p *printer) table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				parts[i] = cell
				continue
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		fmt.Fprintln(p.w, strings.Join(parts, "  "))
	}

	line(header)
	for _, row := range rows {
		line(row)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
