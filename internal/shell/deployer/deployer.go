// Package deployer walks a plan step by step, applying the two-tier
// failure policy: the first failed infrastructure step ends the run, failed
// application steps are reported and the run goes on.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artpar/tfydeploy/internal/core/domain"
	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/artpar/tfydeploy/internal/shell/applier"
	"github.com/artpar/tfydeploy/internal/shell/store"
)

var (
	// ErrInfrastructureFailed is returned by Run when an infrastructure step failed.
	ErrInfrastructureFailed = errors.New("infrastructure deployment failed")

	// ErrDuplicateName is returned by Render when two steps would be written
	// to the same output file.
	ErrDuplicateName = errors.New("duplicate template file name")
)

// StepApplier applies a single step. *applier.Applier implements it.
type StepApplier interface {
	Apply(ctx context.Context, step plan.Step, r placeholder.Replacements) plan.StepResult
	Render(step plan.Step, r placeholder.Replacements) ([]byte, error)
}

// Deployer runs plans.
type Deployer struct {
	applier StepApplier
	history store.Store // optional
	logger  *slog.Logger
}

// New creates a Deployer. history may be nil.
func New(a StepApplier, history store.Store, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		applier: a,
		history: history,
		logger:  logger.With("component", "deployer"),
	}
}

// Run applies every step of p in order with the given values.
//
// The returned report is never nil. The error is ErrInfrastructureFailed
// when the run was aborted, or context.Canceled when ctx was cancelled
// before or during a step. A step interrupted by cancellation never counts
// as an infrastructure failure; a step that hit the per-apply timeout does.
func (d *Deployer) Run(ctx context.Context, p plan.Plan, values placeholder.Values) (*plan.Report, error) {
	run := domain.NewRun(values.Cluster, values.Workspace)
	report := &plan.Report{RunID: run.ID, StartedAt: run.StartedAt}
	log := d.logger.With("run_id", run.ID)

	d.recordRun(ctx, log, run)
	log.Info("run started",
		"cluster", values.Cluster,
		"workspace", values.Workspace,
		"infrastructure_steps", p.Count(plan.TierInfrastructure),
		"application_steps", p.Count(plan.TierApplication),
	)

	replacements := values.Replacements()
	var runErr error
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "remaining_steps", len(p.Steps)-i)
			report.Cancelled = true
			runErr = err
			break
		}

		res := d.applier.Apply(ctx, step, replacements)
		report.Add(res)
		d.recordStep(ctx, log, domain.NewRunStep(run.ID, i, res))
		logResult(log, res)

		if err := ctx.Err(); errors.Is(err, context.Canceled) {
			log.Warn("run cancelled", "file", step.Name(), "remaining_steps", len(p.Steps)-i-1)
			report.Cancelled = true
			runErr = err
			break
		}

		if plan.IsFatal(res) {
			report.Aborted = true
			runErr = fmt.Errorf("%w: %s", ErrInfrastructureFailed, step.Name())
			log.Error("infrastructure deployment failed, stopping", "file", step.Name())
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	status := domain.StatusFromReport(report, p)
	if err := run.Finish(status); err == nil {
		d.finishRun(log, run)
	}

	c := report.Counts(p)
	log.Info("run finished",
		"status", status,
		"applied", c.Applied,
		"failed", c.Failed,
		"skipped", c.Skipped,
		"not_attempted", c.NotAttempted,
		"duration", report.Duration().Round(time.Millisecond),
	)

	return report, runErr
}

// Render writes every rendered step of p into outDir without applying
// anything. Missing templates are skipped and reported as such. Output files
// are named after their templates, so a plan whose steps share a file name
// is rejected before anything is written.
func (d *Deployer) Render(ctx context.Context, p plan.Plan, values placeholder.Values, outDir string) (*plan.Report, error) {
	if dups := p.DuplicateNames(); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, strings.Join(dups, ", "))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	report := &plan.Report{StartedAt: time.Now().UTC()}
	replacements := values.Replacements()
	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		res := plan.StepResult{Step: step, Outcome: plan.OutcomeApplied}
		content, err := d.applier.Render(step, replacements)
		switch {
		case errors.Is(err, applier.ErrTemplateNotFound):
			res.Outcome, res.Err = plan.OutcomeSkipped, err
		case err != nil:
			res.Outcome, res.Err = plan.OutcomeFailed, err
		default:
			dest := filepath.Join(outDir, step.Name())
			if err := os.WriteFile(dest, content, 0o600); err != nil {
				res.Outcome, res.Err = plan.OutcomeFailed, fmt.Errorf("write %s: %w", dest, err)
			} else {
				d.logger.Info("rendered", "file", step.Name(), "dest", dest)
			}
		}
		res.Duration = time.Since(start)
		report.Add(res)
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func logResult(log *slog.Logger, res plan.StepResult) {
	attrs := []any{
		"file", res.Step.Name(),
		"tier", res.Step.Tier,
		"outcome", res.Outcome,
		"duration", res.Duration.Round(time.Millisecond),
	}
	switch res.Outcome {
	case plan.OutcomeApplied:
		log.Info("step applied", attrs...)
	case plan.OutcomeSkipped:
		log.Warn("step skipped", append(attrs, "reason", res.Output)...)
	case plan.OutcomeFailed:
		log.Error("step failed", append(attrs, "error", res.Err, "output", res.Output)...)
	}
}

// =============================================================================
// History
// =============================================================================

// History writes are best effort: a broken history database never changes
// the outcome of a run.

func (d *Deployer) recordRun(ctx context.Context, log *slog.Logger, run *domain.Run) {
	if d.history == nil {
		return
	}
	if err := d.history.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record run", "error", err)
	}
}

func (d *Deployer) recordStep(ctx context.Context, log *slog.Logger, step domain.RunStep) {
	if d.history == nil {
		return
	}
	// The step that was interrupted is still recorded.
	if err := d.history.RecordStep(context.WithoutCancel(ctx), step); err != nil {
		log.Warn("failed to record step", "position", step.Position, "error", err)
	}
}

func (d *Deployer) finishRun(log *slog.Logger, run *domain.Run) {
	if d.history == nil {
		return
	}
	// The run context may already be cancelled; the final status is still written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.history.FinishRun(ctx, run); err != nil {
		log.Warn("failed to record run status", "error", err)
	}
}
