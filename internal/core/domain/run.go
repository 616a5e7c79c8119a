package domain

import (
	"errors"
	"time"

	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/google/uuid"
)

// =============================================================================
// Run Errors
// =============================================================================

var (
	ErrInvalidRunTransition = errors.New("invalid run status transition")
)

// =============================================================================
// Run Status
// =============================================================================

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial" // finished with application failures
	RunStatusAborted   RunStatus = "aborted" // stopped by an infrastructure failure
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning
}

// =============================================================================
// Run
// =============================================================================

// Run is one invocation of the deployer, as recorded in history.
type Run struct {
	ID         string     `json:"id"`
	Cluster    string     `json:"cluster"`
	Workspace  string     `json:"workspace"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Steps      []RunStep  `json:"steps,omitempty"`
}

// RunStep is the recorded outcome of one step of a run.
type RunStep struct {
	RunID      string       `json:"run_id"`
	Position   int          `json:"position"`
	Path       string       `json:"path"`
	Tier       plan.Tier    `json:"tier"`
	Outcome    plan.Outcome `json:"outcome"`
	Output     string       `json:"output,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

// NewRun creates a running run with a fresh ID.
func NewRun(cluster, workspace string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Cluster:   cluster,
		Workspace: workspace,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// NewRunStep converts a step result at position into its recorded form.
func NewRunStep(runID string, position int, res plan.StepResult) RunStep {
	output := res.Output
	if output == "" && res.Err != nil {
		output = res.Err.Error()
	}
	return RunStep{
		RunID:      runID,
		Position:   position,
		Path:       res.Step.Path,
		Tier:       res.Step.Tier,
		Outcome:    res.Outcome,
		Output:     output,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// Finish moves a running run to its terminal status.
func (r *Run) Finish(to RunStatus) error {
	if r.Status != RunStatusRunning || !to.Terminal() {
		return ErrInvalidRunTransition
	}
	now := time.Now().UTC()
	r.Status = to
	r.FinishedAt = &now
	return nil
}

// StatusFromReport derives the terminal status of a finished report.
//
//	aborted report               -> aborted
//	cancelled report             -> cancelled
//	any failed application step  -> partial
//	otherwise                    -> succeeded
func StatusFromReport(rep *plan.Report, p plan.Plan) RunStatus {
	if rep.Aborted {
		return RunStatusAborted
	}
	if rep.Cancelled {
		return RunStatusCancelled
	}
	if rep.Counts(p).Failed > 0 {
		return RunStatusPartial
	}
	return RunStatusSucceeded
}
