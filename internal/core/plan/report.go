package plan

import "time"

// Report collects every result of a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []StepResult
	// Aborted is set when an infrastructure failure ended the run early.
	Aborted bool
	// Cancelled is set when the run was interrupted, including during a step.
	Cancelled bool
}

// Counts summarises a report.
type Counts struct {
	Applied int
	Failed  int
	Skipped int
	// NotAttempted is the number of plan steps that never ran.
	NotAttempted int
}

// Add appends a result.
func (r *Report) Add(res StepResult) {
	r.Results = append(r.Results, res)
}

// Counts tallies outcomes against the plan the report was produced from.
func (r *Report) Counts(p Plan) Counts {
	var c Counts
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeApplied:
			c.Applied++
		case OutcomeFailed:
			c.Failed++
		case OutcomeSkipped:
			c.Skipped++
		}
	}
	if n := len(p.Steps) - len(r.Results); n > 0 {
		c.NotAttempted = n
	}
	return c
}

// Failed returns the failed results in run order.
func (r *Report) Failed() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
