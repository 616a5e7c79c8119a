package plan

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// Outcome
// =============================================================================

// Outcome is what happened to a step.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// MissingPolicy decides the outcome of a step whose file does not exist.
type MissingPolicy string

const (
	// MissingSkip records a missing file as skipped, which counts as success.
	MissingSkip MissingPolicy = "skip"
	// MissingFail records a missing file as a failure.
	MissingFail MissingPolicy = "fail"
)

// ParseMissingPolicy parses a policy name, case-insensitively.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MissingSkip, "":
		return MissingSkip, nil
	case MissingFail:
		return MissingFail, nil
	default:
		return "", fmt.Errorf("unknown missing-file policy %q (want %q or %q)", s, MissingSkip, MissingFail)
	}
}

// =============================================================================
// StepResult
// =============================================================================

// Resource is a kind/name pair declared by a rendered template.
type Resource struct {
	Type string
	Name string
}

// StepResult is the outcome of applying one step.
type StepResult struct {
	Step      Step
	Outcome   Outcome
	Output    string // command output on failure, reason on skip
	Err       error
	Duration  time.Duration
	Resources []Resource
}

// IsFatal reports whether the result must stop the run: only a failed
// infrastructure step does.
func IsFatal(r StepResult) bool {
	return r.Outcome == OutcomeFailed && r.Step.Tier == TierInfrastructure
}
