// Package prompt asks the operator to confirm a run before anything is applied.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
)

// ErrDeclined is returned when the operator answers no or interrupts the prompt.
var ErrDeclined = errors.New("run declined at confirmation prompt")

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// SurveyConfirmer asks on the terminal.
type SurveyConfirmer struct{}

// Confirm implements Confirmer. Interrupting the prompt counts as no.
func (SurveyConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return out, nil
}

// Message builds the question shown before a run.
func Message(p plan.Plan, values placeholder.Values) string {
	return fmt.Sprintf("Apply %d infrastructure and %d application files to cluster %q, workspace %q?",
		p.Count(plan.TierInfrastructure), p.Count(plan.TierApplication), values.Cluster, values.Workspace)
}

// Ask confirms the run of p with c, returning ErrDeclined on a no.
func Ask(ctx context.Context, c Confirmer, p plan.Plan, values placeholder.Values) error {
	ok, err := c.Confirm(ctx, Message(p, values))
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}
