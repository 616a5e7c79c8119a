// Package applier renders one template file and hands it to the external
// deployment CLI.
package applier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/artpar/tfydeploy/internal/core/manifest"
	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/artpar/tfydeploy/internal/shell/runner"
)

var (
	// ErrTemplateNotFound is attached to results for missing template files.
	ErrTemplateNotFound = errors.New("template file not found")

	// ErrCommandFailed is attached to results whose command exited non-zero.
	ErrCommandFailed = errors.New("apply command failed")
)

// Config configures an Applier.
type Config struct {
	// Command is the deployment CLI binary.
	// Default: "tfy".
	Command string

	// Args come before the rendered file path.
	// Default: ["apply", "-f"].
	Args []string

	// TempDir holds rendered files while they are applied.
	// Default: os.TempDir().
	TempDir string

	// Timeout bounds a single apply. Zero means no limit.
	Timeout time.Duration

	// Missing decides what a missing template file counts as.
	// Default: plan.MissingSkip.
	Missing plan.MissingPolicy
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Command: "tfy",
		Args:    []string{"apply", "-f"},
		Missing: plan.MissingSkip,
	}
}

// Applier applies template files one at a time.
type Applier struct {
	runner runner.CommandRunner
	config Config
	logger *slog.Logger
}

// New creates an Applier.
func New(r runner.CommandRunner, config Config, logger *slog.Logger) *Applier {
	if config.Command == "" {
		config.Command = "tfy"
	}
	if config.Args == nil {
		config.Args = []string{"apply", "-f"}
	}
	if config.Missing == "" {
		config.Missing = plan.MissingSkip
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Applier{
		runner: r,
		config: config,
		logger: logger.With("component", "applier"),
	}
}

// Apply renders step with r and runs the apply command on the result.
//
// It never returns an error: every problem is reported through the result's
// Outcome and Err so that the caller can apply the tier policy.
func (a *Applier) Apply(ctx context.Context, step plan.Step, r placeholder.Replacements) plan.StepResult {
	start := time.Now()
	result := a.apply(ctx, step, r)
	result.Step = step
	result.Duration = time.Since(start)
	return result
}

func (a *Applier) apply(ctx context.Context, step plan.Step, r placeholder.Replacements) plan.StepResult {
	log := a.logger.With("file", step.Name(), "tier", step.Tier)

	rendered, err := a.Render(step, r)
	if errors.Is(err, ErrTemplateNotFound) {
		if a.config.Missing == plan.MissingFail {
			log.Error("template not found", "path", step.Path)
			return plan.StepResult{Outcome: plan.OutcomeFailed, Output: "file not found: " + step.Path, Err: err}
		}
		log.Warn("template not found, skipping", "path", step.Path)
		return plan.StepResult{Outcome: plan.OutcomeSkipped, Output: "file not found: " + step.Path, Err: err}
	}
	if err != nil {
		return plan.StepResult{Outcome: plan.OutcomeFailed, Err: err}
	}

	resources, err := manifest.Inspect(rendered)
	if err != nil {
		log.Error("rendered manifest is invalid", "error", err)
		return plan.StepResult{Outcome: plan.OutcomeFailed, Err: fmt.Errorf("invalid manifest %s: %w", step.Name(), err)}
	}
	for _, res := range resources {
		log.Debug("manifest resource", "type", res.Type, "name", res.Name)
	}

	tmp, err := a.writeTemp(rendered)
	if err != nil {
		return plan.StepResult{Outcome: plan.OutcomeFailed, Err: err, Resources: resources}
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("failed to remove rendered file", "path", tmp, "error", err)
		}
	}()

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, a.config.Args...), tmp)
	log.Info("applying", "command", a.config.Command+" "+strings.Join(args, " "))

	res, err := a.runner.Run(ctx, a.config.Command, args, runner.Options{})
	if err != nil {
		return plan.StepResult{
			Outcome:   plan.OutcomeFailed,
			Output:    res.Output(),
			Err:       fmt.Errorf("run %s: %w", a.config.Command, err),
			Resources: resources,
		}
	}
	if res.ExitCode != 0 {
		return plan.StepResult{
			Outcome:   plan.OutcomeFailed,
			Output:    res.Output(),
			Err:       fmt.Errorf("%w: exit status %d", ErrCommandFailed, res.ExitCode),
			Resources: resources,
		}
	}

	return plan.StepResult{Outcome: plan.OutcomeApplied, Resources: resources}
}

// Render reads step's template and substitutes r into it.
// A missing file yields ErrTemplateNotFound.
func (a *Applier) Render(step plan.Step, r placeholder.Replacements) ([]byte, error) {
	content, err := os.ReadFile(step.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", step.Path, ErrTemplateNotFound)
		}
		return nil, fmt.Errorf("read template %s: %w", step.Path, err)
	}

	rendered := placeholder.Substitute(string(content), r)
	if names := placeholder.Unresolved(rendered); len(names) > 0 {
		a.logger.Warn("unresolved placeholders", "file", step.Name(), "placeholders", names)
	}
	return []byte(rendered), nil
}

// writeTemp writes content to a new .yaml file and returns its path.
func (a *Applier) writeTemp(content []byte) (string, error) {
	f, err := os.CreateTemp(a.config.TempDir, "tfydeploy-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
