// Package runner runs external commands and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process
// was killed, in case a child process still holds them open.
const waitDelay = 2 * time.Second

// Result holds the outcome of a command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stderr, or stdout when stderr is empty, trimmed.
// This is what gets reported for a failed command.
func (r Result) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Options holds optional parameters for a command.
type Options struct {
	Dir string            // working directory
	Env map[string]string // overlay on the current environment
}

// CommandRunner runs external commands.
type CommandRunner interface {
	// Run executes name with args and waits for it to exit.
	// A non-zero exit is reported through Result.ExitCode with a nil error.
	// The error is non-nil only when the process could not be started or
	// the context ended before it exited.
	Run(ctx context.Context, name string, args []string, opts Options) (Result, error)
}

// ExecRunner is the os/exec implementation of CommandRunner.
// The command is started directly, never through a shell.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.ExitCode = -1
			return result, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}

	return result, nil
}
