package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/tfydeploy/internal/shell/deployer"
	"github.com/artpar/tfydeploy/internal/shell/prompt"
	"github.com/artpar/tfydeploy/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess               = 0
	ExitInfrastructureFailure = 1
	ExitConfigError           = 2
	ExitHistoryError          = 3
	ExitDeclined              = 4
	ExitCancelled             = 130
)

// =============================================================================
// Command Error
// =============================================================================

// CommandError represents a command failure with its exit code.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an error returned by a command to a process exit code.
// Errors that are not a *CommandError come from flag parsing and count as
// usage errors.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cErr *CommandError
	if errors.As(err, &cErr) {
		return cErr.ExitCode
	}
	return ExitConfigError
}

// classify wraps err from op with the exit code it deserves.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	code := ExitConfigError
	switch {
	case errors.Is(err, deployer.ErrInfrastructureFailed):
		code = ExitInfrastructureFailure
	case errors.Is(err, prompt.ErrDeclined):
		code = ExitDeclined
	case errors.Is(err, context.Canceled):
		code = ExitCancelled
	case isStoreError(err):
		code = ExitHistoryError
	}
	return &CommandError{Op: op, Err: err, ExitCode: code}
}

func isStoreError(err error) bool {
	var sErr *store.StoreError
	return errors.As(err, &sErr) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrConnectionFailed) ||
		errors.Is(err, store.ErrMigrationFailed)
}
