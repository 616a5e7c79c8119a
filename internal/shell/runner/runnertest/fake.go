// Package runnertest provides a scripted CommandRunner for tests.
package runnertest

import (
	"context"
	"os"
	"sync"

	"github.com/artpar/tfydeploy/internal/shell/runner"
)

// Call records one invocation of the fake.
type Call struct {
	Name string
	Args []string
	// Content is the content of the last argument, read while the command
	// "ran", when that argument names a readable file.
	Content string
}

// Response is what the fake returns for a call.
type Response struct {
	Result runner.Result
	Err    error
}

// Fake is a CommandRunner that records calls and answers from a script.
type Fake struct {
	mu sync.Mutex
	// Respond picks the response for a call. When nil, every call succeeds.
	Respond func(call Call) Response
	calls   []Call
}

// Run implements runner.CommandRunner.
func (f *Fake) Run(ctx context.Context, name string, args []string, opts runner.Options) (runner.Result, error) {
	call := Call{Name: name, Args: append([]string{}, args...)}
	if len(args) > 0 {
		if b, err := os.ReadFile(args[len(args)-1]); err == nil {
			call.Content = string(b)
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	respond := f.Respond
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return runner.Result{ExitCode: -1}, err
	}
	if respond == nil {
		return runner.Result{}, nil
	}
	resp := respond(call)
	return resp.Result, resp.Err
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

// FailWhen returns a Respond func that exits 1 with stderr for every call
// whose rendered content satisfies match.
func FailWhen(match func(content string) bool, stderr string) func(Call) Response {
	return func(c Call) Response {
		if match(c.Content) {
			return Response{Result: runner.Result{ExitCode: 1, Stderr: stderr}}
		}
		return Response{}
	}
}
