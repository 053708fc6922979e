package fixtures

import (
	"context"
	"strings"
	"sync"

	"github.com/metal-toolbox/dpuctl/internal/model"
)

// Scripted pairs a command line substring with the result to return for it.
type Scripted struct {
	Match  string
	Result model.CommandResult
	Err    error
}

// Runner is a scripted fake implementing the runner.Runner interface, it
// records every command line instead of executing anything.
type Runner struct {
	mu sync.Mutex

	// Scripted results matched by substring, first match wins. Unmatched
	// commands return an empty success.
	Scripted []Scripted

	// Calls holds the full command lines in invocation order.
	Calls []string
}

func (r *Runner) Run(_ context.Context, command string, args ...string) (model.CommandResult, error) {
	return r.record(command, args)
}

func (r *Runner) RunInteractive(_ context.Context, command string, args ...string) (model.CommandResult, error) {
	return r.record(command, args)
}

func (r *Runner) record(command string, args []string) (model.CommandResult, error) {
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}

	r.mu.Lock()
	r.Calls = append(r.Calls, line)
	r.mu.Unlock()

	for _, s := range r.Scripted {
		if strings.Contains(line, s.Match) {
			return s.Result, s.Err
		}
	}

	return model.CommandResult{ExitCode: 0}, nil
}

// CallCount returns the number of commands invoked.
func (r *Runner) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.Calls)
}

// CallsMatching returns the recorded command lines containing the substring.
func (r *Runner) CallsMatching(substr string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []string

	for _, line := range r.Calls {
		if strings.Contains(line, substr) {
			matched = append(matched, line)
		}
	}

	return matched
}
