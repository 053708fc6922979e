package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/sirupsen/logrus"
)

// Runner executes external commands on behalf of the controllers.
//
// A nonzero exit is returned as a CommandResult, not an error - the error
// return is reserved for failures to run the command at all.
type Runner interface {
	// Run executes the command with captured stdout and stderr.
	Run(ctx context.Context, command string, args ...string) (model.CommandResult, error)

	// RunInteractive executes the command attached to the calling process
	// stdio, for terminal hand-off.
	RunInteractive(ctx context.Context, command string, args ...string) (model.CommandResult, error)
}

// Exec runs commands through os/exec, with an optional dry-run mode that
// records the command line instead of executing it.
type Exec struct {
	dryRun bool
	logger *logrus.Entry
}

// New returns a command runner.
func New(dryRun bool, logger *logrus.Entry) *Exec {
	return &Exec{dryRun: dryRun, logger: logger}
}

// Run executes the command with stdout and stderr captured.
//
// In dry-run mode no process is spawned, the returned result is a synthetic
// success whose stdout is the command line that would have run, so callers
// can be exercised end to end without hardware.
func (e *Exec) Run(ctx context.Context, command string, args ...string) (model.CommandResult, error) {
	cmdline := commandLine(command, args)

	if e.dryRun {
		e.logger.WithFields(logrus.Fields{"cmd": cmdline}).Info("dry-run, command not executed")

		return model.CommandResult{ExitCode: 0, Stdout: cmdline}, nil
	}

	e.logger.WithFields(logrus.Fields{"cmd": cmdline}).Debug("executing command")

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := model.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			result.ExitCode = -1

			return result, err
		}

		// nonzero exit is data for the caller, not an error here
		result.ExitCode = exitErr.ExitCode()

		return result, nil
	}

	return result, nil
}

// RunInteractive executes the command with the calling process stdio attached.
func (e *Exec) RunInteractive(ctx context.Context, command string, args ...string) (model.CommandResult, error) {
	cmdline := commandLine(command, args)

	if e.dryRun {
		e.logger.WithFields(logrus.Fields{"cmd": cmdline}).Info("dry-run, command not executed")

		return model.CommandResult{ExitCode: 0, Stdout: cmdline}, nil
	}

	e.logger.WithFields(logrus.Fields{"cmd": cmdline}).Debug("handing over terminal")

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	var result model.CommandResult

	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			result.ExitCode = -1

			return result, err
		}

		result.ExitCode = exitErr.ExitCode()

		return result, nil
	}

	return result, nil
}

func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}

	return command + " " + strings.Join(args, " ")
}
