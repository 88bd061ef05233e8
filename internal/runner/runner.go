package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Result captures the outcome of one external process invocation.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner abstracts process execution so stages can be tested with fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LaunchError means the executable could not be found or started.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// NonZeroExit means the process ran but terminated with a non-zero code.
// Whether that is fatal is the caller's decision, not the runner's.
type NonZeroExit struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *NonZeroExit) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// New creates the production Runner backed by os/exec.
func New() Runner {
	return &execRunner{}
}

// Run executes one command synchronously and captures stdout/stderr.
// No retries here; retry policy belongs to callers.
func (r *execRunner) Run(ctx context.Context, command Command) (Result, error) {
	path, err := exec.LookPath(command.Name)
	if err != nil {
		return Result{Command: command.Name, Args: command.Args, ExitCode: -1},
			&LaunchError{Command: command.Name, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, command.Args...)
	cmd.Dir = command.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := Result{
		Command:  command.Name,
		Args:     command.Args,
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if runErr == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%s interrupted: %w", command.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &NonZeroExit{
			Command:  command.Name,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	result.ExitCode = -1
	return result, &LaunchError{Command: command.Name, Err: runErr}
}

// Version runs "<tool> --version" and returns the first output line.
// Used by preflight checks before a pipeline run.
func Version(ctx context.Context, r Runner, tool string) (string, error) {
	result, err := r.Run(ctx, Command{Name: tool, Args: []string{"--version"}})
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(result.Stdout)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return line, nil
}
