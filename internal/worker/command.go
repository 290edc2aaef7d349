package worker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
)

// CommandTimeout is the hard wall-clock limit on a single job
// execution.
const CommandTimeout = 5 * time.Minute

// runCommand tokenizes command by shell-style word splitting (never
// invoking a shell, so shell metacharacters in the string are inert)
// and runs it to completion or until timeout elapses, capturing
// stdout/stderr into buffers rather than letting them reach the
// parent process's own stdio.
func runCommand(ctx context.Context, command string) error {
	return runCommandWithTimeout(ctx, command, CommandTimeout)
}

func runCommandWithTimeout(ctx context.Context, command string, timeout time.Duration) error {
	args, err := shellwords.Parse(command)
	if err != nil {
		return &CommandError{Kind: kindSpawnFailed, Err: err}
	}
	if len(args) == 0 {
		return &CommandError{Kind: kindSpawnFailed, Err: errors.New("empty command")}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return &CommandError{Kind: kindTimeout, Err: ctx.Err(), Stderr: truncate(stderr.String())}
	}

	if runErr == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return &CommandError{
			Kind:     kindNonZeroExit,
			Err:      runErr,
			ExitCode: exitErr.ExitCode(),
			Stderr:   truncate(stderr.String()),
		}
	}

	return &CommandError{Kind: kindSpawnFailed, Err: runErr, Stderr: truncate(stderr.String())}
}
