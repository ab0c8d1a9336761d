package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// CommandFunc runs an external program, feeding it stdin and returning its
// standard output. ExecCommand is the production implementation; tests
// substitute fakes.
type CommandFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// Command returns a CommandFunc that bounds every invocation by timeout.
// A zero timeout relies on ctx alone.
func Command(timeout time.Duration) CommandFunc {
	return func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
		return ExecCommand(ctx, timeout, stdin, name, args...)
	}
}

// ExecCommand runs name directly (never through a shell) and returns its
// standard output. Failures are translated by handleExitError.
func ExecCommand(ctx context.Context, timeout time.Duration, stdin []byte, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Orphaned grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = time.Second
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.Bytes(), handleExitError(name, timeout, err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

// handleExitError wraps an exec error with the program name, its exit code
// and a truncated copy of what it printed on stderr.
func handleExitError(name string, timeout time.Duration, err error, output []byte) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s: %w", name, timeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s interrupted: %w", name, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if out := truncate(strings.TrimSpace(string(output)), 200); out != "" {
			return fmt.Errorf("%s failed (exit code %d): %s", name, code, out)
		}
		return fmt.Errorf("%s failed (exit code %d)", name, code)
	}

	return fmt.Errorf("%s: %w", name, err)
}

// truncate cuts s to at most n bytes on a valid UTF-8 boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}
