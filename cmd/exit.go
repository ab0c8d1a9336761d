package cmd

import (
	"context"
	"errors"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// Exit codes returned by the binary.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitInterrupted = 130
)

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, core.ErrInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitError
	}
}
