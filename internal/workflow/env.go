// Package workflow sequences the two maintenance runs: the interactive
// speed optimizer and the unattended profile cleaner.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/clean"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// Env is what both workflows share: configuration, the browser, the
// operator and the output.
type Env struct {
	Config    *config.Config
	Layout    config.Layout
	Lifecycle *browser.Lifecycle
	Prompt    ui.Prompter
	Runner    ui.Runner
	Out       io.Writer
	DryRun    bool
	Log       *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

func (e Env) appName() string {
	return e.Config.Browser.AppName
}

// interrupted normalises cancellation so callers can test for
// core.ErrInterrupted alone.
func interrupted(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, core.ErrInterrupted) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", core.ErrInterrupted, err)
	}
	return err
}

// printResult lists what a cleanup removed and what it could not.
func printResult(p *ui.Printer, res *clean.Result) {
	if res == nil {
		return
	}
	verb := "Deleted"
	if res.DryRun {
		verb = "Would delete"
	}
	for _, it := range res.Removed {
		p.Line("   %s %s: %s", verb, it.Rel, core.FormatMB(it.Size))
	}
	for _, f := range res.Failures {
		p.Warn("Failed to delete %s: %v", f.Rel, f.Err)
	}
}
