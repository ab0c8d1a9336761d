package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// Runner executes slow steps, showing progress when it can.
type Runner interface {
	Run(ctx context.Context, label string, fn func(ctx context.Context) error) error
}

// NewRunner returns a spinner-backed Runner when out is a terminal and a
// plain one otherwise.
func NewRunner(out io.Writer) Runner {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return &SpinnerRunner{out: out}
	}
	return &PlainRunner{out: out}
}

// ─── Plain ───────────────────────────────────────────────────────────────────

// PlainRunner prints the label, runs fn and prints how long it took.
type PlainRunner struct {
	out io.Writer
}

// Run implements Runner.
func (r *PlainRunner) Run(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	printOutcome(r.out, label, time.Since(start), err)
	return err
}

func printOutcome(w io.Writer, label string, elapsed time.Duration, err error) {
	took := Muted(fmt.Sprintf("(%.1fs)", elapsed.Seconds()))
	if err != nil {
		fmt.Fprintf(w, "%s %s %s\n", Colored(ColorError, IconError), label, took)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", Colored(ColorSuccess, IconSuccess), label, took)
}

// ─── Spinner ─────────────────────────────────────────────────────────────────

// SpinnerRunner animates a spinner while fn runs on the program's command
// goroutine. ctrl+c cancels the context handed to fn.
type SpinnerRunner struct {
	out io.Writer
}

type taskDoneMsg struct{ err error }

type taskModel struct {
	label   string
	spinner spinner.Model
	run     tea.Cmd
	cancel  context.CancelFunc
	err     error
	done    bool
}

func (m taskModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.err, m.done = msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// fn observes the cancellation and returns; its taskDoneMsg ends
			// the program.
			m.cancel()
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m taskModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// Run implements Runner.
func (r *SpinnerRunner) Run(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := taskModel{
		label: label,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorPrimary)),
		),
		run: func() tea.Msg {
			return taskDoneMsg{err: fn(ctx)}
		},
		cancel: cancel,
	}

	start := time.Now()
	final, err := tea.NewProgram(m, tea.WithOutput(r.out)).Run()
	if err != nil {
		return fmt.Errorf("progress display failed: %w", err)
	}
	tm := final.(taskModel)
	printOutcome(r.out, label, time.Since(start), tm.err)
	if errors.Is(tm.err, context.Canceled) {
		return core.ErrInterrupted
	}
	return tm.err
}
