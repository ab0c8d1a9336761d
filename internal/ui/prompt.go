package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// Prompter asks the operator yes/no questions.
type Prompter interface {
	// Confirm returns the answer; defaultYes decides an empty answer.
	// Cancelling the prompt returns core.ErrInterrupted.
	Confirm(question string, defaultYes bool) (bool, error)
}

// NewPrompter returns a keypress prompt when in is an interactive terminal
// and a line-based prompt otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return &KeyPrompter{in: in, out: out}
	}
	return NewLinePrompter(in, out)
}

func hint(defaultYes bool) string {
	if defaultYes {
		return "(Y/n)"
	}
	return "(y/N)"
}

// ─── Line prompter ───────────────────────────────────────────────────────────

// LinePrompter reads one answer per line. Only "y" accepts a default-No
// question and only "n" declines a default-Yes one. End of input takes the
// default.
type LinePrompter struct {
	r   *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a LinePrompter reading from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(in), out: out}
}

// Confirm implements Prompter.
func (p *LinePrompter) Confirm(question string, defaultYes bool) (bool, error) {
	fmt.Fprintf(p.out, "%s %s: ", question, hint(defaultYes))

	line, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(p.out)
		return defaultYes, nil
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	if defaultYes {
		return answer != "n", nil
	}
	return answer == "y", nil
}

// ─── Keypress prompter ───────────────────────────────────────────────────────

// KeyPrompter answers on a single keypress using a small bubbletea program.
type KeyPrompter struct {
	in  io.Reader
	out io.Writer
}

// Confirm implements Prompter.
func (p *KeyPrompter) Confirm(question string, defaultYes bool) (bool, error) {
	m := newConfirmModel(question, defaultYes)
	final, err := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	cm := final.(confirmModel)
	if cm.interrupted {
		return false, core.ErrInterrupted
	}
	return cm.answer, nil
}

type confirmModel struct {
	question    string
	defaultYes  bool
	answer      bool
	done        bool
	interrupted bool
}

func newConfirmModel(question string, defaultYes bool) confirmModel {
	return confirmModel{question: question, defaultYes: defaultYes}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch strings.ToLower(key.String()) {
	case "y":
		m.answer, m.done = true, true
	case "n":
		m.answer, m.done = false, true
	case "enter":
		m.answer, m.done = m.defaultYes, true
	case "ctrl+c", "esc":
		m.interrupted, m.done = true, true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	q := fmt.Sprintf("%s %s: ", m.question, Muted(hint(m.defaultYes)))
	if !m.done {
		return q
	}
	switch {
	case m.interrupted:
		return q + Colored(ColorError, "cancelled") + "\n"
	case m.answer:
		return q + Colored(ColorSuccess, "yes") + "\n"
	default:
		return q + Colored(ColorMuted, "no") + "\n"
	}
}
