package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// ─── Tab enumeration ─────────────────────────────────────────────────────────

// Tab identifies one of the monitor sections.
type Tab int

const (
	TabOverview Tab = iota
	TabProcesses
	TabHistory
)

// TabNames is the display label for each tab.
var TabNames = []string{"Overview", "Processes", "History"}

// historyLen is how many samples the sparklines keep.
const historyLen = 60

// ─── Messages ────────────────────────────────────────────────────────────────

type tickMsg time.Time

type sampleMsg struct {
	snap *Snapshot
	err  error
}

// ─── Model ───────────────────────────────────────────────────────────────────

// Model is the bubbletea Model for the browser monitor.
type Model struct {
	ctx             context.Context
	src             Source
	app             string
	Snapshot        *Snapshot
	Tab             Tab
	Width           int
	Height          int
	refreshInterval time.Duration
	quitting        bool
	Err             error

	CPUHistory []float64
	RSSHistory []float64
}

// NewModel returns a Model sampling src every refreshInterval.
func NewModel(ctx context.Context, src Source, app string, refreshInterval time.Duration) Model {
	if refreshInterval <= 0 {
		refreshInterval = time.Second
	}
	return Model{
		ctx:             ctx,
		src:             src,
		app:             app,
		Width:           80,
		Height:          24,
		refreshInterval: refreshInterval,
	}
}

func (m Model) doTick() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) sample() tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		snap, err := src.Sample(ctx)
		return sampleMsg{snap: snap, err: err}
	}
}

// ─── tea.Model interface ─────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	// The first sampleMsg starts the tick loop, so sampling and display
	// never overlap.
	return m.sample()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.Tab = (m.Tab + 1) % Tab(len(TabNames))
		case "shift+tab":
			if m.Tab == 0 {
				m.Tab = Tab(len(TabNames) - 1)
			} else {
				m.Tab--
			}
		case "1":
			m.Tab = TabOverview
		case "2":
			m.Tab = TabProcesses
		case "3":
			m.Tab = TabHistory
		}
		return m, nil

	case tickMsg:
		return m, m.sample()

	case sampleMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, m.doTick()
		}
		m.Err = nil
		m.Snapshot = msg.snap
		m.CPUHistory = appendF64(m.CPUHistory, msg.snap.TotalCPU, historyLen)
		m.RSSHistory = appendF64(m.RSSHistory, msg.snap.TotalRSSMB, historyLen)
		return m, m.doTick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderView()
}

// ─── Program ─────────────────────────────────────────────────────────────────

// Run shows the monitor full screen until the operator quits or ctx is
// cancelled.
func Run(ctx context.Context, src Source, app string, refreshInterval time.Duration, in io.Reader, out io.Writer) error {
	m := NewModel(ctx, src, app, refreshInterval)
	_, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	).Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
		return core.ErrInterrupted
	}
	return fmt.Errorf("monitor failed: %w", err)
}

// ─── History helpers ─────────────────────────────────────────────────────────

func appendF64(h []float64, v float64, maxLen int) []float64 {
	h = append(h, v)
	if len(h) > maxLen {
		h = h[1:]
	}
	return h
}
