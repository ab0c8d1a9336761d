package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	clrGreen  = ui.ColorSuccess
	clrYellow = ui.ColorWarning
	clrOrange = ui.ColorCaution
	clrRed    = ui.ColorError
	clrCyan   = ui.ColorSecondary
	clrPink   = lipgloss.AdaptiveColor{Light: "#db2777", Dark: "#f472b6"}
)

// ─── Top-level renderer ─────────────────────────────────────────────────────

func (m Model) renderView() string {
	w := max(m.Width, 50)

	var s strings.Builder
	s.WriteString(m.renderTabs(w))
	s.WriteString("\n")

	if m.Snapshot == nil {
		s.WriteString(lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Italic(true).
			Render("  Sampling " + m.app + " processes…"))
		if m.Err != nil {
			s.WriteString("\n" + m.renderError())
		}
		return s.String()
	}

	switch m.Tab {
	case TabOverview:
		s.WriteString(m.renderOverview(w))
	case TabProcesses:
		s.WriteString(m.renderProcesses(w))
	case TabHistory:
		s.WriteString(m.renderHistory(w))
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatusFooter())
	return s.String()
}

// ─── Tab bar ─────────────────────────────────────────────────────────────────

func (m Model) renderTabs(w int) string {
	active := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.ColorPrimary).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ui.ColorPrimary).
		Padding(0, 2)

	inactive := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Padding(0, 2)

	var tabs []string
	for i, name := range TabNames {
		label := fmt.Sprintf("%d·%s", i+1, name)
		if Tab(i) == m.Tab {
			tabs = append(tabs, active.Render(label))
		} else {
			tabs = append(tabs, inactive.Render(label))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
	divider := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Render(strings.Repeat("─", w))

	return bar + "\n" + divider
}

// ─── Overview tab ────────────────────────────────────────────────────────────

func (m Model) renderOverview(w int) string {
	snap := m.Snapshot

	state := lipgloss.NewStyle().Bold(true).Foreground(clrGreen).
		Render(fmt.Sprintf("  %s running  %d processes", m.app, len(snap.Processes)))
	if !snap.Running() {
		state = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorMuted).
			Render(fmt.Sprintf("  %s is not running", m.app))
	}

	barW := 24
	if w > 100 {
		barW = 32
	}

	lines := []string{
		fmt.Sprintf("  CPU  %s  %5.1f%%", colorBar(snap.TotalCPU, barW), snap.TotalCPU),
	}
	rss := fmt.Sprintf("  RSS  %s", core.FormatMB(int64(snap.TotalRSSMB*1024*1024)))
	if snap.MemoryKnown && snap.Memory.Total > 0 {
		pct := snap.TotalRSSMB * 1024 * 1024 / float64(snap.Memory.Total) * 100
		rss = fmt.Sprintf("  RSS  %s  %5.1f%%  %s", colorBar(pct, barW), pct, core.FormatMB(int64(snap.TotalRSSMB*1024*1024)))
	}
	lines = append(lines, rss)
	if snap.Running() {
		lines = append(lines, fmt.Sprintf("  UP   %s", formatUptime(snap.Longest)))
	}
	browserCard := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorSecondary).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))

	var host []string
	if snap.MemoryKnown {
		host = append(host, fmt.Sprintf("  MEM  %s  %5.1f%%  %s available",
			colorBar(snap.Memory.UsedPercent, barW), snap.Memory.UsedPercent,
			humanize.IBytes(snap.Memory.Available)))
	}
	if snap.FreeDiskKnown {
		host = append(host, fmt.Sprintf("  DSK  %s free on the profile volume", humanize.IBytes(snap.FreeDisk)))
	}
	if len(host) == 0 {
		host = append(host, "  (host statistics unavailable)")
	}
	hostCard := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMuted).
		Padding(0, 1).
		Render(strings.Join(host, "\n"))

	parts := []string{"", state, "", browserCard, "", hostCard}
	if len(snap.Issues) > 0 {
		warn := lipgloss.NewStyle().Foreground(clrOrange)
		parts = append(parts, "")
		for _, issue := range snap.Issues {
			parts = append(parts, warn.Render("  "+ui.IconWarning+" "+issue))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// ─── Processes tab ───────────────────────────────────────────────────────────

func (m Model) renderProcesses(w int) string {
	snap := m.Snapshot
	barW := 20
	if w > 100 {
		barW = 28
	}
	nameW := 22
	if w > 100 {
		nameW = 30
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines,
		lipgloss.NewStyle().Bold(true).Foreground(ui.ColorSecondary).
			Render("  "+m.app+" processes by CPU"))
	lines = append(lines, "")

	header := fmt.Sprintf("  %-6s %-*s %s  %6s  %9s  %s", "PID", nameW, "Name", strings.Repeat(" ", barW), "CPU%", "RSS", "Uptime")
	lines = append(lines, lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(header))
	lines = append(lines, lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("  "+strings.Repeat("─", w-4)))

	for _, p := range snap.Processes {
		name := p.Name
		if len([]rune(name)) > nameW {
			name = string([]rune(name)[:nameW-1]) + "…"
		}
		lines = append(lines,
			fmt.Sprintf("  %-6d %-*s %s  %5.1f%%  %6.1f MB  %s",
				p.PID, nameW, name, colorBar(p.CPU, barW), p.CPU, p.RSSMB, formatUptime(p.Uptime)))
	}

	if len(snap.Processes) == 0 {
		lines = append(lines,
			lipgloss.NewStyle().Foreground(ui.ColorMuted).Italic(true).
				Render("  (no "+m.app+" processes)"))
	}

	return strings.Join(lines, "\n")
}

// ─── History tab ─────────────────────────────────────────────────────────────

func (m Model) renderHistory(w int) string {
	width := 30
	if w > 100 {
		width = 60
	}

	var lines []string
	lines = append(lines, "")
	if len(m.CPUHistory) < 2 {
		lines = append(lines, lipgloss.NewStyle().Foreground(ui.ColorMuted).Italic(true).
			Render("  (collecting history…)"))
		return strings.Join(lines, "\n")
	}

	cpu := m.CPUHistory[len(m.CPUHistory)-1]
	rss := m.RSSHistory[len(m.RSSHistory)-1]
	lines = append(lines,
		lipgloss.NewStyle().Foreground(clrCyan).Render("  CPU  ")+sparklineF64(m.CPUHistory, width, clrCyan)+fmt.Sprintf("  %5.1f%%", cpu))
	lines = append(lines,
		lipgloss.NewStyle().Foreground(clrPink).Render("  RSS  ")+sparklineF64(m.RSSHistory, width, clrPink)+fmt.Sprintf("  %.1f MB", rss))
	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().Foreground(ui.ColorMuted).
		Render(fmt.Sprintf("  last %d samples, every %s", len(m.CPUHistory), m.refreshInterval)))
	return strings.Join(lines, "\n")
}

// ─── Footer ──────────────────────────────────────────────────────────────────

func (m Model) renderError() string {
	return lipgloss.NewStyle().
		Foreground(ui.ColorError).
		Render("  " + ui.IconError + " " + m.Err.Error())
}

func (m Model) renderStatusFooter() string {
	hints := "  Tab/Shift-Tab switch  " + ui.IconPipe + "  1-3 jump  " + ui.IconPipe + "  q quit"
	footer := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Italic(true).
		Render(hints)

	if m.Err != nil {
		return m.renderError() + "\n" + footer
	}
	return footer
}

// ─── Drawing primitives ─────────────────────────────────────────────────────

// colorBar renders a ████░░░░ bar colored by severity.
func colorBar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := min(int(pct/100*float64(width)), width)

	barColor := clrGreen
	switch {
	case pct >= 90:
		barColor = clrRed
	case pct >= 75:
		barColor = clrOrange
	case pct >= 50:
		barColor = clrYellow
	}

	fStr := lipgloss.NewStyle().Foreground(barColor).Render(strings.Repeat("█", filled))
	eStr := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(strings.Repeat("░", width-filled))
	return fStr + eStr
}

// sparklineF64 renders the most recent width values as a mini chart.
func sparklineF64(data []float64, width int, color lipgloss.TerminalColor) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	d := data
	if len(d) > width {
		d = d[len(d)-width:]
	}
	var maxVal float64
	for _, v := range d {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var b strings.Builder
	for _, v := range d {
		idx := min(max(int(v/maxVal*7), 0), 7)
		b.WriteRune(blocks[idx])
	}
	for i := len(d); i < width; i++ {
		b.WriteRune(blocks[0])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// formatUptime renders a duration as "3d 4h", "2h 15m" or "42m".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
