// Package ui holds the terminal palette, yes/no prompts and the progress
// spinner shared by every command.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0891b2", Dark: "#22d3ee"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	ColorCaution   = lipgloss.AdaptiveColor{Light: "#ea580c", Dark: "#fb923c"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
)

// ─── Icons ───────────────────────────────────────────────────────────────────

const (
	IconSuccess = "✓"
	IconWarning = "!"
	IconError   = "✗"
	IconInfo    = "•"
	IconPipe    = "│"
	IconArrow   = "→"
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
)

// Muted renders s in the muted color.
func Muted(s string) string { return mutedStyle.Render(s) }

// Colored renders s in the given color.
func Colored(c lipgloss.TerminalColor, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// Bold renders s bold in the given color.
func Bold(c lipgloss.TerminalColor, s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(s)
}

// ─── Printer ─────────────────────────────────────────────────────────────────

// Printer writes styled status lines to w.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Title prints a banner line framed by rules.
func (p *Printer) Title(s string) {
	rule := mutedStyle.Render(strings.Repeat("═", 60))
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "  "+titleStyle.Render(s))
	fmt.Fprintln(p.w, rule)
}

// Section prints a section heading preceded by a blank line.
func (p *Printer) Section(s string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, sectionStyle.Render(s))
	fmt.Fprintln(p.w, mutedStyle.Render(strings.Repeat("─", 50)))
}

// Line prints a plain indented line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, "   "+format+"\n", args...)
}

// Blank prints an empty line.
func (p *Printer) Blank() { fmt.Fprintln(p.w) }

// Success prints a line with the success icon.
func (p *Printer) Success(format string, args ...any) {
	p.icon(successStyle, IconSuccess, format, args...)
}

// Warn prints a line with the warning icon.
func (p *Printer) Warn(format string, args ...any) {
	p.icon(warningStyle, IconWarning, format, args...)
}

// Error prints a line with the error icon.
func (p *Printer) Error(format string, args ...any) {
	p.icon(errorStyle, IconError, format, args...)
}

// Info prints a muted bullet line.
func (p *Printer) Info(format string, args ...any) {
	p.icon(mutedStyle, IconInfo, format, args...)
}

func (p *Printer) icon(st lipgloss.Style, icon, format string, args ...any) {
	fmt.Fprintf(p.w, "   %s %s\n", st.Render(icon), fmt.Sprintf(format, args...))
}

// Block prints pre-rendered multi-line content as is.
func (p *Printer) Block(s string) {
	fmt.Fprintln(p.w, s)
}
