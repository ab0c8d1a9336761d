package diagnose

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/impact"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func tierColor(t impact.Tier) lipgloss.TerminalColor {
	switch t {
	case impact.TierHigh:
		return ui.ColorError
	case impact.TierMedium:
		return ui.ColorWarning
	default:
		return ui.ColorSuccess
	}
}

func scoreColor(label string) lipgloss.TerminalColor {
	switch label {
	case "Excellent":
		return ui.ColorSuccess
	case "Good":
		return ui.ColorWarning
	case "Fair":
		return ui.ColorCaution
	default:
		return ui.ColorError
	}
}

// CacheTable renders the measured cache directories as a table.
func CacheTable(caches []CacheDir) string {
	rows := make([][]string, 0, len(caches))
	tiers := make([]impact.Tier, 0, len(caches))
	for _, c := range caches {
		if c.Err != nil {
			rows = append(rows, []string{c.Name, "?", "unreadable", c.Err.Error()})
			tiers = append(tiers, impact.TierHigh)
			continue
		}
		rows = append(rows, []string{c.Name, core.FormatMB(c.Size), c.Class.Tier.String(), c.Class.Impact})
		tiers = append(tiers, c.Class.Tier)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorMuted)).
		Headers("DIRECTORY", "SIZE", "TIER", "IMPACT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(tiers) {
				return cellStyle.Foreground(tierColor(tiers[row]))
			}
			return cellStyle
		}).
		String()
}

// Render prints a report the way the optimizer shows it.
func Render(w io.Writer, r *Report) {
	p := ui.NewPrinter(w)

	p.Section("Cache analysis")
	if len(r.Caches) == 0 {
		p.Info("No cache directories found")
	} else {
		p.Block(CacheTable(r.Caches))
	}
	cs := r.CacheStatus
	p.Line("Total cache size: %s", ui.Bold(ui.ColorPrimary, core.FormatMB(r.CacheTotal)))
	p.Line("Status: %s - %s", cs.Label, cs.Description)
	p.Line("Impact: %s", cs.Estimate)
	p.Line("%s %s", ui.IconArrow, cs.Recommendation)

	p.Section("History")
	for _, h := range r.History {
		p.Line("%s: %s", h.Name, core.FormatMB(h.Size))
	}
	p.Line("Total history size: %s", core.FormatMB(r.HistoryTotal))
	p.Line("Status: %s - %s", r.HistoryStatus.Label, r.HistoryStatus.Description)
	if r.HistoryTotal > 0 {
		p.Line("Estimated entries: ~%s items", humanize.Comma(int64(r.EstimatedEntries)))
	}

	p.Section("System")
	p.Line("Extensions: %d installed", r.Extensions)
	if r.FreeDiskKnown {
		p.Line("Available disk space: %.1f GB", core.GB(r.FreeDisk))
	}
	if r.MemoryKnown {
		p.Line("RAM: %.1f GB total, %.1f GB available", core.GB(r.Memory.Total), core.GB(r.Memory.Available))
	}

	p.Section("Diagnosis summary")
	if len(r.Issues) == 0 {
		p.Success("No major performance issues detected")
	} else {
		for i, issue := range r.Issues {
			p.Error("%d. %s", i+1, issue)
		}
	}
	if len(r.Recommendations) > 0 {
		p.Blank()
		p.Line("%s", ui.Bold(ui.ColorSecondary, "Recommendations"))
		for i, rec := range r.Recommendations {
			p.Info("%d. %s", i+1, rec)
		}
	}

	p.Blank()
	score := fmt.Sprintf("%d/100", r.Score.Value)
	p.Line("Performance score: %s", ui.Bold(scoreColor(r.Score.Status), score))
	p.Line("Status: %s - %s", ui.Colored(scoreColor(r.Score.Status), r.Score.Status), r.Score.Summary)

	if r.Escalated {
		p.Section("Advanced diagnosis")
		p.Info("Completed in %.1f seconds", r.SecondaryTook.Seconds())
		if len(r.Secondary) == 0 {
			p.Success("No additional performance issues detected")
		}
		for i, issue := range r.Secondary {
			p.Warn("%d. %s", i+1, issue)
		}
	}

	if len(r.Failures) > 0 {
		p.Blank()
		for _, f := range r.Failures {
			p.Warn("%s check skipped: %v", f.Check, f.Err)
		}
	}
}
