package workflow

import (
	"fmt"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/clean"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// PrintSync shows the size of the data that still syncs to other devices.
func PrintSync(p *ui.Printer, app string, r clean.SyncReport) {
	p.Section(app + " sync analysis")
	p.Line("Data that syncs to mobile devices:")
	for _, e := range r.Entries {
		status := ui.Colored(ui.ColorSuccess, "Normal")
		if e.Large {
			status = ui.Colored(ui.ColorWarning, "Large")
		}
		p.Line("   %s: %.1f MB - %s %s", e.Name, e.SizeMB, e.Description, status)
	}
	p.Blank()
	p.Line("Total sync data: %.1f MB", r.TotalMB)
	if r.Heavy {
		p.Warn("Large sync data detected - may slow %s on mobile", app)
		p.Info("Consider cleaning bookmarks/reading list if mobile is still slow")
		return
	}
	p.Success("Sync data size is reasonable")
}

type guidanceStep struct {
	title string
	lines []string
}

func mobileGuidance(app string) []guidanceStep {
	return []guidanceStep{
		{"Force close " + app + " on iOS", []string{
			"Swipe up from the bottom edge and pause",
			"Swipe up on " + app + " to force close",
		}},
		{"Clear synced history", []string{
			"Open " + app + " on iOS",
			"Tap ⋯ (three dots) → History",
			"Tap 'Clear' → 'All History'",
		}},
		{"Reset the app cache", []string{
			"iOS Settings → General → iPhone Storage",
			fmt.Sprintf("Find '%s' and tap it", app),
			"Tap 'Offload App' (keeps data) or 'Delete App' (fresh start)",
			"Reinstall from the App Store if deleted",
		}},
		{"Disable unnecessary sync (optional)", []string{
			app + " Settings → Sync",
			"Turn OFF 'History' sync to prevent future bloat",
			"Keep 'Bookmarks' and 'Reading List' ON",
		}},
	}
}

// PrintMobileGuidance explains how to clean the synced mobile app, which
// the desktop cleanup cannot reach.
func PrintMobileGuidance(p *ui.Printer, app string) {
	p.Section("iOS " + app + " cleanup")
	p.Line("Since %s syncs across devices, the iOS app is likely slow too.", app)
	for i, step := range mobileGuidance(app) {
		p.Blank()
		p.Line("%d. %s", i+1, ui.Bold(ui.ColorSecondary, step.title))
		for _, l := range step.lines {
			p.Info("%s", l)
		}
	}
	p.Blank()
	p.Line("%s", ui.Bold(ui.ColorSecondary, "Alternatively, wait for sync"))
	p.Info("This cleanup syncs to iOS automatically within 15-30 minutes")
	p.Info("Then force close and restart %s on iOS", app)
	p.Blank()
	p.Warn("If the iOS app still hangs, its cache may be corrupted independently;")
	p.Info("a full reinstall is the last resort and bookmarks re-sync from iCloud")
}
