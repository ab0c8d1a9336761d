package clean

import (
	"os"
	"path/filepath"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

const (
	// largeSyncFileMB marks a single synced file as large.
	largeSyncFileMB = 1.0
	// heavySyncTotalMB marks the synced data as a likely drag on mobile.
	heavySyncTotalMB = 10.0
)

// SyncEntry is the size of one file that syncs to other devices.
type SyncEntry struct {
	Name        string
	Description string
	SizeMB      float64
	Large       bool
}

// SyncReport summarises the data that remains to sync after cleaning.
type SyncReport struct {
	Entries []SyncEntry
	TotalMB float64
	Heavy   bool
}

// AnalyzeSync measures the sync files present below root. Missing files
// are left out of the report.
func AnalyzeSync(root string, files []config.SyncFile) SyncReport {
	var r SyncReport
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f.Name))
		if err != nil || info.IsDir() {
			continue
		}
		mb := core.MB(info.Size())
		r.Entries = append(r.Entries, SyncEntry{
			Name:        f.Name,
			Description: f.Description,
			SizeMB:      mb,
			Large:       mb > largeSyncFileMB,
		})
		r.TotalMB += mb
	}
	r.Heavy = r.TotalMB > heavySyncTotalMB
	return r
}
