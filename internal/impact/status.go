package impact

// ─── Total cache status ──────────────────────────────────────────────────────

// CacheStatus describes the combined size of all cache directories.
type CacheStatus struct {
	Label          string
	Description    string
	Estimate       string
	Recommendation string
}

type cacheBand struct {
	below  float64
	status CacheStatus
}

var cacheBands = []cacheBand{
	{100, CacheStatus{"Excellent", "Cache size is minimal", "<1s startup delay, <50MB RAM usage", "No cache cleanup needed"}},
	{200, CacheStatus{"Healthy", "Cache size is normal", "+1-3s startup delay, +50-100MB RAM usage", "Cache cleanup optional but won't hurt"}},
	{500, CacheStatus{"Moderate", "Cache size could be optimized", "+3-8s startup delay, +100-200MB RAM usage", "Cache cleanup recommended for better performance"}},
	{1000, CacheStatus{"Warning", "Large cache may slow startup", "+8-15s startup delay, +200-500MB RAM usage", "Cache cleanup strongly recommended"}},
}

var criticalCache = CacheStatus{"Critical", "Cache size significantly impacting performance", "+15-30s startup delay, +500MB+ RAM usage", "Immediate cache cleanup required"}

// CacheStatusFor labels a total cache size in MB.
func CacheStatusFor(totalMB float64) CacheStatus {
	for _, b := range cacheBands {
		if totalMB < b.below {
			return b.status
		}
	}
	return criticalCache
}

// ─── History status ──────────────────────────────────────────────────────────

// HistoryStatus describes the combined size of the history files.
type HistoryStatus struct {
	Label       string
	Description string
	// Issue is set when the size is large enough to count as a finding.
	Issue bool
}

// HistoryStatusFor labels a total history size in MB.
func HistoryStatusFor(totalMB float64) HistoryStatus {
	switch {
	case totalMB < 10:
		return HistoryStatus{Label: "Normal", Description: "History size is healthy"}
	case totalMB < 50:
		return HistoryStatus{Label: "Moderate", Description: "History may slow searches"}
	default:
		return HistoryStatus{Label: "Large", Description: "History significantly slowing browser", Issue: true}
	}
}

// EstimatedHistoryEntries is a rough entry count for a history size, at
// about a thousand entries per megabyte.
func EstimatedHistoryEntries(totalMB float64) int {
	return int(totalMB * 1000)
}
