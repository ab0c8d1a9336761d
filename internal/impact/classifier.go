// Package impact turns measured profile sizes into qualitative verdicts: a
// per-directory impact tier and an aggregate performance score.
package impact

import (
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
)

// Tier is the impact level of a measured size.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the tier name used in reports.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Recommendation is the action suggested for a tier.
type Recommendation string

const (
	Keep    Recommendation = "Keep"
	Monitor Recommendation = "Monitor"
	Clean   Recommendation = "Clean"
)

// Classification is the verdict for one directory.
type Classification struct {
	Tier           Tier
	Impact         string
	Purpose        string
	Recommendation Recommendation
}

// Classifier maps directory names to their threshold tables. It is safe
// for concurrent use; nothing is mutated after construction.
type Classifier struct {
	fallback config.Thresholds
	tables   map[string]config.Thresholds
}

// NewClassifier copies the tables out of cfg.
func NewClassifier(cfg config.Impact) *Classifier {
	tables := make(map[string]config.Thresholds, len(cfg.Directories))
	for name, t := range cfg.Directories {
		tables[name] = t
	}
	return &Classifier{fallback: cfg.Default, tables: tables}
}

// Thresholds returns the table used for name and whether name is known.
func (c *Classifier) Thresholds(name string) (config.Thresholds, bool) {
	t, ok := c.tables[name]
	if !ok {
		return c.fallback, false
	}
	return t, true
}

// Classify places sizeMB into a tier. Boundaries belong to the lower tier:
// a size equal to the low cutoff is low, equal to the medium cutoff is
// medium.
func (c *Classifier) Classify(name string, sizeMB float64) Classification {
	t, _ := c.Thresholds(name)

	var cl Classification
	switch {
	case sizeMB <= t.Low:
		cl = Classification{Tier: TierLow, Impact: t.Impact.Low, Recommendation: Keep}
	case sizeMB <= t.Medium:
		cl = Classification{Tier: TierMedium, Impact: t.Impact.Medium, Recommendation: Monitor}
	default:
		cl = Classification{Tier: TierHigh, Impact: t.Impact.High, Recommendation: Clean}
	}
	cl.Purpose = t.Purpose
	return cl
}
