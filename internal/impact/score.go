package impact

import (
	"sort"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
)

// ScoreInput is what the rubric looks at.
type ScoreInput struct {
	CacheMB   float64
	HistoryMB float64
	Issues    int
	FreeGB    float64
}

// Score is the rubric's verdict.
type Score struct {
	Value   int
	Status  string
	Summary string
}

// Rubric subtracts band penalties from a baseline. Each dimension applies
// at most one penalty, that of the most severe band breached.
type Rubric struct {
	baseline int
	cache    []config.Band
	history  []config.Band
	issues   []config.Band
	freeDisk []config.Band
	status   []config.StatusBand
}

// NewRubric copies and orders the bands from cfg. Over-limit bands are
// sorted by descending limit, under-limit (free disk) bands ascending, and
// status bands by descending minimum.
func NewRubric(cfg config.Score) *Rubric {
	r := &Rubric{
		baseline: cfg.Baseline,
		cache:    sortedBands(cfg.CacheMB, true),
		history:  sortedBands(cfg.HistoryMB, true),
		issues:   sortedBands(cfg.Issues, true),
		freeDisk: sortedBands(cfg.FreeDiskGB, false),
		status:   append([]config.StatusBand(nil), cfg.Status...),
	}
	sort.SliceStable(r.status, func(i, j int) bool { return r.status[i].Min > r.status[j].Min })
	return r
}

func sortedBands(in []config.Band, descending bool) []config.Band {
	out := append([]config.Band(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Limit > out[j].Limit
		}
		return out[i].Limit < out[j].Limit
	})
	return out
}

// over returns the penalty of the first band whose limit v exceeds.
func over(bands []config.Band, v float64) int {
	for _, b := range bands {
		if v > b.Limit {
			return b.Penalty
		}
	}
	return 0
}

// under returns the penalty of the first band whose limit v falls below.
func under(bands []config.Band, v float64) int {
	for _, b := range bands {
		if v < b.Limit {
			return b.Penalty
		}
	}
	return 0
}

// Score evaluates in. The result is clamped to [0, baseline].
func (r *Rubric) Score(in ScoreInput) Score {
	v := r.baseline
	v -= over(r.cache, in.CacheMB)
	v -= over(r.history, in.HistoryMB)
	v -= over(r.issues, float64(in.Issues))
	v -= under(r.freeDisk, in.FreeGB)

	if v < 0 {
		v = 0
	}
	if v > r.baseline {
		v = r.baseline
	}

	s := Score{Value: v}
	for _, b := range r.status {
		if v >= b.Min {
			s.Status = b.Label
			s.Summary = b.Summary
			break
		}
	}
	return s
}
