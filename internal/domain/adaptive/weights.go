// Package adaptive maintains per-baby scoring weights and folds user
// feedback into them.
package adaptive

import (
	"math"
	"time"

	"github.com/mirelk/cribsense/internal/domain/feature"
	"github.com/mirelk/cribsense/internal/domain/model"
)

// FeedbackRecord carries the user-confirmed actual cause for a prior
// prediction, keyed by the feature snapshot that produced it. It is
// consumed immediately; durable storage is the caller's job.
type FeedbackRecord struct {
	FeedbackID string
	BabyID     string
	Snapshot   feature.Vector
	Predicted  model.Cause
	Actual     model.Cause
	At         time.Time
}

// Weights is one pool's adaptive state: the thresholds the scorer reads
// plus the feedback bookkeeping behind them.
type Weights struct {
	Thresholds    model.Thresholds
	FeedbackCount int
	// Confusion counts (predicted, actual) pairs.
	Confusion map[model.Cause]map[model.Cause]int
}

// NewWeights seeds a pool from the configured default thresholds.
func NewWeights(defaults model.Thresholds) Weights {
	return Weights{
		Thresholds: defaults,
		Confusion:  make(map[model.Cause]map[model.Cause]int),
	}
}

// Params bound how far and how fast feedback can drag a threshold.
type Params struct {
	// DecayRate is the fraction of the gap between the current threshold
	// and the observed time-delta closed per feedback event, in (0, 1).
	DecayRate float64
	// MinFactor and MaxFactor clamp each threshold to a band around its
	// configured default, preventing runaway drift.
	MinFactor float64
	MaxFactor float64
	// Defaults anchor the clamp band.
	Defaults model.Thresholds
}

// Apply folds one feedback record into w and returns the new weights.
// It is a pure function of (w, fb): replaying the same record yields the
// same result from the same starting state, so replay-safety reduces to
// the caller deduplicating feedback ids.
func Apply(w Weights, fb FeedbackRecord, p Params) Weights {
	next := w
	next.Confusion = cloneConfusion(w.Confusion)
	next.FeedbackCount++

	row, ok := next.Confusion[fb.Predicted]
	if !ok {
		row = make(map[model.Cause]int)
		next.Confusion[fb.Predicted] = row
	}
	row[fb.Actual]++

	// Nudge the actual cause's threshold toward the observed time-delta
	// so a similar snapshot scores that cause higher next time.
	switch fb.Actual {
	case model.CauseHungry:
		if s := fb.Snapshot.SinceFeeding; s.Known {
			next.Thresholds.FeedingIntervalHours = nudge(
				w.Thresholds.FeedingIntervalHours, s.Hours,
				p.Defaults.FeedingIntervalHours, p)
		}
	case model.CauseDiaper:
		if s := fb.Snapshot.SinceDiaper; s.Known {
			next.Thresholds.DiaperIntervalHours = nudge(
				w.Thresholds.DiaperIntervalHours, s.Hours,
				p.Defaults.DiaperIntervalHours, p)
		}
	case model.CauseTired:
		if s := fb.Snapshot.SinceWake; s.Known {
			next.Thresholds.TirednessWakeWindowHours = nudge(
				w.Thresholds.TirednessWakeWindowHours, s.Hours,
				p.Defaults.TirednessWakeWindowHours, p)
		}
	case model.CauseAttention:
		// The attention score rises as the window widens, the opposite of
		// the time-since ramps. A confirmed attention cause therefore
		// widens the window past the observed delta instead of converging
		// onto it; the clamp band still bounds the drift.
		if s := fb.Snapshot.SinceCryEnd; s.Known {
			observed := s.Hours * 60
			target := math.Max(observed, w.Thresholds.AttentionWindowMinutes) * (1 + p.DecayRate)
			next.Thresholds.AttentionWindowMinutes = nudge(
				w.Thresholds.AttentionWindowMinutes, target,
				p.Defaults.AttentionWindowMinutes, p)
		}
	case model.CauseUnknown:
		// Nothing to learn from; only the confusion count moves.
	}

	return next
}

// nudge moves current toward observed by the decay rate, clamped to the
// band around the configured default.
func nudge(current, observed, anchor float64, p Params) float64 {
	next := current + p.DecayRate*(observed-current)
	lo := anchor * p.MinFactor
	hi := anchor * p.MaxFactor
	if next < lo {
		return lo
	}
	if next > hi {
		return hi
	}
	return next
}

func cloneConfusion(m map[model.Cause]map[model.Cause]int) map[model.Cause]map[model.Cause]int {
	out := make(map[model.Cause]map[model.Cause]int, len(m))
	for predicted, row := range m {
		cp := make(map[model.Cause]int, len(row))
		for actual, n := range row {
			cp[actual] = n
		}
		out[predicted] = cp
	}
	return out
}
