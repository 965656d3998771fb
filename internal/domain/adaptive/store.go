package adaptive

import (
	"context"
	"sync"

	"github.com/mirelk/cribsense/internal/domain/model"
)

// Default adaptation constants. The original adjustment rule left the
// decay rate and clamp bounds unspecified; these are the documented
// deployment defaults, all overridable through configuration.
const (
	defaultDecayRate       = 0.15
	defaultMinClampFactor  = 0.5
	defaultMaxClampFactor  = 2.0
	defaultMinBabyFeedback = 10
)

// Adjustment summarizes the effect of one feedback record, for logging.
type Adjustment struct {
	BabyID        string
	Actual        model.Cause
	Predicted     model.Cause
	Correct       bool
	OldThreshold  float64
	NewThreshold  float64
	BabyFeedback  int
	UsingBabyPool bool
}

// Store owns the baby-keyed weight sets plus the global fallback pool.
// Reads (scoring) take a shared lock per pool; feedback takes the
// exclusive lock only on the pools it touches, so different babies'
// updates do not contend.
type Store struct {
	mu     sync.RWMutex // guards the babies map itself
	babies map[string]*entry
	global *entry

	params          Params
	minBabyFeedback int
}

type entry struct {
	mu sync.RWMutex
	w  Weights
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithDecayRate sets the per-feedback threshold decay rate.
func WithDecayRate(rate float64) Option {
	return func(s *Store) {
		if rate > 0 && rate < 1 {
			s.params.DecayRate = rate
		}
	}
}

// WithClampFactors bounds learned thresholds to [min, max] times their
// configured defaults.
func WithClampFactors(minFactor, maxFactor float64) Option {
	return func(s *Store) {
		if minFactor > 0 && maxFactor > minFactor {
			s.params.MinFactor = minFactor
			s.params.MaxFactor = maxFactor
		}
	}
}

// WithMinBabyFeedback sets how many feedback events a baby needs before
// its own pool is trusted over the global one.
func WithMinBabyFeedback(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.minBabyFeedback = n
		}
	}
}

// WithDefaults sets the threshold defaults that seed new pools and anchor
// the clamp band.
func WithDefaults(t model.Thresholds) Option {
	return func(s *Store) {
		s.params.Defaults = t
	}
}

// NewStore creates a weight store with configuration options.
func NewStore(opts ...Option) *Store {
	s := &Store{
		babies: make(map[string]*entry),
		params: Params{
			DecayRate: defaultDecayRate,
			MinFactor: defaultMinClampFactor,
			MaxFactor: defaultMaxClampFactor,
			Defaults:  model.DefaultThresholds(),
		},
		minBabyFeedback: defaultMinBabyFeedback,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.global = &entry{w: NewWeights(s.params.Defaults)}
	return s
}

// ThresholdsFor returns the thresholds to score babyID with: the baby's
// own pool once it has enough feedback, the global pool otherwise.
func (s *Store) ThresholdsFor(_ context.Context, babyID string) model.Thresholds {
	s.mu.RLock()
	e := s.babies[babyID]
	s.mu.RUnlock()

	if e != nil {
		e.mu.RLock()
		w := e.w
		e.mu.RUnlock()
		if w.FeedbackCount >= s.minBabyFeedback {
			return w.Thresholds
		}
	}

	s.global.mu.RLock()
	defer s.global.mu.RUnlock()
	return s.global.w.Thresholds
}

// Record validates and folds one feedback record into both the baby's
// pool and the global pool, returning an adjustment summary for logging.
// De-duplication of replayed feedback ids is the caller's responsibility.
func (s *Store) Record(_ context.Context, fb FeedbackRecord) (Adjustment, error) {
	if _, err := model.ParseCause(string(fb.Actual)); err != nil {
		return Adjustment{}, WrapKind("adaptive.record", ErrUnknownCause, err)
	}
	if _, err := model.ParseCause(string(fb.Predicted)); err != nil {
		return Adjustment{}, WrapKind("adaptive.record", ErrUnknownCause, err)
	}

	be := s.babyEntry(fb.BabyID)

	be.mu.Lock()
	old := thresholdOf(be.w.Thresholds, fb.Actual)
	be.w = Apply(be.w, fb, s.params)
	updated := be.w
	be.mu.Unlock()

	s.global.mu.Lock()
	s.global.w = Apply(s.global.w, fb, s.params)
	s.global.mu.Unlock()

	return Adjustment{
		BabyID:        fb.BabyID,
		Actual:        fb.Actual,
		Predicted:     fb.Predicted,
		Correct:       fb.Predicted == fb.Actual,
		OldThreshold:  old,
		NewThreshold:  thresholdOf(updated.Thresholds, fb.Actual),
		BabyFeedback:  updated.FeedbackCount,
		UsingBabyPool: updated.FeedbackCount >= s.minBabyFeedback,
	}, nil
}

// Confusion returns a copy of the confusion counts for babyID, or the
// global pool's when babyID is empty.
func (s *Store) Confusion(_ context.Context, babyID string) map[model.Cause]map[model.Cause]int {
	e := s.global
	if babyID != "" {
		s.mu.RLock()
		if be, ok := s.babies[babyID]; ok {
			e = be
		}
		s.mu.RUnlock()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneConfusion(e.w.Confusion)
}

// FeedbackCount returns the number of feedback events recorded for babyID.
func (s *Store) FeedbackCount(_ context.Context, babyID string) int {
	s.mu.RLock()
	e := s.babies[babyID]
	s.mu.RUnlock()
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.w.FeedbackCount
}

func (s *Store) babyEntry(babyID string) *entry {
	s.mu.RLock()
	e := s.babies[babyID]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.babies[babyID]; e == nil {
		e = &entry{w: NewWeights(s.params.Defaults)}
		s.babies[babyID] = e
	}
	return e
}

func thresholdOf(t model.Thresholds, cause model.Cause) float64 {
	switch cause {
	case model.CauseHungry:
		return t.FeedingIntervalHours
	case model.CauseDiaper:
		return t.DiaperIntervalHours
	case model.CauseTired:
		return t.TirednessWakeWindowHours
	case model.CauseAttention:
		return t.AttentionWindowMinutes
	default:
		return 0
	}
}
