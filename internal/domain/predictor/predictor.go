// Package predictor scores candidate crying causes from a feature vector.
package predictor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mirelk/cribsense/internal/domain/feature"
	"github.com/mirelk/cribsense/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultTieEpsilon = 0.05
)

// Factor reports one cause's contribution to a prediction, ordered by
// normalized weight descending.
type Factor struct {
	Cause   model.Cause
	Feature string
	Weight  float64 // normalized confidence share
	Raw     float64 // raw 0-100 score before normalization
}

// Prediction is the terminal outcome of a query. Confidence 0 with
// CauseUnknown signals insufficient data; it is never an error.
type Prediction struct {
	ID         string
	BabyID     string
	At         time.Time
	Cause      model.Cause
	Confidence float64
	Factors    []Factor
	Vector     feature.Vector
}

// Resolved reports whether the query produced a usable cause.
func (p Prediction) Resolved() bool {
	return p.Cause != model.CauseUnknown && p.Confidence > 0
}

// WeightSource supplies per-baby thresholds, falling back to a shared pool
// when a baby lacks feedback history.
type WeightSource interface {
	ThresholdsFor(ctx context.Context, babyID string) model.Thresholds
}

// staticSource serves one fixed threshold set for every baby.
type staticSource struct {
	thresholds model.Thresholds
}

func (s staticSource) ThresholdsFor(context.Context, string) model.Thresholds {
	return s.thresholds
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithWeightSource sets the adaptive threshold source.
func WithWeightSource(src WeightSource) Option {
	return func(p *Predictor) {
		if src != nil {
			p.weights = src
		}
	}
}

// WithTieEpsilon sets the confidence margin below which two causes tie.
func WithTieEpsilon(eps float64) Option {
	return func(p *Predictor) {
		if eps > 0 {
			p.tieEpsilon = eps
		}
	}
}

// WithExtractor sets a custom feature extractor.
func WithExtractor(e *feature.Extractor) Option {
	return func(p *Predictor) {
		if e != nil {
			p.extractor = e
		}
	}
}

// Predictor turns a recent-event window into a ranked cause prediction.
// Scoring is pure per call; all shared state lives in the WeightSource.
type Predictor struct {
	extractor  *feature.Extractor
	weights    WeightSource
	rules      []rule
	tieEpsilon float64
}

// New creates a Predictor with configuration options.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		extractor:  feature.NewExtractor(),
		weights:    staticSource{thresholds: model.DefaultThresholds()},
		rules:      ruleTable(),
		tieEpsilon: defaultTieEpsilon,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Score computes the unordered raw (cause, score) set for a vector against
// a threshold set. Rules whose feature is unknown are skipped; wake-based
// rules are suppressed while the baby is asleep.
func (p *Predictor) Score(v feature.Vector, th model.Thresholds) []Factor {
	factors := make([]Factor, 0, len(p.rules))
	for _, r := range p.rules {
		if r.awakeOnly && v.Asleep {
			continue
		}
		s := sampleFor(v, r.feature)
		if !s.Known {
			continue
		}
		threshold := thresholdFor(th, r.feature)
		if threshold <= 0 {
			continue
		}
		factors = append(factors, Factor{
			Cause:   r.cause,
			Feature: r.feature,
			Raw:     r.score(s.Hours, threshold, v),
		})
	}
	dampAttention(factors)
	return factors
}

// dampAttention halves the attention score when another cause already
// offers an elevated explanation for the crying.
func dampAttention(factors []Factor) {
	elevated := false
	for _, f := range factors {
		if f.Cause != model.CauseAttention && f.Raw >= elevationLevel {
			elevated = true
			break
		}
	}
	if !elevated {
		return
	}
	for i := range factors {
		if factors[i].Cause == model.CauseAttention {
			factors[i].Raw *= attentionDamper
		}
	}
}

// Predict extracts features for babyID as of at from the supplied window
// and returns a ranked prediction. It fails only on malformed input; an
// empty or uninformative window yields the Unresolved outcome.
func (p *Predictor) Predict(ctx context.Context, babyID string, at time.Time, events []model.Event) (Prediction, error) {
	v, err := p.extractor.Extract(babyID, at, events)
	if err != nil {
		return Prediction{}, WrapKind("predictor.predict", ErrInvalidInput, err)
	}

	out := Prediction{
		ID:     uuid.NewString(),
		BabyID: babyID,
		At:     at,
		Cause:  model.CauseUnknown,
		Vector: v,
	}

	factors := p.Score(v, p.weights.ThresholdsFor(ctx, babyID))
	var sum float64
	for _, f := range factors {
		sum += f.Raw
	}
	if sum <= 0 {
		return out, nil
	}

	for i := range factors {
		factors[i].Weight = factors[i].Raw / sum
	}
	sortFactors(factors)

	best := factors[0]
	// Within the tie margin, prefer the cause whose need went unaddressed
	// the longest.
	for _, f := range factors[1:] {
		if best.Weight-f.Weight >= p.tieEpsilon {
			break
		}
		if sampleFor(v, f.Feature).Hours > sampleFor(v, best.Feature).Hours {
			best = f
		}
	}

	out.Cause = best.Cause
	out.Confidence = best.Weight
	out.Factors = factors
	return out, nil
}

// sortFactors orders by weight descending, cause name ascending for
// deterministic output.
func sortFactors(factors []Factor) {
	for i := 1; i < len(factors); i++ {
		for j := i; j > 0; j-- {
			a, b := factors[j-1], factors[j]
			if b.Weight > a.Weight || (b.Weight == a.Weight && b.Cause < a.Cause) {
				factors[j-1], factors[j] = b, a
				continue
			}
			break
		}
	}
}
