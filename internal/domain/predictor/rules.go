package predictor

import (
	"math"

	"github.com/mirelk/cribsense/internal/domain/feature"
	"github.com/mirelk/cribsense/internal/domain/model"
)

// Feature keys referenced by the rule table and reported in factors.
const (
	featSinceFeeding = "since_feeding"
	featSinceDiaper  = "since_diaper"
	featSinceWake    = "since_wake"
	featSinceCryEnd  = "since_cry_end"
)

// Raw score shaping constants. The ramps are steeper past the threshold so
// an overdue need quickly dominates causes that were recently addressed.
const (
	minutesPerHour = 60

	hungerOverdueSlope  = 70
	hungerRecentSlope   = 40
	hungerCeiling       = 100
	diaperOverdueSlope  = 70
	diaperRecentSlope   = 30
	diaperCeiling       = 90
	tiredOverdueSlope   = 65
	tiredRecentSlope    = 50
	tiredFloor          = 10
	tiredCeiling        = 85
	attentionRecencyMax = 55
	attentionCryWeight  = 8
	attentionCryCap     = 5

	// A cause scoring at or above this level counts as an alternative
	// explanation and dampens the attention score.
	elevationLevel  = 50
	attentionDamper = 0.5
)

// rule binds a cause to the feature it scores on. Rules are iterated
// uniformly; a rule whose feature is unknown contributes nothing.
type rule struct {
	cause     model.Cause
	feature   string
	awakeOnly bool
	// score maps (hours since the feature's event, threshold in hours,
	// full vector) to a raw score on a 0-100 scale.
	score func(hours, threshold float64, v feature.Vector) float64
}

func ruleTable() []rule {
	return []rule{
		{cause: model.CauseHungry, feature: featSinceFeeding, awakeOnly: true, score: hungerRamp},
		{cause: model.CauseDiaper, feature: featSinceDiaper, score: diaperRamp},
		{cause: model.CauseTired, feature: featSinceWake, awakeOnly: true, score: tirednessRamp},
		{cause: model.CauseAttention, feature: featSinceCryEnd, awakeOnly: true, score: attentionScore},
	}
}

// sampleFor resolves a rule's feature key against the vector.
func sampleFor(v feature.Vector, key string) feature.Sample {
	switch key {
	case featSinceFeeding:
		return v.SinceFeeding
	case featSinceDiaper:
		return v.SinceDiaper
	case featSinceWake:
		return v.SinceWake
	case featSinceCryEnd:
		return v.SinceCryEnd
	default:
		return feature.Sample{}
	}
}

// thresholdFor resolves a rule's feature key against the thresholds,
// normalized to hours.
func thresholdFor(t model.Thresholds, key string) float64 {
	switch key {
	case featSinceFeeding:
		return t.FeedingIntervalHours
	case featSinceDiaper:
		return t.DiaperIntervalHours
	case featSinceWake:
		return t.TirednessWakeWindowHours
	case featSinceCryEnd:
		return t.AttentionWindowMinutes / minutesPerHour
	default:
		return 0
	}
}

func hungerRamp(hours, threshold float64, _ feature.Vector) float64 {
	r := hours / threshold
	if r > 1 {
		return math.Min(hungerCeiling, r*hungerOverdueSlope)
	}
	return r * hungerRecentSlope
}

func diaperRamp(hours, threshold float64, _ feature.Vector) float64 {
	r := hours / threshold
	if r > 1 {
		return math.Min(diaperCeiling, r*diaperOverdueSlope)
	}
	return r * diaperRecentSlope
}

func tirednessRamp(hours, threshold float64, _ feature.Vector) float64 {
	r := hours / threshold
	if r > 1 {
		return math.Min(tiredCeiling, r*tiredOverdueSlope)
	}
	return math.Max(tiredFloor, r*tiredRecentSlope)
}

// attentionScore rises the more recently a crying episode resolved and the
// more episodes clustered in the count window: a baby that keeps settling
// and crying again likely wants comfort rather than food or a change.
func attentionScore(hours, threshold float64, v feature.Vector) float64 {
	recency := 1 - hours/threshold
	if recency < 0 {
		recency = 0
	}
	if recency > 1 {
		recency = 1
	}
	cries := v.CryCount
	if cries > attentionCryCap {
		cries = attentionCryCap
	}
	return recency*attentionRecencyMax + float64(cries)*attentionCryWeight
}
