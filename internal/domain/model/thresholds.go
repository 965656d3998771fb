package model

import "errors"

// Thresholds holds the per-cause timing thresholds used by the scorer.
// Values are tunable per deployment and nudged per baby by feedback.
type Thresholds struct {
	FeedingIntervalHours     float64 `koanf:"feeding_interval_hours"`
	DiaperIntervalHours      float64 `koanf:"diaper_interval_hours"`
	AttentionWindowMinutes   float64 `koanf:"attention_window_minutes"`
	TirednessWakeWindowHours float64 `koanf:"tiredness_wake_window_hours"`
}

// DefaultThresholds returns clinically-reasonable starting values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FeedingIntervalHours:     2.5,
		DiaperIntervalHours:      2.0,
		AttentionWindowMinutes:   30,
		TirednessWakeWindowHours: 1.5,
	}
}

// Validate rejects non-positive thresholds. Called at configuration load;
// a failure here is fatal to startup, not deferred to the first call.
func (t Thresholds) Validate() error {
	if t.FeedingIntervalHours <= 0 {
		return errors.New("feeding_interval_hours must be positive")
	}
	if t.DiaperIntervalHours <= 0 {
		return errors.New("diaper_interval_hours must be positive")
	}
	if t.AttentionWindowMinutes <= 0 {
		return errors.New("attention_window_minutes must be positive")
	}
	if t.TirednessWakeWindowHours <= 0 {
		return errors.New("tiredness_wake_window_hours must be positive")
	}
	return nil
}
