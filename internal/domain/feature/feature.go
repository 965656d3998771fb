// Package feature derives scoring features from a baby's recent event window.
package feature

import (
	"fmt"
	"time"

	"github.com/mirelk/cribsense/internal/domain/model"
)

// Default extraction configuration constants.
const (
	defaultCryCountWindow = 3 * time.Hour
)

// Sample is a time-delta feature. Known is false when no qualifying event
// exists in the window; unknown samples are excluded from scoring rather
// than defaulted to zero.
type Sample struct {
	Hours float64
	Known bool
}

// Vector holds the features extracted for one prediction query.
type Vector struct {
	BabyID       string
	At           time.Time
	SinceFeeding Sample // hours since last feeding ended (or started if open)
	SinceDiaper  Sample // hours since last diaper change
	SinceWake    Sample // hours awake; unknown while asleep
	SinceCryEnd  Sample // hours since last crying episode resolved
	Asleep       bool   // an open sleep session covers At
	CryCount     int    // crying episodes started within the count window
	HourOfDay    int
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithCryCountWindow sets the lookback used for the crying-episode count.
func WithCryCountWindow(w time.Duration) Option {
	return func(e *Extractor) {
		if w > 0 {
			e.cryCountWindow = w
		}
	}
}

// Extractor computes feature vectors from caller-supplied event windows.
// It performs no I/O; the window is fetched by the collaborator.
type Extractor struct {
	cryCountWindow time.Duration
}

// NewExtractor creates an extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		cryCountWindow: defaultCryCountWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces a Vector for babyID as of the reference time at.
// Events belonging to other babies or starting after at are ignored.
// A reference time earlier than every supplied event is a caller error.
func (e *Extractor) Extract(babyID string, at time.Time, events []model.Event) (Vector, error) {
	v := Vector{
		BabyID:    babyID,
		At:        at,
		HourOfDay: at.Hour(),
	}

	relevant := 0
	earliest := time.Time{}
	var lastFeeding, lastDiaper, lastCryEnd time.Time
	var lastSleepStart, lastSleepEnd time.Time
	cryCountSince := at.Add(-e.cryCountWindow)
	sleepOngoing := false

	for _, ev := range events {
		if ev.BabyID != babyID {
			continue
		}
		relevant++
		if earliest.IsZero() || ev.Start.Before(earliest) {
			earliest = ev.Start
		}
		if ev.Start.After(at) {
			continue
		}

		switch ev.Type {
		case model.EventFeeding:
			if t := effectiveTime(ev, at); t.After(lastFeeding) {
				lastFeeding = t
			}
		case model.EventDiaper:
			if ev.Start.After(lastDiaper) {
				lastDiaper = ev.Start
			}
		case model.EventSleep:
			if ev.Start.After(lastSleepStart) {
				lastSleepStart = ev.Start
				if ev.Ongoing() || ev.End.After(at) {
					sleepOngoing = true
					lastSleepEnd = time.Time{}
				} else {
					sleepOngoing = false
					lastSleepEnd = ev.End
				}
			}
		case model.EventCrying:
			if !ev.Ongoing() && !ev.End.After(at) && ev.End.After(lastCryEnd) {
				lastCryEnd = ev.End
			}
			if ev.Start.After(cryCountSince) {
				v.CryCount++
			}
		}
	}

	if relevant > 0 && at.Before(earliest) {
		return Vector{}, fmt.Errorf("reference time %s precedes the supplied event window", at.Format(time.RFC3339))
	}

	if !lastFeeding.IsZero() {
		v.SinceFeeding = sampleSince(lastFeeding, at)
	}
	if !lastDiaper.IsZero() {
		v.SinceDiaper = sampleSince(lastDiaper, at)
	}
	if sleepOngoing {
		v.Asleep = true
	} else if !lastSleepEnd.IsZero() {
		v.SinceWake = sampleSince(lastSleepEnd, at)
	}
	if !lastCryEnd.IsZero() {
		v.SinceCryEnd = sampleSince(lastCryEnd, at)
	}

	return v, nil
}

// effectiveTime picks the event's end time, falling back to its start
// while the event is still open or ends past the reference time.
func effectiveTime(ev model.Event, at time.Time) time.Time {
	if ev.Ongoing() || ev.End.After(at) {
		return ev.Start
	}
	return ev.End
}

func sampleSince(t, at time.Time) Sample {
	h := at.Sub(t).Hours()
	if h < 0 {
		h = 0
	}
	return Sample{Hours: h, Known: true}
}
