// Package model contains domain models passed between layers.
package model

import "time"

// EventType identifies the kind of childcare event.
type EventType string

// Known event types.
const (
	EventFeeding EventType = "feeding"
	EventSleep   EventType = "sleep"
	EventDiaper  EventType = "diaper"
	EventCrying  EventType = "crying"
)

// FeedingType identifies how a feeding happened.
type FeedingType string

// Known feeding types.
const (
	FeedingBreast FeedingType = "breast"
	FeedingBottle FeedingType = "bottle"
	FeedingSolid  FeedingType = "solid"
)

// DiaperType identifies the kind of diaper change.
type DiaperType string

// Known diaper types.
const (
	DiaperWet   DiaperType = "wet"
	DiaperDirty DiaperType = "dirty"
	DiaperBoth  DiaperType = "both"
)

// Event represents a single childcare event submitted by clients.
// End is the zero time while the event is still ongoing (an open sleep
// or crying session); point-in-time events like diaper changes carry
// only Start.
type Event struct {
	EventID     string      // unique id for idempotency
	BabyID      string      // subject identifier
	Type        EventType   // feeding, sleep, diaper, crying
	Start       time.Time   // when the event began
	End         time.Time   // when it ended; zero while ongoing
	FeedingType FeedingType // set for feeding events
	DiaperType  DiaperType  // set for diaper events
	Amount      float64     // ml for bottle feedings, 0 otherwise
	Notes       string
}

// Ongoing reports whether the event has no recorded end yet.
func (e Event) Ongoing() bool {
	return e.End.IsZero()
}

// ValidType reports whether t is one of the known event types.
func ValidType(t EventType) bool {
	switch t {
	case EventFeeding, EventSleep, EventDiaper, EventCrying:
		return true
	default:
		return false
	}
}
