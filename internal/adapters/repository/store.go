// Package repository defines the recent-event store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/mirelk/cribsense/internal/domain/model"
)

// Store provides the read path for recent events per baby plus the write
// path the ingestion workers use. It is deliberately windowed: old events
// age out, this is not durable storage.
type Store interface {
	// Append records an event, replacing any previous event with the same
	// EventID (so a session can be closed by resubmitting it with an end
	// time).
	Append(ctx context.Context, ev model.Event) error

	// Window returns babyID's events with Start in [since, until], ordered
	// by Start ascending. Returns ErrInvalidWindow when until precedes
	// since. An unknown baby yields an empty window, not an error.
	Window(ctx context.Context, babyID string, since, until time.Time) ([]model.Event, error)

	// Babies returns the number of babies with at least one stored event.
	Babies(ctx context.Context) int

	// Events returns the total number of stored events.
	Events(ctx context.Context) int
}
