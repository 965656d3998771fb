// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mirelk/cribsense/internal/domain/dedupe"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/pkg/metrics"
)

// EventDependencies defines what the events handler needs.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.Event) bool
}

// EventsHandler handles event submissions.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the JSON schema for POST /events.
type eventRequest struct {
	EventID     string  `json:"event_id"`
	BabyID      string  `json:"baby_id"`
	Type        string  `json:"type"`
	Start       string  `json:"start"`
	End         string  `json:"end,omitempty"`
	FeedingType string  `json:"feeding_type,omitempty"`
	DiaperType  string  `json:"diaper_type,omitempty"`
	AmountML    float64 `json:"amount_ml,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.BabyID) == "":
		return errors.New("missing baby_id")
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	case strings.TrimSpace(e.Start) == "":
		return errors.New("missing start")
	}
	if !model.ValidType(model.EventType(e.Type)) {
		return errors.New("unknown event type: " + e.Type)
	}
	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return errors.New("invalid start; must be RFC3339")
	}
	if e.End != "" {
		end, err := time.Parse(time.RFC3339, e.End)
		if err != nil {
			return errors.New("invalid end; must be RFC3339")
		}
		if end.Before(start) {
			return errors.New("end precedes start")
		}
	}
	if e.AmountML < 0 {
		return errors.New("amount_ml must not be negative")
	}
	return nil
}

// toModel converts a validated request into the domain event.
func (e eventRequest) toModel() model.Event {
	start, _ := time.Parse(time.RFC3339, e.Start)
	var end time.Time
	if e.End != "" {
		end, _ = time.Parse(time.RFC3339, e.End)
	}
	return model.Event{
		EventID:     e.EventID,
		BabyID:      e.BabyID,
		Type:        model.EventType(e.Type),
		Start:       start,
		End:         end,
		FeedingType: model.FeedingType(e.FeedingType),
		DiaperType:  model.DiaperType(e.DiaperType),
		Amount:      e.AmountML,
		Notes:       e.Notes,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		metrics.RecordEventRejected()
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check before enqueueing. The key includes the end time so
	// that resubmitting an open session with its end set is an update, not
	// a replay; the store then upserts by event id.
	key := req.EventID + "@" + req.End
	if h.deps.SeenAndRecord(r.Context(), key) {
		metrics.RecordEventDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), req.toModel()); !ok {
		// Roll back the seen mark so a retry is not treated as a duplicate.
		h.deps.Unrecord(r.Context(), key)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
