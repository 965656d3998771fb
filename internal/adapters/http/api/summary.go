// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mirelk/cribsense/internal/adapters/repository"
)

// SummaryDependencies defines what the summary handler needs.
type SummaryDependencies interface {
	Summary(ctx context.Context, babyID string, at time.Time) (repository.DailyStats, repository.Schedule, error)
}

// SummaryHandler reports a baby's daily stats and typical schedule.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

type summaryResponse struct {
	BabyID   string                `json:"baby_id"`
	At       time.Time             `json:"at"`
	Today    repository.DailyStats `json:"today"`
	Schedule repository.Schedule   `json:"schedule"`
}

// HandleGetSummary handles GET /babies/{baby_id}/summary?at=RFC3339 requests.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/babies/")
	babyID, rest, found := strings.Cut(path, "/")
	if !found || babyID == "" || rest != "summary" {
		http.NotFound(w, r)
		return
	}
	at, err := parseAt(r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	stats, schedule, err := h.deps.Summary(r.Context(), babyID, at)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		BabyID:   babyID,
		At:       at,
		Today:    stats,
		Schedule: schedule,
	})
}
