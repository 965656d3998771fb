// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mirelk/cribsense/internal/adapters/repository"
	"github.com/mirelk/cribsense/internal/domain/adaptive"
	"github.com/mirelk/cribsense/internal/domain/dedupe"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/internal/domain/predictor"
)

// Dependencies bundles what the HTTP handlers need from the application
// layer. Using an interface bundle keeps the handler layer loosely coupled
// to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async ingestion. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, e model.Event) bool

	// Predict ranks crying causes for a baby as of the given time.
	Predict(ctx context.Context, babyID string, at time.Time) (predictor.Prediction, error)

	// RecordFeedback folds one feedback record into the adaptive weights.
	// The duplicate flag is true when the feedback id was already seen.
	RecordFeedback(ctx context.Context, fb adaptive.FeedbackRecord) (adaptive.Adjustment, bool, error)

	// Summary reports a baby's daily stats and schedule as of the given time.
	Summary(ctx context.Context, babyID string, at time.Time) (repository.DailyStats, repository.Schedule, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	predictHandler  *PredictHandler
	feedbackHandler *FeedbackHandler
	summaryHandler  *SummaryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		predictHandler:  NewPredictHandler(deps),
		feedbackHandler: NewFeedbackHandler(deps),
		summaryHandler:  NewSummaryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/predict/", MetricsMiddleware(s.predictHandler.HandleGetPrediction, "predict"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("/babies/", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseAt parses an optional RFC3339 "at" query value, defaulting to now.
func parseAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid at; must be RFC3339")
	}
	return at, nil
}
