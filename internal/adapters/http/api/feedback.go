// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mirelk/cribsense/internal/domain/adaptive"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/pkg/metrics"
)

// FeedbackDependencies defines what the feedback handler needs.
type FeedbackDependencies interface {
	RecordFeedback(ctx context.Context, fb adaptive.FeedbackRecord) (adaptive.Adjustment, bool, error)
}

// FeedbackHandler folds caregiver feedback into the adaptive weights.
type FeedbackHandler struct {
	deps FeedbackDependencies
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps FeedbackDependencies) *FeedbackHandler {
	return &FeedbackHandler{deps: deps}
}

// feedbackRequest mirrors the JSON schema for POST /feedback.
type feedbackRequest struct {
	FeedbackID     string `json:"feedback_id"`
	BabyID         string `json:"baby_id"`
	PredictedCause string `json:"predicted_cause"`
	ActualCause    string `json:"actual_cause"`
	At             string `json:"at,omitempty"`
}

func (f feedbackRequest) validate() error {
	switch {
	case strings.TrimSpace(f.FeedbackID) == "":
		return errors.New("missing feedback_id")
	case strings.TrimSpace(f.BabyID) == "":
		return errors.New("missing baby_id")
	case strings.TrimSpace(f.PredictedCause) == "":
		return errors.New("missing predicted_cause")
	case strings.TrimSpace(f.ActualCause) == "":
		return errors.New("missing actual_cause")
	}
	if f.At != "" {
		if _, err := time.Parse(time.RFC3339, f.At); err != nil {
			return errors.New("invalid at; must be RFC3339")
		}
	}
	return nil
}

type feedbackResponse struct {
	Status        string  `json:"status"`
	Duplicate     bool    `json:"duplicate"`
	Correct       bool    `json:"correct"`
	OldThreshold  float64 `json:"old_threshold,omitempty"`
	NewThreshold  float64 `json:"new_threshold,omitempty"`
	BabyFeedback  int     `json:"baby_feedback_count"`
	UsingBabyPool bool    `json:"using_baby_pool"`
}

// HandlePostFeedback handles POST /feedback requests.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	at := time.Now().UTC()
	if req.At != "" {
		at, _ = time.Parse(time.RFC3339, req.At)
	}
	fb := adaptive.FeedbackRecord{
		FeedbackID: req.FeedbackID,
		BabyID:     req.BabyID,
		Predicted:  model.Cause(req.PredictedCause),
		Actual:     model.Cause(req.ActualCause),
		At:         at,
	}

	adj, duplicate, err := h.deps.RecordFeedback(r.Context(), fb)
	if err != nil {
		if errors.Is(err, adaptive.ErrUnknownCause) {
			writeError(w, http.StatusBadRequest, "unknown_cause", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, feedbackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	metrics.RecordFeedback(adj.Correct)
	writeJSON(w, http.StatusOK, feedbackResponse{
		Status:        "recorded",
		Correct:       adj.Correct,
		OldThreshold:  adj.OldThreshold,
		NewThreshold:  adj.NewThreshold,
		BabyFeedback:  adj.BabyFeedback,
		UsingBabyPool: adj.UsingBabyPool,
	})
}
