// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mirelk/cribsense/internal/domain/predictor"
)

// PredictDependencies defines what the prediction handler needs.
type PredictDependencies interface {
	Predict(ctx context.Context, babyID string, at time.Time) (predictor.Prediction, error)
}

// PredictHandler handles prediction queries.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

type factorResponse struct {
	Cause      string  `json:"cause"`
	Feature    string  `json:"feature"`
	Confidence float64 `json:"confidence"`
}

type predictResponse struct {
	PredictionID string           `json:"prediction_id"`
	BabyID       string           `json:"baby_id"`
	At           time.Time        `json:"at"`
	Cause        string           `json:"cause"`
	Confidence   float64          `json:"confidence"`
	Resolved     bool             `json:"resolved"`
	Factors      []factorResponse `json:"factors,omitempty"`
	Asleep       bool             `json:"asleep"`
	CryCount     int              `json:"cry_count"`
}

// HandleGetPrediction handles GET /predict/{baby_id}?at=RFC3339 requests.
// Omitting at queries the current moment.
func (h *PredictHandler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_prediction"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	babyID := strings.TrimPrefix(r.URL.Path, "/predict/")
	if babyID == "" || strings.Contains(babyID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	at, err := parseAt(r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	pred, err := h.deps.Predict(r.Context(), babyID, at)
	if err != nil {
		if errors.Is(err, predictor.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_input", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := predictResponse{
		PredictionID: pred.ID,
		BabyID:       pred.BabyID,
		At:           pred.At,
		Cause:        string(pred.Cause),
		Confidence:   pred.Confidence,
		Resolved:     pred.Resolved(),
		Asleep:       pred.Vector.Asleep,
		CryCount:     pred.Vector.CryCount,
	}
	for _, f := range pred.Factors {
		resp.Factors = append(resp.Factors, factorResponse{
			Cause:      string(f.Cause),
			Feature:    f.Feature,
			Confidence: f.Weight,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
