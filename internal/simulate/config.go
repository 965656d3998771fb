package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Babies   int           // Number of babies to simulate
	Days     int           // Number of days of history per baby
	Workers  int           // Number of concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	Feedback bool          // Post feedback with the planted causes
	Verbose  bool          // Enable verbose logging
}

// Event mirrors the POST /events JSON schema.
type Event struct {
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

// CryEpisode pairs a generated crying event with the cause the generator
// planted, so predictions can be checked against ground truth.
type CryEpisode struct {
	BabyID string
	At     time.Time
	Cause  string
}

// AckResponse mirrors the event submission response.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Prediction mirrors the GET /predict response.
type Prediction struct {
	PredictionID string  `json:"prediction_id"`
	Cause        string  `json:"cause"`
	Confidence   float64 `json:"confidence"`
	Resolved     bool    `json:"resolved"`
}

// Stats holds simulation statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsDuplicate  int
	EventsFailed     int
	Predictions      int
	PredictionsRight int
	FeedbackPosted   int
	StartTime        time.Time
	Duration         time.Duration
}
