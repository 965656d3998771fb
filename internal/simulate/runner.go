package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/mirelk/cribsense/pkg/logger"
)

// How long to let the ingestion pipeline drain before querying.
const ingestSettleDelay = 2 * time.Second

// Run executes one full simulation: generate days of baby events, submit
// them, then query predictions at the planted crying episodes.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting cribsense simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("babies", cfg.Babies),
		logger.Int("days", cfg.Days),
		logger.Bool("feedback", cfg.Feedback),
	)

	c := newClient(cfg)
	if err := checkHealth(ctx, c); err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}

	events, cries := generateAll(ctx, cfg, stats)

	submitEvents(ctx, cfg, c, events, stats)

	log.Info(ctx, "waiting for ingestion to settle")
	select {
	case <-time.After(ingestSettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	queryPredictions(ctx, cfg, c, cries, stats)

	stats.Duration = time.Since(stats.StartTime)
	accuracy := 0.0
	if stats.Predictions > 0 {
		accuracy = float64(stats.PredictionsRight) / float64(stats.Predictions)
	}
	log.Info(ctx, "simulation finished",
		logger.Int("events_generated", stats.EventsGenerated),
		logger.Int("events_submitted", stats.EventsSubmitted),
		logger.Int("events_duplicate", stats.EventsDuplicate),
		logger.Int("events_failed", stats.EventsFailed),
		logger.Int("predictions", stats.Predictions),
		logger.Int("predictions_right", stats.PredictionsRight),
		logger.Float64("accuracy", accuracy),
		logger.Int("feedback_posted", stats.FeedbackPosted),
		logger.Duration("duration", stats.Duration),
	)

	if stats.EventsFailed > 0 {
		return fmt.Errorf("%d event submissions failed", stats.EventsFailed)
	}
	return nil
}
