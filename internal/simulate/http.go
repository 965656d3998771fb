package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mirelk/cribsense/pkg/logger"
)

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(cfg *Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil {
		_ = json.Unmarshal(raw, out)
	}
	return resp.StatusCode, nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil {
		_ = json.Unmarshal(raw, out)
	}
	return resp.StatusCode, nil
}

// checkHealth verifies the service is reachable before the run.
func checkHealth(ctx context.Context, c *client) error {
	status, err := c.getJSON(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", status)
	}
	return nil
}

// submitEvents posts events concurrently.
func submitEvents(ctx context.Context, cfg *Config, c *client, events []Event, stats *Stats) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "submitting events",
		logger.Int("events", len(events)),
		logger.Int("workers", cfg.Workers),
	)

	var submitted, duplicate, failed int64
	jobs := make(chan Event)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				var ack AckResponse
				status, err := c.postJSON(ctx, "/events", ev, &ack)
				switch {
				case err != nil || status >= http.StatusBadRequest:
					atomic.AddInt64(&failed, 1)
				case ack.Duplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&submitted, 1)
				}
			}
		}()
	}

	for _, ev := range events {
		select {
		case jobs <- ev:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	stats.EventsSubmitted = int(submitted)
	stats.EventsDuplicate = int(duplicate)
	stats.EventsFailed = int(failed)
}

// queryPredictions asks for a prediction at each planted crying episode
// and optionally posts feedback with the ground-truth cause.
func queryPredictions(ctx context.Context, cfg *Config, c *client, cries []CryEpisode, stats *Stats) {
	log := logger.Get().Named("simulate")

	for _, ep := range cries {
		path := fmt.Sprintf("/predict/%s?at=%s", ep.BabyID, url.QueryEscape(ep.At.UTC().Format(time.RFC3339)))
		var pred Prediction
		status, err := c.getJSON(ctx, path, &pred)
		if err != nil || status != http.StatusOK {
			continue
		}
		stats.Predictions++
		if pred.Cause == ep.Cause {
			stats.PredictionsRight++
		}
		if cfg.Verbose {
			log.Info(ctx, "prediction",
				logger.String("baby_id", ep.BabyID),
				logger.String("predicted", pred.Cause),
				logger.String("planted", ep.Cause),
				logger.Float64("confidence", pred.Confidence),
			)
		}

		if cfg.Feedback {
			fb := map[string]string{
				"feedback_id":     uuid.NewString(),
				"baby_id":         ep.BabyID,
				"predicted_cause": pred.Cause,
				"actual_cause":    ep.Cause,
				"at":              ep.At.UTC().Format(time.RFC3339),
			}
			if status, err := c.postJSON(ctx, "/feedback", fb, nil); err == nil && status == http.StatusOK {
				stats.FeedbackPosted++
			}
		}
	}
}
