package simulate

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/mirelk/cribsense/pkg/logger"
)

// Daily rhythm constants. A simulated day alternates feed, change, play
// and nap blocks, with crying planted before the need is met.
const (
	feedIntervalBase   = 3 * time.Hour
	feedJitter         = 40 * time.Minute
	feedDuration       = 20 * time.Minute
	napInterval        = 4 * time.Hour
	napDuration        = 90 * time.Minute
	diaperLag          = 30 * time.Minute
	cryBeforeNeed      = 25 * time.Minute
	cryDuration        = 10 * time.Minute
	bottleAmountMinML  = 60
	bottleAmountSpanML = 120
	randomDivisor      = 1_000_000
)

func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / float64(randomDivisor)
}

func jitter(span time.Duration) time.Duration {
	return time.Duration((randomFloat() - 0.5) * 2 * float64(span))
}

// GenerateDay produces one baby's events for the day ending at end,
// returning the events plus the crying episodes with their planted causes.
func GenerateDay(babyID string, end time.Time) ([]Event, []CryEpisode) {
	var events []Event
	var cries []CryEpisode
	start := end.Add(-24 * time.Hour)

	// Feeding cycle with hunger crying shortly before each feed.
	for t := start; t.Before(end); t = t.Add(feedIntervalBase + jitter(feedJitter)) {
		cryAt := t.Add(-cryBeforeNeed)
		if cryAt.After(start) {
			events = append(events, timedEvent(babyID, "crying", cryAt, cryAt.Add(cryDuration)))
			cries = append(cries, CryEpisode{BabyID: babyID, At: cryAt.Add(cryDuration / 2), Cause: "hungry"})
		}

		feed := timedEvent(babyID, "feeding", t, t.Add(feedDuration))
		if randomFloat() < 0.5 {
			feed.FeedingType = "bottle"
			feed.AmountML = bottleAmountMinML + randomFloat()*bottleAmountSpanML
		} else {
			feed.FeedingType = "breast"
		}
		events = append(events, feed)

		// Diaper change trails the feeding.
		diaper := timedEvent(babyID, "diaper", t.Add(diaperLag), time.Time{})
		switch {
		case randomFloat() < 0.2:
			diaper.DiaperType = "both"
		case randomFloat() < 0.5:
			diaper.DiaperType = "dirty"
		default:
			diaper.DiaperType = "wet"
		}
		events = append(events, diaper)
	}

	// Nap cycle with tired crying before each nap.
	for t := start.Add(time.Hour); t.Before(end); t = t.Add(napInterval + jitter(feedJitter)) {
		cryAt := t.Add(-cryBeforeNeed / 2)
		events = append(events, timedEvent(babyID, "crying", cryAt, cryAt.Add(cryDuration)))
		cries = append(cries, CryEpisode{BabyID: babyID, At: cryAt.Add(cryDuration / 2), Cause: "tired"})
		events = append(events, timedEvent(babyID, "sleep", t, t.Add(napDuration)))
	}

	return events, cries
}

func timedEvent(babyID, kind string, start, end time.Time) Event {
	ev := Event{
		EventID: uuid.NewString(),
		BabyID:  babyID,
		Type:    kind,
		Start:   start.UTC().Format(time.RFC3339),
	}
	if !end.IsZero() {
		ev.End = end.UTC().Format(time.RFC3339)
	}
	return ev
}

// generateAll builds the full event set for the configured babies and days.
func generateAll(ctx context.Context, cfg *Config, stats *Stats) ([]Event, []CryEpisode) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "generating baby days",
		logger.Int("babies", cfg.Babies),
		logger.Int("days", cfg.Days),
	)

	var events []Event
	var cries []CryEpisode
	now := time.Now().UTC()

	for i := 0; i < cfg.Babies; i++ {
		babyID := "baby-" + uuid.NewString()[:8]
		for d := 0; d < cfg.Days; d++ {
			end := now.Add(-time.Duration(d) * 24 * time.Hour)
			evs, eps := GenerateDay(babyID, end)
			events = append(events, evs...)
			cries = append(cries, eps...)
		}
	}

	stats.EventsGenerated = len(events)
	return events, cries
}
