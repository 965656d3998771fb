package repository

import (
	"time"

	"github.com/mirelk/cribsense/internal/domain/model"
)

// DailyStats aggregates one baby's events over a reporting period.
type DailyStats struct {
	FeedingCount   int     `json:"feeding_count"`
	BottleAmountML float64 `json:"bottle_amount_ml"`
	TotalSleepHrs  float64 `json:"total_sleep_hours"`
	DiaperCount    int     `json:"diaper_count"`
	WetDiapers     int     `json:"wet_diapers"`
	DirtyDiapers   int     `json:"dirty_diapers"`
	CryingCount    int     `json:"crying_count"`
	CryingMinutes  float64 `json:"crying_minutes"`
}

// Schedule summarizes the rhythm of a baby's recent days: the average
// spacing between events of each kind and the average nap length.
type Schedule struct {
	AvgFeedingIntervalHrs float64 `json:"avg_feeding_interval_hours"`
	AvgDiaperIntervalHrs  float64 `json:"avg_diaper_interval_hours"`
	AvgSleepIntervalHrs   float64 `json:"avg_sleep_interval_hours"`
	AvgSleepDurationHrs   float64 `json:"avg_sleep_duration_hours"`
}

// Summarize computes daily stats for a window of events as of now.
// Ongoing sleep and crying sessions count up to now.
func Summarize(events []model.Event, now time.Time) DailyStats {
	var st DailyStats
	for _, ev := range events {
		switch ev.Type {
		case model.EventFeeding:
			st.FeedingCount++
			if ev.FeedingType == model.FeedingBottle {
				st.BottleAmountML += ev.Amount
			}
		case model.EventSleep:
			st.TotalSleepHrs += openSpan(ev, now).Hours()
		case model.EventDiaper:
			st.DiaperCount++
			switch ev.DiaperType {
			case model.DiaperWet:
				st.WetDiapers++
			case model.DiaperDirty:
				st.DirtyDiapers++
			case model.DiaperBoth:
				st.WetDiapers++
				st.DirtyDiapers++
			}
		case model.EventCrying:
			st.CryingCount++
			st.CryingMinutes += openSpan(ev, now).Minutes()
		}
	}
	return st
}

// BuildSchedule derives average intervals from a window of events. Events
// must be ordered by start ascending, as returned by Store.Window.
func BuildSchedule(events []model.Event) Schedule {
	var sch Schedule
	var lastFeeding, lastDiaper, lastSleep time.Time
	var feedGaps, diaperGaps, sleepGaps, sleepDurations []float64

	for _, ev := range events {
		switch ev.Type {
		case model.EventFeeding:
			if !lastFeeding.IsZero() {
				feedGaps = append(feedGaps, ev.Start.Sub(lastFeeding).Hours())
			}
			lastFeeding = ev.Start
		case model.EventDiaper:
			if !lastDiaper.IsZero() {
				diaperGaps = append(diaperGaps, ev.Start.Sub(lastDiaper).Hours())
			}
			lastDiaper = ev.Start
		case model.EventSleep:
			if !lastSleep.IsZero() {
				sleepGaps = append(sleepGaps, ev.Start.Sub(lastSleep).Hours())
			}
			lastSleep = ev.Start
			if !ev.Ongoing() {
				sleepDurations = append(sleepDurations, ev.End.Sub(ev.Start).Hours())
			}
		case model.EventCrying:
			// crying does not contribute to the schedule
		}
	}

	sch.AvgFeedingIntervalHrs = mean(feedGaps)
	sch.AvgDiaperIntervalHrs = mean(diaperGaps)
	sch.AvgSleepIntervalHrs = mean(sleepGaps)
	sch.AvgSleepDurationHrs = mean(sleepDurations)
	return sch
}

// openSpan measures an event's duration, counting open sessions up to now.
func openSpan(ev model.Event, now time.Time) time.Duration {
	end := ev.End
	if ev.Ongoing() {
		end = now
	}
	if end.Before(ev.Start) {
		return 0
	}
	return end.Sub(ev.Start)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
