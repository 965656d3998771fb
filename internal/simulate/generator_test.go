package simulate

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestGenerateDay(t *testing.T) {
	convey.Convey("Given one generated baby day", t, func() {
		end := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
		events, cries := GenerateDay("baby-1", end)

		convey.Convey("Then the day should hold a plausible rhythm", func() {
			counts := map[string]int{}
			for _, ev := range events {
				counts[ev.Type]++
			}
			// Roughly every 3 hours over 24 hours.
			convey.So(counts["feeding"], convey.ShouldBeBetweenOrEqual, 6, 11)
			convey.So(counts["diaper"], convey.ShouldEqual, counts["feeding"])
			// Roughly every 4 hours.
			convey.So(counts["sleep"], convey.ShouldBeBetweenOrEqual, 4, 8)
			convey.So(counts["crying"], convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("And every event should be well-formed", func() {
			seen := map[string]bool{}
			for _, ev := range events {
				convey.So(ev.EventID, convey.ShouldNotBeEmpty)
				convey.So(seen[ev.EventID], convey.ShouldBeFalse)
				seen[ev.EventID] = true
				convey.So(ev.BabyID, convey.ShouldEqual, "baby-1")

				start, err := time.Parse(time.RFC3339, ev.Start)
				convey.So(err, convey.ShouldBeNil)
				convey.So(start.After(end.Add(-25*time.Hour)), convey.ShouldBeTrue)
				if ev.End != "" {
					endAt, err := time.Parse(time.RFC3339, ev.End)
					convey.So(err, convey.ShouldBeNil)
					convey.So(endAt.After(start), convey.ShouldBeTrue)
				}
				if ev.Type == "feeding" && ev.FeedingType == "bottle" {
					convey.So(ev.AmountML, convey.ShouldBeBetweenOrEqual, 60, 180)
				}
				if ev.Type == "diaper" {
					convey.So(ev.DiaperType, convey.ShouldBeIn, "wet", "dirty", "both")
					convey.So(ev.End, convey.ShouldBeEmpty)
				}
			}
		})

		convey.Convey("And each planted cry should sit inside a crying event", func() {
			convey.So(len(cries), convey.ShouldBeGreaterThan, 0)
			for _, ep := range cries {
				convey.So(ep.Cause, convey.ShouldBeIn, "hungry", "tired")

				matched := false
				for _, ev := range events {
					if ev.Type != "crying" {
						continue
					}
					start, _ := time.Parse(time.RFC3339, ev.Start)
					cryEnd, _ := time.Parse(time.RFC3339, ev.End)
					if !ep.At.Before(start) && !ep.At.After(cryEnd) {
						matched = true
						break
					}
				}
				convey.So(matched, convey.ShouldBeTrue)
			}
		})
	})
}

func TestJitter(t *testing.T) {
	convey.Convey("Given the interval jitter", t, func() {
		span := 40 * time.Minute

		convey.Convey("Then it should stay within its span", func() {
			for i := 0; i < 100; i++ {
				j := jitter(span)
				convey.So(j, convey.ShouldBeBetweenOrEqual, -span, span)
			}
		})
	})
}
