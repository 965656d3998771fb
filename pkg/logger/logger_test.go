package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given logger initialization", t, func() {
		Convey("When initializing the global logger", func() {
			err := Init()

			Convey("Then it should succeed and Get should return a logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
			})
		})

		Convey("When creating a named logger", func() {
			So(Init(), ShouldBeNil)
			named := Named("store")

			Convey("Then it should be distinct and usable", func() {
				So(named, ShouldNotBeNil)
				So(func() {
					named.Info(context.Background(), "named entry", String("k", "v"))
				}, ShouldNotPanic)
			})
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given field constructors", t, func() {
		Convey("When building fields of each type", func() {
			fields := []Field{
				String("baby_id", "b-1"),
				Int("count", 3),
				Float64("confidence", 0.81),
				Bool("asleep", true),
				Duration("elapsed", 90*time.Minute),
				Time("at", time.Now()),
				Any("payload", map[string]int{"a": 1}),
				Error(errors.New("boom")),
			}

			Convey("Then keys and values should be preserved", func() {
				So(fields[0].Key, ShouldEqual, "baby_id")
				So(fields[0].Value, ShouldEqual, "b-1")
				So(fields[1].Value, ShouldEqual, 3)
				So(fields[2].Value, ShouldEqual, 0.81)
				So(fields[3].Value, ShouldEqual, true)
				So(fields[7].Key, ShouldEqual, "error")
			})
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a configured logger", t, func() {
		So(Init(), ShouldBeNil)
		ctx := context.Background()
		log := Get()

		Convey("When logging at each level", func() {
			Convey("Then no level should panic", func() {
				So(func() { log.Debug(ctx, "debug entry") }, ShouldNotPanic)
				So(func() { log.Info(ctx, "info entry", Int("n", 1)) }, ShouldNotPanic)
				So(func() { log.Warn(ctx, "warn entry") }, ShouldNotPanic)
				So(func() { log.Error(ctx, "error entry", Error(errors.New("bad"))) }, ShouldNotPanic)
			})
		})

		Convey("When setting the level from a string", func() {
			Convey("Then known names should parse", func() {
				So(SetLevelString("debug"), ShouldBeNil)
				So(SetLevelString("INFO"), ShouldBeNil)
				So(SetLevelString("warn"), ShouldBeNil)
				So(SetLevelString("warning"), ShouldBeNil)
				So(SetLevelString("error"), ShouldBeNil)
				So(SetLevelString(""), ShouldBeNil)
				So(SetLevelString("  info  "), ShouldBeNil)
			})

			Convey("And unknown names should error", func() {
				So(SetLevelString("verbose"), ShouldNotBeNil)
			})
		})

		Convey("When setting the level directly", func() {
			So(func() { SetLevel(slog.LevelWarn) }, ShouldNotPanic)
			SetLevel(slog.LevelInfo)
		})

		Convey("When syncing", func() {
			So(Sync(), ShouldBeNil)
		})
	})
}
