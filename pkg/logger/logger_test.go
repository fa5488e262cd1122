package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a fresh logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			Named("test").Info(context.Background(), "test message", String("k", "v"))
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		SetOutput(&buf)
		defer SetOutput(os.Stdout)
		So(Configure("debug", FormatJSON), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging with fields", func() {
			Named("store").Warn(context.Background(), "write failed",
				String("op", "create_session"), Int("attempt", 1), Error(errors.New("disk full")))

			Convey("Then one structured record is emitted", func() {
				var rec map[string]any
				So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "write failed")
				So(rec["level"], ShouldEqual, "WARN")
				So(rec["component"], ShouldEqual, "store")
				So(rec["service"], ShouldEqual, "formcoach")
				So(rec["op"], ShouldEqual, "create_session")
				So(rec["error"], ShouldEqual, "disk full")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters a message out", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")
			So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("SetLevelString accepts known levels only", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(Configure("info", "xml"), ShouldNotBeNil)
	})

	Convey("Nop discards output without panicking", t, func() {
		Nop().Error(context.Background(), "ignored")
	})
}
