package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected a single handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when any sink is")
	}

	logger := slog.New(h).With("day", "20240102").WithGroup("archive")
	logger.Debug("queued", "slot", 1)
	logger.Warn("retrying", "slot", 1)

	if strings.Contains(console.String(), "queued") {
		t.Fatalf("debug record leaked into warn sink: %s", console.String())
	}
	if !strings.Contains(console.String(), "retrying") {
		t.Fatalf("warn record missing from console: %s", console.String())
	}
	if strings.Count(file.String(), "20240102") != 2 || !strings.Contains(file.String(), `"archive":{"slot":1}`) {
		t.Fatalf("expected both records with attrs in file sink: %s", file.String())
	}
}

func TestWithFloorReplacesExistingFloor(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := withFloor(base, slog.LevelWarn)
	quiet.Info("hidden")
	loud := withFloor(quiet, slog.LevelDebug)
	loud.Debug("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record passed a warn floor: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("lowered floor still filtered debug: %s", out)
	}
}
