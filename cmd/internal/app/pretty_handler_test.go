package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLevelTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   slog.Level
		want string
	}{
		{in: slog.LevelDebug, want: "DBG"},
		{in: slog.LevelInfo, want: "INF"},
		{in: slog.LevelWarn, want: "WRN"},
		{in: slog.LevelError, want: "ERR"},
		{in: slog.LevelError + 4, want: "ERR"},
	}

	for _, tc := range cases {
		if got := levelTag(tc.in); got != tc.want {
			t.Fatalf("levelTag(%v)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestPrettyHandlerRendersOneLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)

	log.Info("server.start", "addr", "0.0.0.0:8080", "note", "two words")

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected single line, got %q", out)
	}
	if !strings.Contains(out, " INF server.start") {
		t.Fatalf("missing level/message in %q", out)
	}
	if !strings.Contains(out, "addr=0.0.0.0:8080") {
		t.Fatalf("missing plain attr in %q", out)
	}
	if !strings.Contains(out, `note="two words"`) {
		t.Fatalf("attr with spaces should be quoted: %q", out)
	}
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, nil).WithAttrs([]slog.Attr{slog.String("component", "auth")})

	rec := slog.NewRecord(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), slog.LevelWarn, "token.reuse", 0)
	rec.AddAttrs(slog.String("family_id", "f1"))

	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "component=auth") {
		t.Fatalf("missing handler attr in %q", out)
	}
	if !strings.Contains(out, "family_id=f1") {
		t.Fatalf("missing record attr in %q", out)
	}
	if !strings.HasPrefix(out, "12:00:00.000 WRN token.reuse") {
		t.Fatalf("unexpected prefix: %q", out)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}
