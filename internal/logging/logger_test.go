package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// reset swaps in a fresh registry writing to a buffer and without journald.
func reset(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	prev := std
	std = &registry{
		output:    &out,
		loggers:   make(map[string]*slog.Logger),
		levels:    make(map[string]*slog.LevelVar),
		noJournal: true,
	}
	t.Cleanup(func() { std = prev })
	return &out
}

func TestModuleLevelOverride(t *testing.T) {
	reset(t)
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"director": "debug",
			"api":      "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"director", true, true, true},
		{"api", false, false, true},
		{"show", false, true, true},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	reset(t)

	before := GetLogger("director")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"director": "debug"}})

	// The early logger shares the module level var.
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early logger did not pick up the module level")
	}
	if !GetLogger("director").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("rebuilt logger does not log debug")
	}
}

func TestLoggerWritesModuleAttribute(t *testing.T) {
	out := reset(t)
	Initialize(Config{Level: "debug", Format: "text"})

	GetLogger("sink").Debug("Frame written", "leds", 8)

	line := out.String()
	for _, want := range []string{"module=sink", "leds=8", `msg="Frame written"`, "level=DEBUG"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	out := reset(t)
	Initialize(Config{Format: "json"})

	GetLogger("api").Info("Server listening", "port", ":8090")

	if !strings.Contains(out.String(), `"module":"api"`) {
		t.Errorf("output %q is not JSON with a module field", out.String())
	}
}

func TestSetLevel(t *testing.T) {
	reset(t)
	Initialize(Config{Level: "warn"})
	logger := GetLogger("show")

	if !SetLevel("show", "debug") {
		t.Fatal("SetLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("level change not applied")
	}
	if SetLevel("show", "loud") {
		t.Error("SetLevel accepted an unknown level")
	}
}

func TestBufferCapturesEntries(t *testing.T) {
	reset(t)
	Initialize(Config{Level: "info", BufferSize: 3})

	var seen []LogEntry
	SetLogCallback(func(e LogEntry) { seen = append(seen, e) })

	logger := GetLogger("director")
	logger.Debug("hidden")
	logger.Info("Animation scheduled", "animation", "comet", "start_frame", 40)
	logger.With("slot", 2).WithGroup("fault").Error("Animation dropped", "error", errors.New("boom"))

	entries := GetBuffer().ReadAll()
	if len(entries) != 2 || len(seen) != 2 {
		t.Fatalf("buffered %d entries, callback saw %d, want 2 each", len(entries), len(seen))
	}

	first := entries[0]
	if first.Module != "director" || first.Level != "info" || first.Attributes["animation"] != "comet" {
		t.Errorf("first entry = %+v", first)
	}
	second := entries[1]
	if second.Attributes["slot"] != int64(2) {
		t.Errorf("slot attribute = %#v", second.Attributes["slot"])
	}
	if second.Attributes["fault.error"] != "boom" {
		t.Errorf("grouped error attribute = %#v", second.Attributes)
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: string(rune('a' + i))})
	}

	var got []string
	for _, e := range rb.ReadAll() {
		got = append(got, e.Message)
	}
	if strings.Join(got, "") != "cde" {
		t.Errorf("ReadAll = %v, want [c d e]", got)
	}
	if rb.Count() != 3 {
		t.Errorf("Count = %d", rb.Count())
	}
	if tail := rb.Tail(2); len(tail) != 2 || tail[1].Message != "e" {
		t.Errorf("Tail(2) = %v", tail)
	}
}

func TestMultiHandlerRespectsEachLevel(t *testing.T) {
	var buf bytes.Buffer
	debug := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debug, info))
	logger.Debug("debug only")
	logger.Info("both")

	if n := strings.Count(buf.String(), "debug only"); n != 1 {
		t.Errorf("debug record written %d times, want 1", n)
	}
	if n := strings.Count(buf.String(), "both"); n != 2 {
		t.Errorf("info record written %d times, want 2", n)
	}
}

func TestFormatLogLine(t *testing.T) {
	entry := LogEntry{
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      "warn",
		Module:     "sink",
		Message:    "Write failed",
		Attributes: map[string]any{"sink": "opc", "attempt": 2},
	}

	got := FormatLogLine(entry)

	want := "2026-01-02T03:04:05Z WARN  [sink] Write failed attempt=2 sink=opc"
	if got != want {
		t.Errorf("FormatLogLine = %q, want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v", tt.in, got, ok)
		}
	}
}
