package util

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "info", "json").Info("hello", "symbol", "AAPL")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"symbol":"AAPL"`) {
		t.Errorf("json logger wrote %q", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "info", "text").Info("hello", "symbol", "AAPL")
	if !strings.Contains(buf.String(), "symbol=AAPL") {
		t.Errorf("text logger wrote %q", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "error", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at error level, got %q", buf.String())
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl != nil {
		t.Fatal("NewRateLimiter(0) should return nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait returned %v", err)
	}
}

func TestRateLimiterFirstTokenImmediate(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("first Wait should not block")
	}
}

func TestRateLimiterHonoursCancellation(t *testing.T) {
	rl := NewRateLimiter(1)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("second Wait within the same minute should block until the context expires")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(60)
	clock := time.Now()
	rl.now = func() time.Time { return clock }
	rl.lastTime = clock

	if d := rl.reserve(); d != 0 {
		t.Fatalf("first reserve = %v, want 0", d)
	}
	if d := rl.reserve(); d <= 0 || d > time.Second {
		t.Fatalf("second reserve = %v, want (0, 1s]", d)
	}
	clock = clock.Add(time.Second)
	if d := rl.reserve(); d != 0 {
		t.Errorf("reserve after refill = %v, want 0", d)
	}
}
