package logging

import (
	"context"
	"log/slog"
	"testing"

	"edge-relay/internal/config"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
		infoOn  bool
		warnOn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"", false, true, true},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			cfg := &config.Config{Log: config.LogConfig{Level: tt.level}}
			logger := New(cfg)
			ctx := context.Background()

			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.infoOn {
				t.Errorf("info enabled = %v, want %v", got, tt.infoOn)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tt.warnOn {
				t.Errorf("warn enabled = %v, want %v", got, tt.warnOn)
			}
		})
	}
}

func TestNew_FormatSelection(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Format: "text"}}
	if _, ok := New(cfg).Handler().(*slog.TextHandler); !ok {
		t.Error("format=text should select a TextHandler")
	}

	cfg = &config.Config{Log: config.LogConfig{Format: "json"}}
	if _, ok := New(cfg).Handler().(*slog.JSONHandler); !ok {
		t.Error("format=json should select a JSONHandler")
	}

	cfg = &config.Config{}
	if _, ok := New(cfg).Handler().(*slog.JSONHandler); !ok {
		t.Error("empty format should default to a JSONHandler")
	}
}
