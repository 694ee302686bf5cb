package logger

import (
	"testing"

	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/config"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level    string
		debugOn  bool
		infoOn   bool
		encoding string
	}{
		{"debug", true, true, "json"},
		{"WARN", false, false, "console"},
		{"verbose", false, true, "json"}, // unknown falls back to info
		{"", false, true, "logfmt"},
	}
	for _, tt := range tests {
		log, err := New(config.LogConfig{Level: tt.level, Encoding: tt.encoding})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.level, err)
		}
		if got := log.Core().Enabled(zap.DebugLevel); got != tt.debugOn {
			t.Errorf("level %q: debug enabled = %v", tt.level, got)
		}
		if got := log.Core().Enabled(zap.InfoLevel); got != tt.infoOn {
			t.Errorf("level %q: info enabled = %v", tt.level, got)
		}
	}
}
