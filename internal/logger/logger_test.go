package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
		warn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, "development", "")
			if err != nil {
				t.Fatal(err)
			}
			core := l.Core()
			if core.Enabled(zap.DebugLevel) != tt.debug || core.Enabled(zap.InfoLevel) != tt.info || core.Enabled(zap.WarnLevel) != tt.warn {
				t.Errorf("level %q enabled wrong levels", tt.level)
			}
		})
	}
}

func TestNewProductionWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	l, err := New("info", "production", path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("list response is not an array", zap.String("path", "/appointments"))
	l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"msg":"list response is not an array"`) {
		t.Errorf("log file: %s", b)
	}
}
