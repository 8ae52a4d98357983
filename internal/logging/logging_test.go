package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "eckclaims", "warn", "json")

	logger.Info().Msg("hidden")
	logger.Warn().Str("serial", "ABC123").Msg("visible")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["app"] != "eckclaims" || entry["serial"] != "ABC123" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func TestInitWriterBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "eckclaims", "loud", "json")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", logger.GetLevel())
	}
}

func TestGormLoggerTraceErrors(t *testing.T) {
	var buf bytes.Buffer
	gl := NewGormLogger(zerolog.New(&buf), false)
	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO serial_jobs", 0
	}, errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("gorm query failed")) {
		t.Errorf("Expected failure to be logged, got %q", buf.String())
	}

	buf.Reset()
	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("Silent logger should not write, got %q", buf.String())
	}
}
