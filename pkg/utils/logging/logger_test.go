package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aiarchives/aiarchives/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New(buf)
	gt.V(t, logger).NotNil()

	logger.Info("test message")
	gt.S(t, buf.String()).Contains("test message")
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		level   slog.Level
		isError bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := logging.ParseLevel(tc.input)
			if tc.isError {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, level, tc.level)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := logging.ParseFormat("JSON")
	gt.NoError(t, err)
	gt.Equal(t, f, logging.FormatJSON)

	f, err = logging.ParseFormat("text")
	gt.NoError(t, err)
	gt.Equal(t, f, logging.FormatConsole)

	_, err = logging.ParseFormat("xml")
	gt.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New(buf, logging.WithLevel(slog.LevelWarn))

	logger.Info("info message")
	logger.Warn("warn message")

	gt.S(t, buf.String()).NotContains("info message")
	gt.S(t, buf.String()).Contains("warn message")
}

func TestJSONFormatExpandsGoerrValues(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New(buf, logging.WithFormat(logging.FormatJSON))

	err := goerr.New("failed to store content", goerr.V("key", "conversations/x.html"))
	logger.Error("ingestion failed", "error", err)

	var entry map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	gt.Equal(t, entry["msg"], any("ingestion failed"))

	errGroup, ok := entry["error"].(map[string]any)
	gt.True(t, ok)
	gt.Equal(t, errGroup["key"], any("conversations/x.html"))
	gt.S(t, errGroup["message"].(string)).Contains("failed to store content")
}

func TestWithAndFrom(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}
	logger := logging.New(buf, logging.WithLevel(slog.LevelDebug)).With("request_id", "r1")

	ctx = logging.With(ctx, logger)

	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Info("context message")
	gt.S(t, buf.String()).Contains("context message")
	gt.S(t, buf.String()).Contains("r1")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	customDefault := logging.New(buf)
	logging.SetDefault(customDefault)

	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, customDefault)

	retrieved.Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}
