package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	assert.NotNil(t, logger)
	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger_WithContextLogger(t *testing.T) {
	ctx := context.Background()
	customLogger := logrus.NewEntry(logrus.New()).WithField("action", "transcribe")

	ctxWithLogger := WithLogger(ctx, customLogger)
	retrieved := G(ctxWithLogger)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "transcribe", retrieved.Data["action"])
}

func TestGetLogger_WithoutContextLogger(t *testing.T) {
	retrieved := G(context.Background())

	assert.NotNil(t, retrieved)
	assert.Equal(t, L.Logger, retrieved.Logger)
}

func TestWithLoggerFieldsAccumulate(t *testing.T) {
	ctx := context.Background()
	ctx = WithLogger(ctx, G(ctx).WithField("workspace", "talks"))
	ctx = WithLogger(ctx, G(ctx).WithField("item", "some-talk"))

	retrieved := G(ctx)
	assert.Equal(t, "talks", retrieved.Data["workspace"])
	assert.Equal(t, "some-talk", retrieved.Data["item"])
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	setLoggerFormat(logger, "json")

	ctx := WithLogger(context.Background(), logrus.NewEntry(logger))
	G(ctx).WithField("url", "https://example.com").Info("downloading")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "downloading", entry["message"])
	assert.Equal(t, "info", entry["logLevel"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.Contains(t, entry, "timestamp")
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("not-a-level"))
}
