package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsToZap(t *testing.T) {
	core, observedLogs := observer.New(zapcore.DebugLevel)
	zl := &zapLogger{logger: zap.New(core)}

	zl.Info("upload finished",
		NewField("container", "reports"),
		NewField("size", int64(42)),
		NewField("files", 3),
		NewField("dry_run", false),
		NewField("cause", errors.New("boom")),
	)

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "upload finished", logs[0].Message)

	ctx := logs[0].ContextMap()
	assert.Equal(t, "reports", ctx["container"])
	assert.Equal(t, int64(42), ctx["size"])
	assert.Equal(t, int64(3), ctx["files"])
	assert.Equal(t, false, ctx["dry_run"])
	assert.Equal(t, "boom", ctx["cause"])
}

func TestWithAddsFields(t *testing.T) {
	core, observedLogs := observer.New(zapcore.DebugLevel)
	zl := &zapLogger{logger: zap.New(core)}

	child := zl.With(NewField("operation", "blob.delete"))
	child.Warn("Blob missing")

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, "blob.delete", logs[0].ContextMap()["operation"])
}

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		core, observedLogs := observer.New(zapcore.DebugLevel)
		logger := NewZapLogger(zap.New(core))

		ctx := WithLogger(context.Background(), logger)
		FromContext(ctx).Info("hello")

		assert.Equal(t, 1, observedLogs.Len())
	})

	t.Run("falls back to no-op logger", func(t *testing.T) {
		logger := FromContext(context.Background())
		assert.NotNil(t, logger)
		assert.NotPanics(t, func() {
			logger.With(NewField("k", "v")).WithError(errors.New("x")).Error("ignored")
		})
	})
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"json", "console", "text", ""} {
		logger, err := NewLogger("debug", format)
		require.NoError(t, err, format)
		assert.NotNil(t, logger)
	}
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
