package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/shelflife/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildConfig(t *testing.T) {
	cfg, err := buildConfig(Config{Level: "warn", Format: "JSON"})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())

	cfg, err = buildConfig(Config{Debug: true, Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.True(t, cfg.Development)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())

	_, err = buildConfig(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestBuildOptionsSkipsSamplingInDebug(t *testing.T) {
	assert.Len(t, buildOptions(Config{}), 1)
	assert.Len(t, buildOptions(Config{IncludeCaller: true, IncludeStackOnError: true}), 3)
	assert.Len(t, buildOptions(Config{Debug: true, IncludeCaller: true}), 1)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithDeviceID(ctx, "device-a")
	WithStore(WithContext(ctx, base), "42").Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "device-a", fields["device_id"])
	assert.Equal(t, "42", fields["store_id"])

	assert.Same(t, base, WithContext(context.Background(), base))
}
