package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("store_id", "123"),
		attribute.String("device_id", "456"),
		attribute.String("action", "sold"),
		attribute.String("reason", " "),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("action"), attrs[0].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordEntryCreated(context.Background(), "scan", "fresh")
	m.RecordBatchCompleted(context.Background(), 1)
	m.RecordReminders(context.Background(), "expo", 1, 0)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "shelflife"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordEntryCreated(context.Background(), "batch", "expired")
	m.RecordDailyCheckAction(context.Background(), "discarded")
	m.RecordJoinDenied(context.Background(), "rate_limited")
}
