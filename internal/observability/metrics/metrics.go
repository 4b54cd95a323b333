package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	entriesCreated   metric.Int64Counter
	batchesCompleted metric.Int64Counter
	batchItemsFailed metric.Int64Counter
	dailyActions     metric.Int64Counter
	remindersSent    metric.Int64Counter
	remindersFailed  metric.Int64Counter
	joinsDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shelflife"
	}
	meter := provider.Meter(name)

	counters := map[string]*metric.Int64Counter{}
	m := &Metrics{}
	counters["shelflife_entries_created_total"] = &m.entriesCreated
	counters["shelflife_batches_completed_total"] = &m.batchesCompleted
	counters["shelflife_batch_items_failed_total"] = &m.batchItemsFailed
	counters["shelflife_daily_check_actions_total"] = &m.dailyActions
	counters["shelflife_reminders_sent_total"] = &m.remindersSent
	counters["shelflife_reminders_failed_total"] = &m.remindersFailed
	counters["shelflife_store_joins_denied_total"] = &m.joinsDenied

	for instrument, target := range counters {
		counter, err := meter.Int64Counter(instrument)
		if err != nil {
			return nil, err
		}
		*target = counter
	}
	return m, nil
}

// RecordEntryCreated counts entries by the path that created them.
func (m *Metrics) RecordEntryCreated(ctx context.Context, source, status string) {
	if m == nil {
		return
	}
	m.entriesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)...))
}

// RecordBatchCompleted counts a completed batch and the items it could not
// materialize.
func (m *Metrics) RecordBatchCompleted(ctx context.Context, failed int) {
	if m == nil {
		return
	}
	m.batchesCompleted.Add(ctx, 1)
	if failed > 0 {
		m.batchItemsFailed.Add(ctx, int64(failed))
	}
}

func (m *Metrics) RecordDailyCheckAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.dailyActions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("action", action),
	)...))
}

func (m *Metrics) RecordReminders(ctx context.Context, provider string, sent, failed int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("provider", provider))...)
	if sent > 0 {
		m.remindersSent.Add(ctx, int64(sent), attrs)
	}
	if failed > 0 {
		m.remindersFailed.Add(ctx, int64(failed), attrs)
	}
}

func (m *Metrics) RecordJoinDenied(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.joinsDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("reason", reason),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":      {},
	"status":      {},
	"action":      {},
	"provider":    {},
	"reason":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Device, store and entry ids never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		if attr.Value.Type() == attribute.STRING && strings.TrimSpace(attr.Value.AsString()) == "" {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
