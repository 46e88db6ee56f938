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

// Metrics exposes application-level instruments for the import pipeline.
type Metrics struct {
	importRuns     metric.Int64Counter
	importProducts metric.Int64Counter
	importVariants metric.Int64Counter
	importErrors   metric.Int64Counter
	exportRuns     metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
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
		name = "canopy"
	}
	meter := provider.Meter(name)

	importRuns, err := meter.Int64Counter("canopy_import_runs_total")
	if err != nil {
		return nil, err
	}
	importProducts, err := meter.Int64Counter("canopy_import_products_total")
	if err != nil {
		return nil, err
	}
	importVariants, err := meter.Int64Counter("canopy_import_variants_total")
	if err != nil {
		return nil, err
	}
	importErrors, err := meter.Int64Counter("canopy_import_errors_total")
	if err != nil {
		return nil, err
	}
	exportRuns, err := meter.Int64Counter("canopy_export_runs_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		importRuns:     importRuns,
		importProducts: importProducts,
		importVariants: importVariants,
		importErrors:   importErrors,
		exportRuns:     exportRuns,
	}, nil
}

// RecordImportRun increments reconciliation run counts.
func (m *Metrics) RecordImportRun(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("mode", strings.TrimSpace(mode)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.importRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordImportProducts increments product create/update counts.
func (m *Metrics) RecordImportProducts(ctx context.Context, action string, count int) {
	if m == nil || count == 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.importProducts.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordImportVariants increments variant create/update counts.
func (m *Metrics) RecordImportVariants(ctx context.Context, action string, count int) {
	if m == nil || count == 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.importVariants.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordImportErrors increments per-item error counts.
func (m *Metrics) RecordImportErrors(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.importErrors.Add(ctx, int64(count))
}

// RecordExportRun increments catalog export counts.
func (m *Metrics) RecordExportRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.exportRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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
	"mode":        {},
	"outcome":     {},
	"action":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
