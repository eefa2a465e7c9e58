// Package telemetry exports traces and logs over OTLP. A disabled provider
// hands out no-op tracers and leaves loggers untouched, so callers wire it
// unconditionally.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/shipflow/backend/internal/infrastructure/config"
)

const shutdownTimeout = 10 * time.Second

// Config holds the export settings for one service
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	ExportLogs        bool
	ServiceName       string
	ServiceVersion    string
}

// FromAppConfig maps the application's telemetry section onto a Config
func FromAppConfig(cfg config.TelemetryConfig, serviceName, version string) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		Insecure:          cfg.Insecure,
		ExportLogs:        cfg.ExportLogs,
		ServiceName:       serviceName,
		ServiceVersion:    version,
	}
}

// Option overrides how a Provider exports
type Option func(*options)

type options struct {
	spanExporter sdktrace.SpanExporter
	logProcessor sdklog.Processor
}

// WithSpanExporter sends spans to exp synchronously instead of the OTLP collector
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.spanExporter = exp
	}
}

// WithLogProcessor sends log records to p instead of the OTLP collector
func WithLogProcessor(p sdklog.Processor) Option {
	return func(o *options) {
		o.logProcessor = p
	}
}

// Provider owns the trace and log pipelines for the process
type Provider struct {
	cfg    Config
	traces *sdktrace.TracerProvider
	logs   *sdklog.LoggerProvider
	logger *zap.Logger
}

// New builds the pipelines described by cfg and installs them as the
// process-wide defaults. With cfg.Enabled unset nothing is exported.
func New(ctx context.Context, cfg Config, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return p, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	spanOpt, err := p.spanProcessor(ctx, o.spanExporter)
	if err != nil {
		return nil, err
	}
	p.traces = sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.ExportLogs {
		processor, err := p.logPipeline(ctx, o.logProcessor)
		if err != nil {
			_ = p.traces.Shutdown(ctx)
			return nil, err
		}
		p.logs = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(processor),
		)
		global.SetLoggerProvider(p.logs)
	}

	logger.Info("Telemetry enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("export_logs", cfg.ExportLogs),
	)
	return p, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

func (p *Provider) spanProcessor(ctx context.Context, exp sdktrace.SpanExporter) (sdktrace.TracerProviderOption, error) {
	if exp != nil {
		return sdktrace.WithSyncer(exp), nil
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.CollectorEndpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	return sdktrace.WithBatcher(exporter), nil
}

func (p *Provider) logPipeline(ctx context.Context, processor sdklog.Processor) (sdklog.Processor, error) {
	if processor != nil {
		return processor, nil
	}
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.cfg.CollectorEndpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exporter), nil
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool {
	return p.traces != nil
}

// LogsEnabled reports whether log records are exported
func (p *Provider) LogsEnabled() bool {
	return p.logs != nil
}

// Config returns the settings the provider was built with
func (p *Provider) Config() Config {
	return p.cfg
}

// TracerProvider returns the exporting provider, or a no-op one when disabled
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.traces == nil {
		return noop.NewTracerProvider()
	}
	return p.traces
}

// Tracer returns a named tracer from TracerProvider
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.TracerProvider().Tracer(name)
}

// ForceFlush exports everything buffered so far
func (p *Provider) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.traces != nil {
		errs = append(errs, p.traces.ForceFlush(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops both pipelines
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.traces == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := p.traces.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logger provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Telemetry shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
