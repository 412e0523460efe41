// Package observability sets up OpenTelemetry tracing for the planner and runtime.
package observability

import (
	"io"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ExporterType selects where spans go.
type ExporterType string

const (
	// ExporterOTLP exports over gRPC to a collector.
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout writes pretty-printed spans.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop records nothing.
	ExporterNoop ExporterType = "noop"
)

// Config configures tracing.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Exporter ExporterType

	// Endpoint is the OTLP collector address (e.g. "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// SampleRate is clamped to [0, 1].
	SampleRate float64

	BatchTimeout       time.Duration
	MaxExportBatchSize int

	// Writer receives stdout spans. Defaults to os.Stdout.
	Writer io.Writer

	// SpanExporter, when set, replaces the configured exporter and is flushed synchronously.
	SpanExporter sdktrace.SpanExporter

	// Global installs the provider as the otel global tracer provider.
	Global bool
}

// DefaultConfig returns a configuration with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "htn",
		ServiceVersion:     "1.0.0",
		Environment:        "development",
		Exporter:           ExporterNoop,
		SampleRate:         1.0,
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
	}
}

// ParseExporter maps configuration names to exporter types. Empty means noop.
func ParseExporter(s string) (ExporterType, error) {
	switch ExporterType(s) {
	case "", ExporterNoop:
		return ExporterNoop, nil
	case ExporterStdout, ExporterOTLP:
		return ExporterType(s), nil
	default:
		return "", ErrUnknownExporter
	}
}

// Option configures tracing.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithOTLP exports to an OTLP collector.
func WithOTLP(endpoint string, insecure bool) Option {
	return func(c *Config) {
		c.Exporter = ExporterOTLP
		c.Endpoint = endpoint
		c.Insecure = insecure
	}
}

// WithStdout writes spans to w, or stdout when w is nil.
func WithStdout(w io.Writer) Option {
	return func(c *Config) {
		c.Exporter = ExporterStdout
		c.Writer = w
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithSpanExporter routes spans to exp.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(c *Config) {
		c.SpanExporter = exp
	}
}

// WithGlobal installs the provider globally.
func WithGlobal() Option {
	return func(c *Config) {
		c.Global = true
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}
