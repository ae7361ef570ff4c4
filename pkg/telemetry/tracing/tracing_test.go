package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mnemos/mnemos/config"
)

type mockExporter struct {
	shutdownCalled bool
}

func (m *mockExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (m *mockExporter) Shutdown(context.Context) error {
	m.shutdownCalled = true
	return nil
}

type failingExporter struct {
	exportCalls int
}

func (f *failingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	f.exportCalls++
	return errors.New("export unavailable")
}

func (f *failingExporter) Shutdown(context.Context) error {
	return nil
}

type recordingLogger struct {
	warnings int
}

func (r *recordingLogger) Warn(string, ...any) {
	r.warnings++
}

func enabledConfig() config.TracingConfig {
	return config.TracingConfig{
		Enabled:    true,
		Exporter:   "otlp",
		Endpoint:   "localhost:4317",
		Timeout:    5 * time.Second,
		Sampler:    "always",
		SampleRate: 1.0,
	}
}

func TestInitDisabledDoesNotCreateExporter(t *testing.T) {
	origFactory := newOTLPExporter
	t.Cleanup(func() { newOTLPExporter = origFactory })

	called := false
	newOTLPExporter = func(context.Context, config.TracingConfig) (sdktrace.SpanExporter, error) {
		called = true
		return &mockExporter{}, nil
	}

	shutdown, err := Init(context.Background(), config.TracingConfig{Enabled: false}, "mnemos", "test", nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if called {
		t.Error("disabled tracing should not create an exporter")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled tracing failed: %v", err)
	}
}

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.TracingConfig)
	}{
		{"empty exporter", func(cfg *config.TracingConfig) { cfg.Exporter = " " }},
		{"empty endpoint", func(cfg *config.TracingConfig) { cfg.Endpoint = "" }},
		{"zero timeout", func(cfg *config.TracingConfig) { cfg.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(&cfg)
			if _, err := Init(context.Background(), cfg, "mnemos", "test", nil); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestInitShutdownFlushesExporter(t *testing.T) {
	origFactory := newOTLPExporter
	t.Cleanup(func() { newOTLPExporter = origFactory })

	exp := &mockExporter{}
	newOTLPExporter = func(context.Context, config.TracingConfig) (sdktrace.SpanExporter, error) {
		return exp, nil
	}

	shutdown, err := Init(context.Background(), enabledConfig(), "mnemos", "test", nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !exp.shutdownCalled {
		t.Error("expected exporter shutdown to be called")
	}
}

func TestIsolatingExporterSwallowsFailures(t *testing.T) {
	inner := &failingExporter{}
	log := &recordingLogger{}
	exp := &isolatingExporter{
		exporter: inner,
		kind:     "otlp",
		endpoint: "localhost:4317",
		log:      log,
	}

	if err := exp.ExportSpans(context.Background(), nil); err != nil {
		t.Errorf("export failure should not propagate, got %v", err)
	}
	if inner.exportCalls != 1 {
		t.Errorf("expected 1 export attempt, got %d", inner.exportCalls)
	}
	if log.warnings != 1 {
		t.Errorf("expected 1 warning, got %d", log.warnings)
	}
}

func TestSelectSampler(t *testing.T) {
	tests := []struct {
		sampler string
		want    string
	}{
		{"always", sdktrace.AlwaysSample().Description()},
		{"never", sdktrace.NeverSample().Description()},
		{"ratio", sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description()},
		{"", sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description()},
	}

	for _, tt := range tests {
		got := selectSampler(config.TracingConfig{Sampler: tt.sampler, SampleRate: 0.5})
		if got.Description() != tt.want {
			t.Errorf("sampler %q: got %s, want %s", tt.sampler, got.Description(), tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:4317", "localhost:4317"},
		{"  localhost:4317  ", "localhost:4317"},
		{"http://collector:4317", "collector:4317"},
		{"https://collector:4317/v1/traces", "collector:4317"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeEndpoint(tt.in); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
