package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/go-places-market/internal/config"
)

// withGlobals restores the OTel globals and the exporter seam after t.
func withGlobals(t *testing.T) {
	t.Helper()
	tp, prop, dial := otel.GetTracerProvider(), otel.GetTextMapPropagator(), dialExporter
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		dialExporter = dial
	})
}

func enabled(ratio float64) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "places-market-test",
		SampleRatio: ratio,
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	withGlobals(t)
	before := otel.GetTracerProvider()
	dialExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		t.Fatal("exporter dialed while disabled")
		return nil, nil
	}

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Endpoint: "ignored:4317"}, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("tracer provider replaced while disabled")
	}
}

func TestSetupOTel_ExportsSampledSpans(t *testing.T) {
	withGlobals(t)
	mem := tracetest.NewInMemoryExporter()
	var gotOpts int
	dialExporter = func(_ context.Context, opts ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		gotOpts = len(opts)
		return mem, nil
	}

	shutdown, err := SetupOTel(context.Background(), enabled(1), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if gotOpts != 2 {
		t.Fatalf("exporter options = %d; want endpoint and transport", gotOpts)
	}

	ctx, span := otel.Tracer("test").Start(context.Background(), "buy-place")
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()
	if carrier.Get("traceparent") == "" {
		t.Fatal("traceparent not injected")
	}

	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		t.Fatalf("global provider is %T", otel.GetTracerProvider())
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := mem.GetSpans()
	defer func() { _ = shutdown(context.Background()) }()
	if len(spans) != 1 || spans[0].Name != "buy-place" {
		t.Fatalf("exported spans = %+v", spans)
	}
	var svc string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			svc = kv.Value.AsString()
		}
	}
	if svc != "places-market-test" {
		t.Fatalf("service.name = %q", svc)
	}
}

func TestSetupOTel_ExporterErrorKeepsGlobals(t *testing.T) {
	withGlobals(t)
	before := otel.GetTracerProvider()
	dialExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return nil, errors.New("collector unreachable")
	}

	if _, err := SetupOTel(context.Background(), enabled(1), "v0"); err == nil {
		t.Fatal("expected exporter error")
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("tracer provider replaced on failure")
	}
}

func TestSetupOTel_RealClientIsLazy(t *testing.T) {
	withGlobals(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The gRPC client connects on first export, so a dead collector or a
	// canceled context does not fail startup.
	for _, insecure := range []bool{true, false} {
		cfg := enabled(0.5)
		cfg.Insecure = insecure
		shutdown, err := SetupOTel(ctx, cfg, "v0")
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		_ = shutdown(context.Background())
	}
}

func TestSamplerFor(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{-1, "AlwaysOffSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
		{1, "AlwaysOnSampler"},
		{3, "AlwaysOnSampler"},
	}
	for _, tc := range cases {
		want := "ParentBased{root:" + tc.want
		if got := samplerFor(tc.ratio).Description(); len(got) < len(want) || got[:len(want)] != want {
			t.Fatalf("ratio %v: %q; want prefix %q", tc.ratio, got, want)
		}
	}
}
