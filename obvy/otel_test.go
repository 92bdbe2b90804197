package geiger_test

import (
	"context"
	"testing"
	"time"

	Gb "github.com/maroda/geigerlive/obvy"
	"go.opentelemetry.io/otel"
)

func TestInitOTelGRF(t *testing.T) {
	tp, err := Gb.InitOTelGRF()
	if err != nil {
		t.Fatalf("could not build tracer provider: %v", err)
	}
	if tp == nil {
		t.Fatal("expected a tracer provider")
	}

	t.Run("Registers itself as the global provider", func(t *testing.T) {
		if otel.GetTracerProvider() != tp {
			t.Error("global tracer provider was not set")
		}
	})

	t.Run("Hands out working tracers", func(t *testing.T) {
		_, span := tp.Tracer("geigerlive-test").Start(context.Background(), "pulse")
		if !span.SpanContext().IsValid() {
			t.Error("expected a valid span context from the provider")
		}
		span.End()
	})

	// nothing was exported, shutdown just drains the empty batcher
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tp.Shutdown(ctx)
}
