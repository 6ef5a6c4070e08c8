package telemetry

import (
	"context"
	"testing"
	"time"
)

// Not parallel: InitTracer replaces the global tracer provider.
func TestInitTracer(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"valid configuration", Config{ServiceName: "taskboard", ServiceVersion: "test", Endpoint: "localhost:4318", Insecure: true}},
		{"empty service name", Config{Endpoint: "localhost:4318", Insecure: true}},
		{"default endpoint", Config{ServiceName: "taskboard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			// Exporting to an absent collector may fail; only a clean stop matters here.
			_ = Shutdown(shutdownCtx, tp)
		})
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
