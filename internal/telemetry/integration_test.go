package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation verifies that a suggestion call made while serving an
// API request is recorded as a child of the request span, and that an incoming
// traceparent header is honoured.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(suggest.Response{
			Choices: []suggest.Choice{{Message: suggest.Message{Content: "Work"}}},
		})
	}))
	defer backend.Close()
	client := suggest.NewClient(backend.URL)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("taskboard"))
	r.HandleFunc("/api/v1/tasks/categorize", func(w http.ResponseWriter, r *http.Request) {
		if _, err := client.Suggest(r.Context(), suggest.TypeCategorizeTask, "Write report"); err != nil {
			t.Errorf("Suggest() error = %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "without existing trace ID"},
		{
			name:        "with existing trace ID",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			_ = client.ClearCache(context.Background())

			req := httptest.NewRequest("POST", "/api/v1/tasks/categorize", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}

			spans := exporter.GetSpans()
			var server, suggestion *tracetest.SpanStub
			for i := range spans {
				switch spans[i].Name {
				case "suggest.request":
					suggestion = &spans[i]
				case "/api/v1/tasks/categorize":
					server = &spans[i]
				}
			}
			if server == nil || suggestion == nil {
				t.Fatalf("Expected request and suggestion spans, got %d spans", len(spans))
			}
			if suggestion.Parent.SpanID() != server.SpanContext.SpanID() {
				t.Error("Expected the suggestion span to be a child of the request span")
			}
			if tt.wantTraceID != "" && server.SpanContext.TraceID().String() != tt.wantTraceID {
				t.Errorf("Expected trace ID %s, got %s", tt.wantTraceID, server.SpanContext.TraceID())
			}
		})
	}
}
