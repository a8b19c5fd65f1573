package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitMeterProvider(t *testing.T) {
	ctx := context.Background()
	handler, err := InitMeterProvider(ctx, "test-service")
	if err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	if handler == nil {
		t.Fatal("InitMeterProvider: expected non-nil handler")
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: status=%d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("GET /metrics: empty body")
	}
}

func TestInitMeterProvider_emptyServiceName(t *testing.T) {
	handler, err := InitMeterProvider(context.Background(), "")
	if err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}
}

func TestRecordInstruments(t *testing.T) {
	ctx := context.Background()
	_, _ = InitMeterProvider(ctx, "record-test")
	if err := InitMetrics(ctx); err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	RecordRun(ctx, "success", "Summary Report", 2*time.Second)
	RecordRun(ctx, "failure", "Executive Brief", time.Second)
	RecordStage(ctx, "research", 500*time.Millisecond)
	RecordToolCall(ctx, "web_search")
	RecordSSEEvent(ctx)
}

func TestSSEConnectionGaugeNeverNegative(t *testing.T) {
	AddSSEConnection()
	AddSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection() // should not go negative
}

func TestRecordBeforeInitIsNoop(t *testing.T) {
	// Instruments may be nil if InitMetrics was never called; recording must not panic.
	RecordRun(context.Background(), "success", "Summary Report", time.Second)
	RecordStage(context.Background(), "deliver", time.Second)
}
