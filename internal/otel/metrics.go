package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	runsCounter         metric.Int64Counter
	runDuration         metric.Float64Histogram
	stageDuration       metric.Float64Histogram
	toolCallsCounter    metric.Int64Counter
	sseEventsCounter    metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times;
// only runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		runsCounter, err = m.Int64Counter("primebrief_runs_total", metric.WithDescription("Total pipeline runs by outcome"))
		if err != nil {
			return
		}
		runDuration, err = m.Float64Histogram("primebrief_run_duration_seconds", metric.WithDescription("Whole-pipeline run duration in seconds"))
		if err != nil {
			return
		}
		stageDuration, err = m.Float64Histogram("primebrief_stage_duration_seconds", metric.WithDescription("Per-stage duration in seconds"))
		if err != nil {
			return
		}
		toolCallsCounter, err = m.Int64Counter("primebrief_tool_calls_total", metric.WithDescription("Tool invocations requested by the model"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("primebrief_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("primebrief_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordRun records one completed pipeline run.
func RecordRun(ctx context.Context, outcome, format string, duration time.Duration) {
	if runsCounter != nil {
		runsCounter.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome), AttrFormat.String(format)))
	}
	if runDuration != nil {
		runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
	}
}

// RecordStage records one stage execution duration.
func RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if stageDuration != nil {
		stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrStage.String(stage)))
	}
}

// RecordToolCall records a model-requested tool invocation.
func RecordToolCall(ctx context.Context, tool string) {
	if toolCallsCounter != nil {
		toolCallsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
	}
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}
