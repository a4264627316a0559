package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/metrics"
	"github.com/smazurov/vcapture/internal/metrics/exporters"
)

// registerMetricsRoutes registers the metrics SSE endpoint
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Periodic capture metrics samples (state, frame index, input size, frame rate)",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.GetEventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribe := events.SubscribeToChannel[events.CaptureMetricsEvent](s.eventBus, eventCh)
		defer unsubscribe()

		// Last known values first; the rate is unknown until the next sample
		m := metrics.Get()
		if err := send.Data(events.CaptureMetricsEvent{
			EventType:  "capture-metrics",
			State:      m.State,
			FrameIndex: m.FrameIndex,
			Width:      m.Width,
			Height:     m.Height,
			Frames:     m.Frames,
			FPS:        "0.00",
			Errors:     m.Errors,
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
