package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/vcapture/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of capture state, frame selection, input timing and errors",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"capture-state":  events.CaptureStateChangedEvent{},
		"frame-selected": events.FrameSelectedEvent{},
		"timing-changed": events.TimingChangedEvent{},
		"capture-error":  events.CaptureErrorEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribe := events.SubscribeCaptureEvents(s.eventBus, eventCh)
		defer unsubscribe()

		// Current state first so clients need no separate status request
		if s.capture != nil {
			state := s.capture.State()
			if err := send.Data(events.CaptureStateChangedEvent{
				State:     uint32(state),
				StateName: state.String(),
				Reason:    "connected",
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
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
