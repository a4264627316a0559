package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vcapture/internal/api/models"
	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/service"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// captureError maps a capture error code onto an HTTP status.
func captureError(msg string, err error) error {
	switch capture.CodeOf(err) {
	case capture.ErrCodeOutOfRange:
		return huma.Error422UnprocessableEntity(msg, err)
	case capture.ErrCodeInvalidArgument:
		return huma.Error400BadRequest(msg, err)
	case capture.ErrCodeInitializationFailed, capture.ErrCodeClosed:
		return huma.Error503ServiceUnavailable(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

func statusBody(st service.Status) models.CaptureStatusData {
	return models.CaptureStatusData{
		State:      uint32(st.State),
		StateName:  st.State.String(),
		FrameIndex: st.FrameIndex,
		FrameCount: capture.FrameCount,
		Width:      st.Timing.Width,
		Height:     st.Timing.Height,
		Summary:    st.Summary,
	}
}

func timingBody(t xlnx.Timing) models.TimingData {
	return models.TimingData{
		Width:  t.Width,
		Height: t.Height,
		Locked: t.Valid(),
	}
}

// registerCaptureRoutes registers the capture control endpoints.
func (s *Server) registerCaptureRoutes() {
	if s.capture == nil {
		s.logger.Warn("Capture service not available, skipping capture routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture",
		Method:      http.MethodGet,
		Path:        "/api/capture",
		Summary:     "Capture Status",
		Description: "Get the pipeline state, armed frame buffer and a fresh timing probe",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		st, err := s.capture.Snapshot()
		if err != nil {
			return nil, captureError("Failed to read capture status", err)
		}
		return &models.CaptureStatusResponse{Body: statusBody(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/start",
		Summary:     "Start Capture",
		Description: "Release the pipeline from reset and start DMA into the armed frame buffer",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		if err := s.capture.Start(); err != nil {
			return nil, captureError("Failed to start capture", err)
		}
		st, err := s.capture.Snapshot()
		if err != nil {
			return nil, captureError("Failed to read capture status", err)
		}
		return &models.CaptureStatusResponse{Body: statusBody(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/stop",
		Summary:     "Stop Capture",
		Description: "Halt DMA and hold the pipeline in reset",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		if err := s.capture.Stop(); err != nil {
			return nil, captureError("Failed to stop capture", err)
		}
		st, err := s.capture.Snapshot()
		if err != nil {
			return nil, captureError("Failed to read capture status", err)
		}
		return &models.CaptureStatusResponse{Body: statusBody(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-index",
		Method:      http.MethodGet,
		Path:        "/api/capture/frame-index",
		Summary:     "Get Frame Index",
		Description: "Get the frame buffer armed for the next DMA write",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.FrameIndexResponse, error) {
		return &models.FrameIndexResponse{
			Body: models.FrameIndexData{Index: s.capture.FrameIndex()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-frame-index",
		Method:      http.MethodPut,
		Path:        "/api/capture/frame-index",
		Summary:     "Set Frame Index",
		Description: "Arm a frame buffer for the next DMA write. Returns the index confirmed by the hardware.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422, 500, 503},
	}, func(_ context.Context, input *models.FrameIndexRequest) (*models.FrameIndexResponse, error) {
		index, err := s.capture.SelectFrame(input.Body.Index)
		if err != nil {
			return nil, captureError("Failed to select frame", err)
		}
		return &models.FrameIndexResponse{Body: models.FrameIndexData{Index: index}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "next-frame-index",
		Method:      http.MethodPost,
		Path:        "/api/capture/frame-index/next",
		Summary:     "Advance Frame Index",
		Description: "Arm the next frame buffer in the ring, wrapping after the last one",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.FrameIndexResponse, error) {
		index, err := s.capture.NextFrame()
		if err != nil {
			return nil, captureError("Failed to advance frame", err)
		}
		return &models.FrameIndexResponse{Body: models.FrameIndexData{Index: index}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-timing",
		Method:      http.MethodGet,
		Path:        "/api/capture/timing",
		Summary:     "Input Timing",
		Description: "Probe the timing detector. A zero size means no signal.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.TimingResponse, error) {
		timing, err := s.capture.Timing()
		if err != nil {
			return nil, captureError("Failed to probe timing", err)
		}
		return &models.TimingResponse{Body: timingBody(timing)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/api/capture/frame",
		Summary:     "Read Frame",
		Description: "Download one frame buffer as raw RGB bytes with a fixed line stride",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422, 503},
	}, func(_ context.Context, input *models.FrameRequest) (*models.FrameResponse, error) {
		var args []string
		if input.Index != "" {
			args = append(args, input.Index)
		}
		frame, err := s.capture.ReadFrame(args...)
		if err != nil {
			return nil, captureError("Failed to read frame", err)
		}
		return &models.FrameResponse{
			ContentType: "application/octet-stream",
			FrameIndex:  frame.Index,
			Stride:      capture.Stride,
			Body:        frame.Data,
		}, nil
	})
}
