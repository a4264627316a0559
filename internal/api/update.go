package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vcapture/internal/api/models"
	"github.com/smazurov/vcapture/internal/updater"
)

// registerUpdateRoutes registers the self-update endpoints.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.UpdateService
	if svc == nil {
		return
	}

	if !svc.IsEnabled() {
		s.registerDisabledUpdateRoutes(svc.DisabledReason())
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Check if a newer release is available without downloading it",
		Tags:        []string{"update"},
		Errors:      []int{401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		info, err := svc.CheckForUpdate(ctx)
		if err != nil {
			return nil, updateError(err)
		}
		return &models.UpdateCheckResponse{Body: *info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Description: "Get the current update state and backup availability",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		return &models.UpdateStatusResponse{Body: *svc.GetStatus(ctx)}, nil
	})

	s.registerUpdateAction("apply-update", "/api/update/apply", "Apply Update",
		"Download and install the latest release, then restart. Refused while capture is running.",
		"Update applied, restarting...", svc.ApplyUpdate)
	s.registerUpdateAction("rollback-update", "/api/update/rollback", "Rollback Update",
		"Restore the previously installed binary, then restart. Refused while capture is running.",
		"Rollback complete, restarting...", svc.Rollback)
	s.registerUpdateAction("restart-service", "/api/update/restart", "Restart Service",
		"Restart the service without changing the binary. Refused while capture is running.",
		"Restarting...", svc.Restart)
}

func (s *Server) registerUpdateAction(id, path, summary, description, message string, fn func(context.Context) error) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"update"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := fn(ctx); err != nil {
			return nil, updateError(err)
		}
		return &models.MessageResponse{Body: models.MessageData{Message: message}}, nil
	})
}

// registerDisabledUpdateRoutes answers every update endpoint with 503.
func (s *Server) registerDisabledUpdateRoutes(reason string) {
	disabled := func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error503ServiceUnavailable("Update service disabled: " + reason)
	}

	routes := []struct {
		id, method, path, summary string
	}{
		{"check-updates", http.MethodGet, "/api/update/check", "Check for Updates"},
		{"get-update-status", http.MethodGet, "/api/update/status", "Get Update Status"},
		{"apply-update", http.MethodPost, "/api/update/apply", "Apply Update"},
		{"rollback-update", http.MethodPost, "/api/update/rollback", "Rollback Update"},
		{"restart-service", http.MethodPost, "/api/update/restart", "Restart Service"},
	}
	for _, r := range routes {
		huma.Register(s.api, huma.Operation{
			OperationID: r.id,
			Method:      r.method,
			Path:        r.path,
			Summary:     r.summary,
			Description: r.summary + " (disabled)",
			Tags:        []string{"update"},
			Errors:      []int{503},
			Security:    withAuth(),
		}, disabled)
	}
}

// updateError converts updater errors to Huma HTTP errors.
func updateError(err error) error {
	msg := err.Error()
	var ue *updater.Error
	if errors.As(err, &ue) {
		msg = ue.Message
	}
	switch updater.CodeOf(err) {
	case updater.ErrCodeInvalidState, updater.ErrCodeBusy:
		return huma.Error409Conflict(msg)
	case updater.ErrCodeNoUpdate:
		return huma.Error400BadRequest(msg)
	case updater.ErrCodeNotFound, updater.ErrCodeNoBackup:
		return huma.Error404NotFound(msg)
	case updater.ErrCodeDisabled:
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
