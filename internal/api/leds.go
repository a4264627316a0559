package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vcapture/internal/api/models"
)

// registerLEDRoutes exposes manual LED control. The LED manager keeps
// driving the status LED from capture events; a manual setting lasts until
// the next state change.
func (s *Server) registerLEDRoutes() {
	leds := s.options.LEDController
	if leds == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Switch an LED and optionally apply a pattern",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LEDRequest) (*struct{}, error) {
		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}
		if err := leds.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("Failed to control LED", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "Get LED Capabilities",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LEDCapabilitiesResponse, error) {
		return &models.LEDCapabilitiesResponse{Body: models.LEDCapabilitiesData{
			AvailableTypes:    leds.Available(),
			AvailablePatterns: leds.Patterns(),
		}}, nil
	})
}
