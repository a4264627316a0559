package models

import "github.com/smazurov/vcapture/internal/updater"

type UpdateCheckResponse struct {
	Body updater.UpdateInfo
}

type UpdateStatusResponse struct {
	Body updater.Status
}

// MessageData acknowledges an update action.
type MessageData struct {
	Message string `json:"message" example:"Restarting..." doc:"Status message"`
}

type MessageResponse struct {
	Body MessageData
}
