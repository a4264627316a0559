package models

import (
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Capture models
type CaptureStatusData struct {
	State      uint32 `json:"state" example:"1" doc:"Raw driver status (1 = running)"`
	StateName  string `json:"state_name" example:"running" doc:"Readable driver status"`
	FrameIndex int    `json:"frame_index" example:"0" doc:"Frame buffer armed for the next DMA write"`
	FrameCount int    `json:"frame_count" example:"3" doc:"Number of frame buffers in the ring"`
	Width      int    `json:"width" example:"1920" doc:"Detected active width in pixels"`
	Height     int    `json:"height" example:"1080" doc:"Detected active height in lines"`
	Summary    string `json:"summary" doc:"Diagnostic summary"`
}

type CaptureStatusResponse struct {
	Body CaptureStatusData
}

type FrameIndexData struct {
	Index int `json:"index" example:"1" doc:"Armed frame buffer"`
}

type FrameIndexResponse struct {
	Body FrameIndexData
}

type FrameIndexRequest struct {
	Body struct {
		Index int `json:"index" example:"1" doc:"Frame buffer to arm"`
	}
}

type TimingData struct {
	Width  int  `json:"width" example:"1920" doc:"Detected active width in pixels"`
	Height int  `json:"height" example:"1080" doc:"Detected active height in lines"`
	Locked bool `json:"locked" example:"true" doc:"Whether the detector reports a signal"`
}

type TimingResponse struct {
	Body TimingData
}

type FrameRequest struct {
	Index string `query:"index" example:"2" doc:"Frame buffer to read; the armed buffer when omitted"`
}

type FrameResponse struct {
	ContentType string `header:"Content-Type"`
	FrameIndex  int    `header:"X-Frame-Index"`
	Stride      int    `header:"X-Frame-Stride"`
	Body        []byte
}

// Log level models
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Effective level of every module logger"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type LogLevelRequest struct {
	Body struct {
		Module string `json:"module,omitempty" example:"capture" doc:"Module to change; all modules when empty"`
		Level  string `json:"level" example:"debug" enum:"debug,info,warn,error" doc:"New log level"`
	}
}

// LogQuery filters recent and streamed log entries.
type LogQuery struct {
	Module string `query:"module" example:"capture" doc:"Only entries from this module"`
	Level  string `query:"level" example:"warn" doc:"Minimum level"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"200" doc:"Newest entries to return (0 for all buffered)"`
}

type LogEntriesData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries, oldest first"`
}

type LogEntriesResponse struct {
	Body LogEntriesData
}

// VersionResponse reports the running build.
type VersionResponse struct {
	Body version.Info
}

// LEDRequest switches a board LED.
type LEDRequest struct {
	Body struct {
		Type    string  `json:"type" example:"user" doc:"LED type (board-specific: user, system, ...)"`
		Enabled bool    `json:"enabled" example:"true" doc:"Whether the LED should be on"`
		Pattern *string `json:"pattern,omitempty" example:"blink" doc:"Optional pattern (solid, blink, heartbeat) or raw kernel trigger"`
	}
}

// LEDCapabilitiesData lists the LEDs and patterns of the board.
type LEDCapabilitiesData struct {
	AvailableTypes    []string `json:"available_types" doc:"LED types configured on this board"`
	AvailablePatterns []string `json:"available_patterns" doc:"Named LED patterns"`
}

// LEDCapabilitiesResponse wraps LEDCapabilitiesData.
type LEDCapabilitiesResponse struct {
	Body LEDCapabilitiesData
}
