package events

// Event type constants for kelindar/event.
const (
	TypeCaptureStateChanged uint32 = iota + 1
	TypeFrameSelected
	TypeTimingChanged
	TypeCaptureError
	TypeCaptureMetrics
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStateChangedEvent is published after start, stop or close changes
// the pipeline state. Used for LED control and SSE clients.
type CaptureStateChangedEvent struct {
	State     uint32 `json:"state" example:"1" doc:"Raw driver status"`
	StateName string `json:"state_name" example:"running" doc:"Readable driver status"`
	Reason    string `json:"reason" example:"start" doc:"Operation that caused the change"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateChangedEvent.
func (e CaptureStateChangedEvent) Type() uint32 { return TypeCaptureStateChanged }

// IsRunning reports whether the new state is the running state.
func (e CaptureStateChangedEvent) IsRunning() bool {
	return e.StateName == "running"
}

// FrameSelectedEvent is published when the armed frame buffer changes.
type FrameSelectedEvent struct {
	Index     int    `json:"index" example:"2" doc:"Armed frame buffer"`
	Previous  int    `json:"previous" example:"1" doc:"Previously armed frame buffer"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameSelectedEvent.
func (e FrameSelectedEvent) Type() uint32 { return TypeFrameSelected }

// TimingChangedEvent is published when a probe sees a different input
// format than the previous probe. A zero size means the detector lost lock.
type TimingChangedEvent struct {
	Width     int    `json:"width" example:"1920" doc:"Detected active width in pixels"`
	Height    int    `json:"height" example:"1080" doc:"Detected active height in lines"`
	Locked    bool   `json:"locked" example:"true" doc:"Whether the detector reports a signal"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TimingChangedEvent.
func (e TimingChangedEvent) Type() uint32 { return TypeTimingChanged }

// CaptureErrorEvent represents a failed capture operation.
type CaptureErrorEvent struct {
	Operation string `json:"operation" example:"start" doc:"Operation that failed"`
	Code      string `json:"code" example:"DRIVER_ERROR" doc:"Capture error code"`
	Error     string `json:"error" example:"no video signal detected" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// CaptureMetricsEvent is a periodic metrics sample for SSE clients.
type CaptureMetricsEvent struct {
	EventType  string `json:"type"`
	State      uint32 `json:"state"`
	FrameIndex int    `json:"frame_index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Frames     uint64 `json:"frames"`
	FPS        string `json:"fps"`
	Errors     uint64 `json:"errors"`
}

// Type returns the event type identifier for CaptureMetricsEvent.
func (e CaptureMetricsEvent) Type() uint32 { return TypeCaptureMetrics }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
