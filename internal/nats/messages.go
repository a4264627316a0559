package nats

import (
	"encoding/json"
	"fmt"
)

// Subjects used by the capture bridge.
const (
	SubjectPrefix  = "vcapture"
	SubjectControl = SubjectPrefix + ".control"
)

// Capture event kinds, appended to the capture subject prefix.
const (
	KindState   = "state"
	KindFrame   = "frame"
	KindTiming  = "timing"
	KindError   = "error"
	KindMetrics = "metrics"
)

// Control actions accepted on SubjectControl.
const (
	ActionStatus = "status"
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionNext   = "next"
	ActionSelect = "select"
)

// SubjectCapture returns the subject capture events of the given kind are
// published on.
func SubjectCapture(kind string) string {
	return fmt.Sprintf("%s.capture.%s", SubjectPrefix, kind)
}

// SubjectCaptureAll matches every capture event subject.
func SubjectCaptureAll() string {
	return SubjectCapture("*")
}

// ControlMessage is a request sent to the capture bridge.
type ControlMessage struct {
	Action    string `json:"action"`
	Index     int    `json:"index,omitempty"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl parses a control request.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// ControlReply is the bridge's answer to a ControlMessage.
type ControlReply struct {
	OK         bool   `json:"ok"`
	State      uint32 `json:"state"`
	StateName  string `json:"state_name"`
	FrameIndex int    `json:"frame_index"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Marshal serializes the reply to JSON.
func (r ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReply parses a control reply.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var r ControlReply
	err := json.Unmarshal(data, &r)
	return r, err
}
