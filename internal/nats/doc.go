// Package nats mirrors capture events onto NATS and accepts remote control
// requests, so tools on other hosts can follow and drive a capture node.
//
// Components:
//   - Server: optional embedded NATS server running in the service process
//   - Bridge: forwards event bus traffic to NATS and answers control requests
//   - ControlClient: used by "vcapture ctl" to send requests and watch events
//
// Subjects:
//
//	vcapture.capture.state     # capture started or stopped
//	vcapture.capture.frame     # armed frame buffer changed
//	vcapture.capture.timing    # detected input timing changed
//	vcapture.capture.error     # a capture operation failed
//	vcapture.capture.metrics   # periodic metrics sample
//	vcapture.control           # request/reply control channel
//
// Debugging with the nats CLI:
//
//	nats sub "vcapture.capture.>" -s nats://localhost:4222
//	nats req vcapture.control '{"action":"status"}'
//	nats req vcapture.control '{"action":"select","index":2,"reason":"manual"}'
//
// Control replies carry the resulting state and frame index, plus the
// capture error code when the action failed:
//
//	{"ok":false,"state":1,"state_name":"running","frame_index":2,
//	 "code":"OUT_OF_RANGE","error":"..."}
package nats
