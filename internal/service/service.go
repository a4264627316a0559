// Package service serializes access to a capture controller and announces
// its state changes. The API server and the LED manager only ever talk to
// the controller through a Service.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/metrics"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Operation names used in events and metrics.
const (
	OpStart       = "start"
	OpStop        = "stop"
	OpSelectFrame = "select_frame"
	OpNextFrame   = "next_frame"
	OpTiming      = "timing"
	OpReadFrame   = "read_frame"
	OpClose       = "close"
)

// Options configures a Service.
type Options struct {
	// EventBus receives state, frame, timing and error events (optional).
	EventBus *events.Bus

	// Logger for service operations. If nil, uses the "service" module logger.
	Logger logging.Logger
}

// Status is a point-in-time view of the capture session.
type Status struct {
	State      xlnx.State
	FrameIndex int
	Timing     xlnx.Timing
	Summary    string
}

// Frame is a copy of one frame buffer.
type Frame struct {
	Index int
	Data  []byte
}

// Service owns a Controller and serializes every call into it.
type Service struct {
	mu       sync.Mutex
	ctrl     *capture.Controller
	eventBus *events.Bus
	logger   logging.Logger

	timing xlnx.Timing
	probed bool
}

// New wraps ctrl. The service takes ownership: Close closes the controller.
func New(ctrl *capture.Controller, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("service")
	}

	s := &Service{
		ctrl:     ctrl,
		eventBus: opts.EventBus,
		logger:   logger,
	}
	metrics.SetState(uint32(ctrl.State()))
	metrics.SetFrameIndex(ctrl.FrameIndex())
	return s
}

// Snapshot returns the state, armed index, a fresh timing probe and the
// controller's diagnostic summary. Timing and Summary come from one probe.
func (s *Service) Snapshot() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timing, err := s.probeLocked()
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:      s.ctrl.State(),
		FrameIndex: s.ctrl.FrameIndex(),
		Timing:     timing,
		Summary:    s.ctrl.Summary(timing),
	}, nil
}

// State returns the last reported pipeline state.
func (s *Service) State() xlnx.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// FrameIndex returns the armed frame buffer.
func (s *Service) FrameIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.FrameIndex()
}

// Describe returns the controller's diagnostic summary.
func (s *Service) Describe() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.ctrl.Describe()
	if err != nil {
		return "", s.fail(OpTiming, err)
	}
	return summary, nil
}

// Start starts capture into the armed buffer.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(OpStart, s.ctrl.Start)
}

// Stop halts capture.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(OpStop, s.ctrl.Stop)
}

func (s *Service) transition(op string, fn func() error) error {
	before := s.ctrl.State()
	err := fn()
	after := s.ctrl.State()

	if after != before {
		metrics.SetState(uint32(after))
		s.publish(events.CaptureStateChangedEvent{
			State:     uint32(after),
			StateName: after.String(),
			Reason:    op,
			Timestamp: now(),
		})
		s.logger.Info("Capture state changed", "from", before.String(), "to", after.String(), "reason", op)
	}
	if err != nil {
		return s.fail(op, err)
	}
	metrics.RecordOperation(op, nil, "")

	if op == OpStart {
		// Start locks the detector, so the format is known now.
		if _, err := s.probeLocked(); err != nil {
			s.logger.Warn("Timing probe after start failed", "error", err)
		}
	}
	return nil
}

// SelectFrame arms the buffer at index and returns the index the driver
// confirmed.
func (s *Service) SelectFrame(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(OpSelectFrame, func() (int, error) { return s.ctrl.SelectFrame(index) })
}

// NextFrame advances the armed buffer by one, wrapping around the ring.
func (s *Service) NextFrame() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(OpNextFrame, s.ctrl.NextFrame)
}

func (s *Service) selectLocked(op string, fn func() (int, error)) (int, error) {
	previous := s.ctrl.FrameIndex()
	index, err := fn()
	if err != nil {
		return index, s.fail(op, err)
	}
	metrics.RecordOperation(op, nil, "")
	metrics.SetFrameIndex(index)

	if index != previous {
		s.publish(events.FrameSelectedEvent{
			Index:     index,
			Previous:  previous,
			Timestamp: now(),
		})
	}
	return index, nil
}

// Timing probes the timing detector.
func (s *Service) Timing() (xlnx.Timing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeLocked()
}

// probeLocked probes the detector, records the result and publishes a
// TimingChangedEvent when the format differs from the previous probe.
func (s *Service) probeLocked() (xlnx.Timing, error) {
	timing, err := s.ctrl.Timing()
	if err != nil {
		return xlnx.Timing{}, s.fail(OpTiming, err)
	}

	if !s.probed || timing != s.timing {
		s.timing = timing
		s.probed = true
		metrics.SetTiming(timing.Width, timing.Height)
		s.publish(events.TimingChangedEvent{
			Width:     timing.Width,
			Height:    timing.Height,
			Locked:    timing.Valid(),
			Timestamp: now(),
		})
		s.logger.Debug("Input timing changed", "timing", timing.String())
	}
	return timing, nil
}

// ReadFrame copies the buffer selected by args: none for the armed buffer,
// or one decimal index.
func (s *Service) ReadFrame(args ...string) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.ctrl.ReadFrame(args...)
	if err != nil {
		return Frame{}, s.fail(OpReadFrame, err)
	}
	data := make([]byte, view.Len())
	view.CopyTo(data)
	return Frame{Index: view.Index(), Data: data}, nil
}

// Close tears the controller down. It may be retried after a failure.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(OpClose, s.ctrl.Close)
}

// Tick runs fn while holding the session lock. Simulated DMA uses it so
// frame writes never interleave with a ReadFrame copy.
func (s *Service) Tick(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// FrameSource is a peripheral that can emulate frame transfers.
type FrameSource interface {
	Tick() error
	Frames() uint64
}

// Pump drives src every interval until ctx is done and counts the written
// frames.
func (s *Service) Pump(ctx context.Context, src FrameSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := src.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(src.Tick); err != nil {
				s.logger.Warn("Simulated frame transfer failed", "error", err)
				continue
			}
			if n := src.Frames(); n > last {
				metrics.AddFrames(n - last)
				last = n
			}
		}
	}
}

// fail records a failed operation and publishes a CaptureErrorEvent.
func (s *Service) fail(op string, err error) error {
	code := capture.CodeOf(err)
	metrics.RecordOperation(op, err, code)
	s.publish(events.CaptureErrorEvent{
		Operation: op,
		Code:      code,
		Error:     err.Error(),
		Timestamp: now(),
	})
	s.logger.Warn("Capture operation failed", "operation", op, "code", code, "error", err)
	return err
}

func (s *Service) publish(ev events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

func (s *Service) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprint(s.ctrl)
}
