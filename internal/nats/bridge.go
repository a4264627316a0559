package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Controller is the part of the capture service the bridge drives.
type Controller interface {
	Start() error
	Stop() error
	SelectFrame(index int) (int, error)
	NextFrame() (int, error)
	FrameIndex() int
	State() xlnx.State
}

// Bridge mirrors capture events from the event bus onto NATS and serves
// control requests on SubjectControl.
type Bridge struct {
	url      string
	eventBus *events.Bus
	ctrl     Controller
	conn     *nats.Conn
	sub      *nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a bridge between eventBus, ctrl and the NATS server at url.
func NewBridge(url string, eventBus *events.Bus, ctrl Controller, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		eventBus: eventBus,
		ctrl:     ctrl,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS, subscribes to control requests and begins
// forwarding bus events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errors.New("NATS bridge already started")
	}

	conn, err := nats.Connect(b.url,
		nats.Name("vcapture-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	if b.ctrl != nil {
		sub, subErr := conn.Subscribe(SubjectControl, b.handleControl)
		if subErr != nil {
			conn.Close()
			return fmt.Errorf("subscribe to %s: %w", SubjectControl, subErr)
		}
		b.sub = sub
		if flushErr := conn.Flush(); flushErr != nil {
			conn.Close()
			return fmt.Errorf("flush NATS subscriptions: %w", flushErr)
		}
	}
	b.conn = conn

	if b.eventBus != nil {
		b.unsubs = []func(){
			b.eventBus.Subscribe(func(e events.CaptureStateChangedEvent) { b.forward(KindState, e) }),
			b.eventBus.Subscribe(func(e events.FrameSelectedEvent) { b.forward(KindFrame, e) }),
			b.eventBus.Subscribe(func(e events.TimingChangedEvent) { b.forward(KindTiming, e) }),
			b.eventBus.Subscribe(func(e events.CaptureErrorEvent) { b.forward(KindError, e) }),
			b.eventBus.Subscribe(func(e events.CaptureMetricsEvent) { b.forward(KindMetrics, e) }),
		}
	}

	b.logger.Info("NATS bridge connected", "url", b.url)
	return nil
}

// Stop unsubscribes from the bus and NATS and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func (b *Bridge) forward(kind string, ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to encode capture event", "kind", kind, "error", err)
		return
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	if err := conn.Publish(SubjectCapture(kind), data); err != nil {
		b.logger.Debug("Failed to publish capture event", "kind", kind, "error", err)
	}
}

func (b *Bridge) handleControl(msg *nats.Msg) {
	req, err := UnmarshalControl(msg.Data)
	var reply ControlReply
	if err != nil {
		reply = ControlReply{Code: capture.ErrCodeInvalidArgument, Error: "malformed control message: " + err.Error()}
	} else {
		b.logger.Info("Control request", "action", req.Action, "index", req.Index, "reason", req.Reason)
		reply = b.apply(req)
	}

	data, err := reply.Marshal()
	if err != nil {
		b.logger.Error("Failed to encode control reply", "error", err)
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send control reply", "error", err)
	}
}

func (b *Bridge) apply(req ControlMessage) ControlReply {
	var err error
	switch req.Action {
	case ActionStatus:
	case ActionStart:
		err = b.ctrl.Start()
	case ActionStop:
		err = b.ctrl.Stop()
	case ActionNext:
		_, err = b.ctrl.NextFrame()
	case ActionSelect:
		_, err = b.ctrl.SelectFrame(req.Index)
	default:
		return ControlReply{Code: capture.ErrCodeInvalidArgument, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}

	state := b.ctrl.State()
	reply := ControlReply{
		OK:         err == nil,
		State:      uint32(state),
		StateName:  state.String(),
		FrameIndex: b.ctrl.FrameIndex(),
	}
	if err != nil {
		reply.Code = capture.CodeOf(err)
		reply.Error = err.Error()
	}
	return reply
}
