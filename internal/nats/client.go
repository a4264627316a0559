package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// EventHandler receives a capture event kind and its JSON payload.
type EventHandler func(kind string, data []byte)

// ControlClient talks to a running capture bridge: it sends control
// requests and can watch the capture event subjects.
type ControlClient struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
	mu     sync.Mutex
}

// NewControlClient connects to the NATS server at url.
func NewControlClient(url string, logger *slog.Logger) (*ControlClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("vcapture-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &ControlClient{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// Request sends action to the bridge and waits for its reply. The index is
// only read by ActionSelect.
func (c *ControlClient) Request(ctx context.Context, action string, index int, reason string) (ControlReply, error) {
	msg := ControlMessage{
		Action:    action,
		Index:     index,
		Timestamp: time.Now().Format(time.RFC3339),
		Reason:    reason,
	}
	data, err := msg.Marshal()
	if err != nil {
		return ControlReply{}, err
	}

	resp, err := c.conn.RequestWithContext(ctx, SubjectControl, data)
	if err != nil {
		return ControlReply{}, fmt.Errorf("%s request: %w", action, err)
	}

	reply, err := UnmarshalReply(resp.Data)
	if err != nil {
		return ControlReply{}, fmt.Errorf("decode %s reply: %w", action, err)
	}
	c.logger.Debug("Control reply", "action", action, "ok", reply.OK, "state", reply.StateName)
	return reply, nil
}

// Watch calls fn for every capture event published by the bridge.
func (c *ControlClient) Watch(fn EventHandler) error {
	prefix := len(SubjectCapture(""))
	sub, err := c.conn.Subscribe(SubjectCaptureAll(), func(msg *nats.Msg) {
		fn(msg.Subject[prefix:], msg.Data)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	// Make sure the subscription is registered before events are expected
	return c.conn.Flush()
}

// Close drops all watches and closes the connection.
func (c *ControlClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
	c.conn.Close()
}
