package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes capture metrics as events.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	lastFrames uint64
	lastSample time.Time
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// SetInterval changes the sampling interval. Must be called before Start.
func (s *SSEExporter) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.lastSample = time.Now()
	s.lastFrames = metrics.Get().Frames
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.publishMetrics(now)
		}
	}
}

func (s *SSEExporter) publishMetrics(now time.Time) {
	m := metrics.Get()

	var fps float64
	if elapsed := now.Sub(s.lastSample).Seconds(); elapsed > 0 && m.Frames >= s.lastFrames {
		fps = float64(m.Frames-s.lastFrames) / elapsed
	}
	s.lastFrames, s.lastSample = m.Frames, now

	s.eventBus.Publish(events.CaptureMetricsEvent{
		EventType:  "capture_metrics",
		State:      m.State,
		FrameIndex: m.FrameIndex,
		Width:      m.Width,
		Height:     m.Height,
		Frames:     m.Frames,
		FPS:        strconv.FormatFloat(fps, 'f', 2, 64),
		Errors:     m.Errors,
	})
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"capture-metrics": events.CaptureMetricsEvent{},
	}
}
