// Package metrics provides Prometheus metrics for the capture pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vcapture",
		Subsystem: "capture",
		Name:      "state",
		Help:      "Raw driver status of the capture pipeline (1 = running)",
	})

	captureFrameIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vcapture",
		Subsystem: "capture",
		Name:      "frame_index",
		Help:      "Frame buffer armed for the next DMA write",
	})

	captureFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vcapture",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames written into the frame store",
	})

	captureOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcapture",
		Subsystem: "capture",
		Name:      "operations_total",
		Help:      "Capture operations by result",
	}, []string{"operation", "result"})

	captureErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcapture",
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Failed capture operations by error code",
	}, []string{"code"})

	inputWidth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vcapture",
		Subsystem: "input",
		Name:      "width_pixels",
		Help:      "Active width reported by the timing detector",
	})

	inputHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vcapture",
		Subsystem: "input",
		Name:      "height_lines",
		Help:      "Active height reported by the timing detector",
	})

	inputLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vcapture",
		Subsystem: "input",
		Name:      "locked",
		Help:      "Whether the timing detector is locked to a signal",
	})

	// Local cache for SSE exporter access.
	cache   CaptureMetrics
	cacheMu sync.RWMutex
)

// CaptureMetrics holds current metric values.
type CaptureMetrics struct {
	State      uint32
	FrameIndex int
	Width      int
	Height     int
	Locked     bool
	Frames     uint64
	Errors     uint64
}

// SetState records the pipeline state.
func SetState(state uint32) {
	captureState.Set(float64(state))
	updateCache(func(m *CaptureMetrics) { m.State = state })
}

// SetFrameIndex records the armed frame buffer.
func SetFrameIndex(index int) {
	captureFrameIndex.Set(float64(index))
	updateCache(func(m *CaptureMetrics) { m.FrameIndex = index })
}

// SetTiming records the detected input format. A zero size means no lock.
func SetTiming(width, height int) {
	locked := width > 0 && height > 0
	inputWidth.Set(float64(width))
	inputHeight.Set(float64(height))
	if locked {
		inputLocked.Set(1)
	} else {
		inputLocked.Set(0)
	}
	updateCache(func(m *CaptureMetrics) {
		m.Width, m.Height, m.Locked = width, height, locked
	})
}

// AddFrames counts frames written into the frame store.
func AddFrames(n uint64) {
	captureFrames.Add(float64(n))
	updateCache(func(m *CaptureMetrics) { m.Frames += n })
}

// RecordOperation counts one capture operation. code is the capture error
// code of a failed operation and ignored when err is nil.
func RecordOperation(operation string, err error, code string) {
	if err == nil {
		captureOperations.WithLabelValues(operation, "success").Inc()
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	captureOperations.WithLabelValues(operation, "error").Inc()
	captureErrors.WithLabelValues(code).Inc()
	updateCache(func(m *CaptureMetrics) { m.Errors++ })
}

// Get returns the current metric values.
func Get() CaptureMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return cache
}

func updateCache(update func(*CaptureMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	update(&cache)
}
