package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetTiming(t *testing.T) {
	SetTiming(1280, 720)
	got := Get()
	if got.Width != 1280 || got.Height != 720 || !got.Locked {
		t.Errorf("Get() = %+v, want locked 1280x720", got)
	}
	if v := testutil.ToFloat64(inputLocked); v != 1 {
		t.Errorf("input_locked = %v, want 1", v)
	}

	SetTiming(0, 0)
	if Get().Locked {
		t.Error("zero timing should clear lock")
	}
	if v := testutil.ToFloat64(inputLocked); v != 0 {
		t.Errorf("input_locked = %v, want 0", v)
	}
}

func TestStateAndIndex(t *testing.T) {
	SetState(1)
	SetFrameIndex(2)

	got := Get()
	if got.State != 1 || got.FrameIndex != 2 {
		t.Errorf("Get() = %+v", got)
	}
	if v := testutil.ToFloat64(captureFrameIndex); v != 2 {
		t.Errorf("frame_index = %v, want 2", v)
	}
}

func TestRecordOperation(t *testing.T) {
	before := Get().Errors
	successBefore := testutil.ToFloat64(captureOperations.WithLabelValues("select", "success"))
	rangeBefore := testutil.ToFloat64(captureErrors.WithLabelValues("OUT_OF_RANGE"))

	RecordOperation("select", nil, "")
	RecordOperation("select", errors.New("bad index"), "OUT_OF_RANGE")
	RecordOperation("start", errors.New("boom"), "")

	if v := testutil.ToFloat64(captureOperations.WithLabelValues("select", "success")); v != successBefore+1 {
		t.Errorf("select success = %v, want %v", v, successBefore+1)
	}
	if v := testutil.ToFloat64(captureErrors.WithLabelValues("OUT_OF_RANGE")); v != rangeBefore+1 {
		t.Errorf("OUT_OF_RANGE errors = %v, want %v", v, rangeBefore+1)
	}
	if v := testutil.ToFloat64(captureErrors.WithLabelValues("UNKNOWN")); v < 1 {
		t.Errorf("UNKNOWN errors = %v, want >= 1", v)
	}
	if got := Get().Errors; got != before+2 {
		t.Errorf("Errors = %d, want %d", got, before+2)
	}
}

func TestAddFrames(t *testing.T) {
	before := Get().Frames
	AddFrames(3)
	if got := Get().Frames; got != before+3 {
		t.Errorf("Frames = %d, want %d", got, before+3)
	}
}
