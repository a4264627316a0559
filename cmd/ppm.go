package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/smazurov/vcapture/pkg/framestore"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// WritePPM writes the active area of frame as a binary PPM (P6) image.
// Lines are stride bytes apart in the buffer; only the first width pixels
// of each line are written.
func WritePPM(w io.Writer, frame framestore.View, timing xlnx.Timing, stride int) error {
	if !timing.Valid() {
		return fmt.Errorf("no frame geometry: %s", timing)
	}
	lineBytes := timing.Width * xlnx.BytesPerPixel
	if lineBytes > stride || timing.Height*stride > frame.Len() {
		return fmt.Errorf("frame %s does not fit %d byte buffer with stride %d", timing, frame.Len(), stride)
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", timing.Width, timing.Height); err != nil {
		return err
	}

	data := make([]byte, frame.Len())
	frame.CopyTo(data)
	for y := 0; y < timing.Height; y++ {
		if _, err := bw.Write(data[y*stride : y*stride+lineBytes]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
