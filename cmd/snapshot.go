package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/spf13/cobra"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var opts SessionOptions
	var output string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "snapshot [index]",
		Short: "Capture one frame and write it as a PPM image",
		Long: `Starts capture, waits for the DMA engine to fill the armed buffer, stops capture and writes ` +
			`the frame buffer to a PPM file. With an index argument that buffer is armed and read instead of frame 0.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, explicit, err := capture.ParseFrameArgs(args)
			if err != nil {
				return err
			}

			session, err := OpenSession(opts)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := session.Close(); closeErr != nil {
					logging.GetLogger("capture").Error("Failed to close capture session", "error", closeErr)
				}
			}()

			return snapshot(cmd, session, index, explicit, wait, output)
		},
	}
	addSessionFlags(cmd, &opts)
	cmd.Flags().StringVarP(&output, "output", "o", "frame.ppm", "Output PPM file")
	cmd.Flags().DurationVar(&wait, "wait", 100*time.Millisecond, "Time to let the DMA engine write the frame")
	return standalone(cmd)
}

func snapshot(cmd *cobra.Command, session *Session, index int, explicit bool, wait time.Duration, output string) error {
	ctrl := session.Controller
	if explicit {
		if _, err := ctrl.SelectFrame(index); err != nil {
			return err
		}
	}

	if err := ctrl.Start(); err != nil {
		return err
	}
	if session.Sim != nil {
		if err := session.Sim.Tick(); err != nil {
			return err
		}
	}
	time.Sleep(wait)

	timing, err := ctrl.Timing()
	if err != nil {
		return err
	}
	if err := ctrl.Stop(); err != nil {
		return err
	}

	frame, err := ctrl.Frame()
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := WritePPM(f, frame, timing, capture.Stride); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote frame %d (%s) to %s\n", frame.Index(), timing, output)
	return nil
}
