// Package cmd holds the vcapture subcommands and the session setup shared
// with the service command.
package cmd

import (
	"fmt"

	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/config"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/sim"
	"github.com/smazurov/vcapture/pkg/framestore"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// SessionOptions selects the peripheral behind a capture session.
type SessionOptions struct {
	// ConfigPath is the TOML file with the [capture] tables.
	ConfigPath string

	// Simulate replaces the hardware with an in-memory peripheral.
	Simulate bool

	// UDMABuf names a u-dma-buf device to allocate frame buffers from,
	// e.g. "udmabuf0". Empty uses the Go heap, which only works with
	// simulated hardware or an IOMMU-backed DMA engine.
	UDMABuf string
}

// Session is an open capture controller plus the resources behind it.
type Session struct {
	Controller *capture.Controller

	// Sim is the simulated peripheral, nil on real hardware.
	Sim *sim.Driver

	udmabuf *framestore.UDMABuf
}

// OpenSession loads the peripheral description and initializes a
// controller on it.
func OpenSession(opts SessionOptions) (*Session, error) {
	cfg, err := config.LoadCaptureConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &Session{}
	ctrlOpts := capture.Options{Logger: logging.GetLogger("capture")}
	var drv capture.Driver

	if opts.Simulate {
		mem := sim.NewMemory(0)
		s.Sim = sim.NewDriver(mem)
		drv = s.Sim
		ctrlOpts.Allocator = mem
	} else {
		drv = xlnx.NewDriver(xlnx.DriverOptions{Logger: logging.GetLogger("driver")})
		if opts.UDMABuf != "" {
			s.udmabuf, err = framestore.OpenUDMABuf(opts.UDMABuf)
			if err != nil {
				return nil, fmt.Errorf("open frame buffer memory: %w", err)
			}
			ctrlOpts.Allocator = s.udmabuf
		}
	}

	s.Controller, err = capture.New(drv, cfg, ctrlOpts)
	if err != nil {
		if s.udmabuf != nil {
			_ = s.udmabuf.Close()
		}
		return nil, err
	}
	return s, nil
}

// Close tears the controller down and unmaps buffer memory.
func (s *Session) Close() error {
	if err := s.Controller.Close(); err != nil {
		return err
	}
	if s.udmabuf != nil {
		return s.udmabuf.Close()
	}
	return nil
}
