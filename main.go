package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/vcapture/cmd"
	"github.com/smazurov/vcapture/internal/api"
	"github.com/smazurov/vcapture/internal/config"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/led"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/metrics/exporters"
	"github.com/smazurov/vcapture/internal/nats"
	"github.com/smazurov/vcapture/internal/service"
	"github.com/smazurov/vcapture/internal/systemd"
	"github.com/smazurov/vcapture/internal/updater"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Hardware settings
	Simulate    bool   `help:"Use the simulated capture peripheral" default:"false" toml:"hardware.simulate" env:"HARDWARE_SIMULATE"`
	SimulateFPS int    `help:"Frame rate of the simulated peripheral" default:"30" toml:"hardware.simulate_fps" env:"HARDWARE_SIMULATE_FPS"`
	UDMABuf     string `help:"u-dma-buf device for frame buffers (e.g. udmabuf0)" default:"" toml:"hardware.udmabuf" env:"HARDWARE_UDMABUF"`
	AutoStart   bool   `help:"Start capture once the pipeline is configured" default:"false" toml:"hardware.auto_start" env:"HARDWARE_AUTO_START"`

	// Observability settings
	MetricsSSEInterval string `help:"Interval between SSE metrics samples" default:"1s" toml:"metrics.sse_interval" env:"METRICS_SSE_INTERVAL"`
	MetricsPrometheus  bool   `help:"Expose /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`

	// NATS settings
	NatsEnabled  bool   `help:"Mirror capture events and accept control requests over NATS" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsEmbedded bool   `help:"Run an embedded NATS server" default:"true" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsURL      string `help:"External NATS server URL (when not embedded)" default:"nats://127.0.0.1:4222" toml:"nats.url" env:"NATS_URL"`
	NatsPort     int    `help:"Port for the embedded NATS server" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Update settings
	UpdateEnabled    bool   `help:"Enable self-update endpoints" default:"true" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository releases are fetched from" default:"smazurov/vcapture" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`
	UpdateChecksums  string `help:"Release asset with SHA-256 sums (empty disables validation)" default:"checksums.txt" toml:"update.checksums" env:"UPDATE_CHECKSUMS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture controller logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingDriver  string `help:"Hardware driver logging level" default:"info" toml:"logging.driver" env:"LOGGING_DRIVER"`
	LoggingService string `help:"Capture service logging level" default:"info" toml:"logging.service" env:"LOGGING_SERVICE"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingLED     string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingNATS    string `help:"NATS bridge logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"driver":  opts.LoggingDriver,
				"service": opts.LoggingService,
				"api":     opts.LoggingAPI,
				"led":     opts.LoggingLED,
				"nats":    opts.LoggingNATS,
			},
		})

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward buffered log entries to SSE clients
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		session, err := cmd.OpenSession(cmd.SessionOptions{
			ConfigPath: opts.Config,
			Simulate:   opts.Simulate,
			UDMABuf:    opts.UDMABuf,
		})
		if err != nil {
			logger.Error("Failed to initialize video capture", "error", err)
			os.Exit(1)
		}

		captureService := service.New(session.Controller, service.Options{
			EventBus: eventBus,
			Logger:   logging.GetLogger("service"),
		})

		// Initialize LED control if enabled
		var ledManager *led.Manager
		var ledController led.Controller
		ledConfig, err := config.LoadLEDConfig(opts.Config)
		if err != nil {
			logger.Warn("Failed to load LED config", "error", err)
		}
		if ledConfig.Enabled {
			ledLogger := logging.GetLogger("led")
			ledController = led.New(ledLogger, ledConfig.Names)
			ledManager = led.NewManager(ledController, eventBus, ledLogger)
		}

		var updateService updater.Service
		if opts.UpdateEnabled {
			updateService, err = updater.NewService(updater.Options{
				Repository:   opts.UpdateRepository,
				Prerelease:   opts.UpdatePrerelease,
				ChecksumFile: opts.UpdateChecksums,
				Guard: func() error {
					if captureService.State() == xlnx.StateRunning {
						return errors.New("capture is running; stop it first")
					}
					return nil
				},
			})
			if err != nil {
				logger.Warn("Self-update unavailable", "error", err)
			}
		}

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			Capture:       captureService,
			EventBus:      eventBus,
			LEDController: ledController,
			UpdateService: updateService,
		}
		if opts.MetricsPrometheus {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		sseExporter := exporters.NewSSEExporter(eventBus)
		if interval, parseErr := time.ParseDuration(opts.MetricsSSEInterval); parseErr == nil {
			sseExporter.SetInterval(interval)
		} else {
			logger.Warn("Invalid metrics SSE interval, using default", "value", opts.MetricsSSEInterval)
		}

		var natsServer *nats.Server
		var natsBridge *nats.Bridge
		if opts.NatsEnabled {
			natsLogger := logging.GetLogger("nats")
			natsURL := opts.NatsURL
			if opts.NatsEmbedded {
				natsServer = nats.NewServer(nats.ServerOptions{Port: opts.NatsPort, Logger: natsLogger})
				natsURL = natsServer.ClientURL()
			}
			natsBridge = nats.NewBridge(natsURL, eventBus, captureService, natsLogger)
		}

		notifier := systemd.NewNotifier(nil, logging.GetLogger("systemd"))

		ctx, cancel := context.WithCancel(context.Background())
		var logWatcher *config.Watcher[logging.Config]

		hooks.OnStart(func() {
			if ledManager != nil {
				ledManager.Start()
			}
			sseExporter.Start(ctx)

			if session.Sim != nil && opts.SimulateFPS > 0 {
				logger.Info("Running with simulated capture hardware", "fps", opts.SimulateFPS)
				go captureService.Pump(ctx, session.Sim, time.Second/time.Duration(opts.SimulateFPS))
			}

			if natsServer != nil {
				if natsErr := natsServer.Start(); natsErr != nil {
					logger.Error("Failed to start embedded NATS server", "error", natsErr)
					natsBridge = nil
				}
			}
			if natsBridge != nil {
				if natsErr := natsBridge.Start(); natsErr != nil {
					logger.Warn("NATS bridge unavailable", "error", natsErr)
				}
			}

			if opts.AutoStart {
				if startErr := captureService.Start(); startErr != nil {
					logger.Warn("Auto start failed", "error", startErr)
				}
			}

			if w, watchErr := config.WatchLogging(opts.Config, logging.GetLogger("config")); watchErr != nil {
				logger.Debug("Logging hot reload disabled", "error", watchErr)
			} else {
				logWatcher = w
			}

			notifier.Ready(eventBus)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if logWatcher != nil {
				if stopErr := logWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}

			if natsBridge != nil {
				natsBridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}

			cancel()
			sseExporter.Stop()
			if ledManager != nil {
				ledManager.Stop()
			}

			// Controller teardown last; DMA must be quiet before buffers go
			if closeErr := captureService.Close(); closeErr != nil {
				logger.Error("Failed to close video capture", "error", closeErr)
			}
			if closeErr := session.Close(); closeErr != nil {
				logger.Error("Failed to release frame buffer memory", "error", closeErr)
			}
		})
	})

	cli.Root().Use = "vcapture"
	cli.Root().Short = "FPGA video capture controller"

	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateSnapshotCmd())
	cli.Root().AddCommand(cmd.CreateValidateConfigCmd())
	cli.Root().AddCommand(cmd.CreateCtlCmd())

	// Run the CLI
	cli.Run()
}
