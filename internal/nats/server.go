package nats

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerOptions configures the embedded NATS server.
type ServerOptions struct {
	Port         int // negative picks a free port
	Host         string
	Name         string
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// DefaultServerOptions returns the defaults for the embedded server.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Port:         4222,
		Host:         "127.0.0.1",
		Name:         "vcapture",
		ReadyTimeout: 5 * time.Second,
	}
}

// Server is an embedded NATS server so remote tools can reach the capture
// bridge without a separate broker.
type Server struct {
	mu     sync.Mutex
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer fills unset options from DefaultServerOptions.
func NewServer(opts ServerOptions) *Server {
	defaults := DefaultServerOptions()
	if opts.Port == 0 {
		opts.Port = defaults.Port
	}
	if opts.Host == "" {
		opts.Host = defaults.Host
	}
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaults.ReadyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start runs the server and waits until it accepts connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ns != nil {
		return errors.New("NATS server already running")
	}

	port := s.opts.Port
	if port < 0 {
		port = server.RANDOM_PORT
	}

	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       port,
		ServerName: s.opts.Name,
		NoSigs:     true,
		// Control replies and capture events are small JSON documents
		MaxPayload: 64 * 1024,
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}
	ns.SetLoggerV2(serverLogger{s.logger}, false, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(s.opts.ReadyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready within %s", s.opts.ReadyTimeout)
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", ns.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ns == nil {
		return
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
	s.logger.Info("NATS server stopped")
}

// ClientURL returns the URL clients connect to. Before Start it is derived
// from the configured address.
func (s *Server) ClientURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns != nil && s.ns.Running()
}

func (s *Server) NumClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns == nil {
		return 0
	}
	return s.ns.NumClients()
}

// serverLogger routes nats-server output into slog. Notices are debug level;
// the server is chatty on startup.
type serverLogger struct {
	logger *slog.Logger
}

func (l serverLogger) Noticef(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l serverLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l serverLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l serverLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l serverLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l serverLogger) Tracef(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
