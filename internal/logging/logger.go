package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Logger is the subset of *slog.Logger that components depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config is the [logging] section of the configuration file.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// registry holds the process-wide logging state. Module loggers are handed
// out once and stay valid; configuration changes reach them through their
// LevelVar, or by swapping the handler when the output format changes.
type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	format      string
	global      slog.LevelVar
	modules     map[string]*moduleLogger
	buffer      *RingBuffer
	callback    LogCallback
}

func newRegistry() *registry {
	return &registry{format: "text", modules: make(map[string]*moduleLogger)}
}

var reg = newRegistry()

// Initialize applies config. It may be called again at runtime.
func Initialize(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config = config
	reg.initialized = true
	if reg.buffer == nil {
		reg.buffer = NewRingBuffer(defaultBufferSize)
	}

	global := levelOr(config.Level, slog.LevelInfo)
	reg.global.Set(global)

	format := "text"
	if config.Format == "json" {
		format = "json"
	}
	rebuild := format != reg.format
	reg.format = format

	for name, m := range reg.modules {
		m.level.Set(levelOr(config.Modules[name], global))
		if rebuild {
			*m.logger = *slog.New(newHandler(format, m.level)).With("module", name)
		}
	}

	slog.SetDefault(slog.New(newHandler(format, &reg.global)))
}

// SetLevel changes one module's level at runtime. An empty module changes
// the global level and every module without its own override. Changes are
// not written back to the configuration file.
func SetLevel(module, level string) error {
	parsed, ok := parseLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if module == "" {
		reg.config.Level = level
		reg.global.Set(parsed)
		for name, m := range reg.modules {
			if _, overridden := reg.config.Modules[name]; !overridden {
				m.level.Set(parsed)
			}
		}
		return nil
	}

	modules := make(map[string]string, len(reg.config.Modules)+1)
	for k, v := range reg.config.Modules {
		modules[k] = v
	}
	modules[module] = level
	reg.config.Modules = modules

	if m, ok := reg.modules[module]; ok {
		m.level.Set(parsed)
	}
	return nil
}

// Levels returns the effective level of every module logger created so far.
func Levels() map[string]string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	levels := make(map[string]string, len(reg.modules))
	for name, m := range reg.modules {
		levels[name] = levelToString(m.level.Level())
	}
	return levels
}

// GetBuffer returns the ring buffer of recent entries, nil before Initialize.
func GetBuffer() *RingBuffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.buffer
}

// SetLogCallback registers fn to receive every buffered entry.
func SetLogCallback(fn LogCallback) {
	reg.mu.Lock()
	reg.callback = fn
	reg.mu.Unlock()
}

// sinks returns the buffer and callback for the buffer handler.
func (r *registry) sinks() (*RingBuffer, LogCallback) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buffer, r.callback
}

// GetLogger returns the logger for module, creating it on first use. Every
// record it writes carries a "module" attribute.
func GetLogger(module string) *slog.Logger {
	reg.mu.RLock()
	m, ok := reg.modules[module]
	reg.mu.RUnlock()
	if ok {
		return m.logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if m, ok := reg.modules[module]; ok {
		return m.logger
	}

	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if reg.initialized {
		level.Set(levelOr(reg.config.Modules[module], levelOr(reg.config.Level, slog.LevelInfo)))
	}
	m = &moduleLogger{
		logger: slog.New(newHandler(reg.format, level)).With("module", module),
		level:  level,
	}
	reg.modules[module] = m
	return m.logger
}

// newHandler fans out to stdout (when it goes somewhere), journald (when
// running under systemd) and the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutUseful() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutUseful is false when stdout is closed or /dev/null, as under
// systemd with StandardOutput=null.
func stdoutUseful() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	if mode&os.ModeCharDevice != 0 {
		return true
	}
	return mode&(os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func levelOr(level string, fallback slog.Level) slog.Level {
	if parsed, ok := parseLevel(level); ok {
		return parsed
	}
	return fallback
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	_, ok := parseLevel(level)
	return ok
}
