package led

import (
	"sync"

	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/logging"
)

// SystemLED is the LED type driven by the manager.
const SystemLED = "system"

// Manager subscribes to capture events and drives the system LED: solid
// while capture runs with a locked input, blinking otherwise.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	unsubscribe []func()
	logger      logging.Logger

	mu      sync.Mutex
	running bool
	locked  bool
	pattern string
}

// NewManager creates a new LED manager that reacts to capture state changes
func NewManager(controller Controller, eventBus *events.Bus, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetLogger("led")
	}
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		locked:     true,
	}
}

// Start shows the idle pattern and begins listening for capture events
func (m *Manager) Start() {
	m.mu.Lock()
	m.apply()
	m.mu.Unlock()

	m.unsubscribe = append(m.unsubscribe,
		m.eventBus.Subscribe(m.handleState),
		m.eventBus.Subscribe(m.handleTiming),
	)
	m.logger.Info("LED manager started")
}

// Stop unsubscribes from events
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleState(e events.CaptureStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = e.IsRunning()
	m.logger.Debug("Capture state changed", "state", e.StateName, "reason", e.Reason)
	m.apply()
}

func (m *Manager) handleTiming(e events.TimingChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locked = e.Locked
	m.logger.Debug("Input timing changed", "width", e.Width, "height", e.Height, "locked", e.Locked)
	m.apply()
}

// apply sets the LED pattern for the current state. Callers hold m.mu.
func (m *Manager) apply() {
	pattern := "blink"
	if m.running && m.locked {
		pattern = "solid"
	}
	if pattern == m.pattern {
		return
	}

	if err := m.controller.Set(SystemLED, true, pattern); err != nil {
		m.logger.Warn("Failed to set system LED", "pattern", pattern, "error", err)
		return
	}
	m.pattern = pattern
	m.logger.Debug("System LED updated", "pattern", pattern)
}

// Pattern returns the pattern last applied to the system LED.
func (m *Manager) Pattern() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pattern
}

// GetController returns the underlying LED controller for direct API access
func (m *Manager) GetController() Controller {
	return m.controller
}
