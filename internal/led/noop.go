package led

import "github.com/smazurov/vcapture/internal/logging"

// noop is used on boards without a known LED layout. Requests are logged
// at debug level and succeed.
type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	if logger == nil {
		logger = logging.GetLogger("led")
	}
	return &noop{logger: logger}
}

func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	n.logger.Debug("No LED hardware, ignoring request", "led_type", ledType, "enabled", enabled, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
