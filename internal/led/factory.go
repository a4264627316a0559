package led

import (
	"os"
	"strings"

	"github.com/smazurov/vcapture/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New creates a new LED controller. An explicit mapping (LED type to sysfs
// name) wins over board detection; unknown boards get a no-op controller.
func New(logger logging.Logger, mapping map[string]string) Controller {
	if logger == nil {
		logger = logging.GetLogger("led")
	}

	if len(mapping) > 0 {
		logger.Info("Using configured sysfs LED mapping", "leds", len(mapping))
		return newSysfs(mapping)
	}

	boardModel := detectBoard(deviceTreeModelPath)
	logger.Info("Detecting board for LED control", "board_model", boardModel)

	if leds := boardLEDs(boardModel); leds != nil {
		logger.Info("Detected Zynq board, using sysfs LED controller", "board_model", boardModel)
		return newSysfs(leds)
	}

	logger.Info("No LED support detected, using no-op controller", "board_model", boardModel)
	return newNoop(logger)
}

// boardLEDs returns the LED mapping of a known capture board, or nil.
func boardLEDs(model string) map[string]string {
	switch {
	case strings.Contains(model, "PYNQ"):
		return map[string]string{
			"system": "led0",
			"user":   "led1",
		}
	case strings.Contains(model, "ZedBoard"):
		return map[string]string{
			"system": "ld0",
			"user":   "ld1",
		}
	case strings.Contains(model, "ZCU104"), strings.Contains(model, "ZCU102"):
		return map[string]string{
			"system": "heartbeat",
		}
	case strings.Contains(model, "Zybo"):
		return map[string]string{
			"system": "ld4",
		}
	default:
		return nil
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	return model
}
