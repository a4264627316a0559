package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// blinkPeriodMS is the on and off time of the "blink" pattern. It is
// faster than the kernel heartbeat so a missing input signal stands out.
const blinkPeriodMS = "250"

// trigger describes how a pattern is expressed through the LED class
// interface: the trigger name plus any attributes the trigger exposes.
type trigger struct {
	name  string
	attrs [][2]string
}

var patternTriggers = map[string]trigger{
	"solid":     {name: "none"},
	"blink":     {name: "timer", attrs: [][2]string{{"delay_on", blinkPeriodMS}, {"delay_off", blinkPeriodMS}}},
	"heartbeat": {name: "heartbeat"},
}

// sysfs drives LEDs through /sys/class/leds.
type sysfs struct {
	root string            // LED class directory
	leds map[string]string // LED type -> sysfs name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{root: sysfsLEDPath, leds: leds}
}

// Set applies pattern, if any, and then the on/off state. Unknown patterns
// are written as raw kernel trigger names.
func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("LED %q not found at %s", ledType, dir)
	}

	if pattern != "" {
		t, known := patternTriggers[pattern]
		if !known {
			t = trigger{name: pattern}
		}
		if err := writeAttr(dir, "trigger", t.name); err != nil {
			return err
		}
		for _, attr := range t.attrs {
			if err := writeAttr(dir, attr[0], attr[1]); err != nil {
				return err
			}
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	return writeAttr(dir, "brightness", brightness)
}

func writeAttr(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s: %w", attr, err)
	}
	return nil
}

// Available returns the configured LED types, sorted.
func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for ledType := range s.leds {
		types = append(types, ledType)
	}
	sort.Strings(types)
	return types
}

// Patterns returns the named patterns Set understands.
func (s *sysfs) Patterns() []string {
	patterns := make([]string, 0, len(patternTriggers))
	for p := range patternTriggers {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}
