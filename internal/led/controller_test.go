package led

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNoopController(t *testing.T) {
	ctrl := newNoop(testLogger())

	// Should return no errors
	if err := ctrl.Set("user", true, "solid"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}

	// Should return empty lists
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}

	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsController_Available(t *testing.T) {
	tests := []struct {
		name     string
		leds     map[string]string
		wantLen  int
		contains string
	}{
		{
			name:     "PYNQ LEDs",
			leds:     map[string]string{"user": "led1", "system": "led0"},
			wantLen:  2,
			contains: "user",
		},
		{
			name:     "ZCU104 LEDs",
			leds:     map[string]string{"system": "heartbeat"},
			wantLen:  1,
			contains: "system",
		},
		{
			name:    "No LEDs",
			leds:    map[string]string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newSysfs(tt.leds)
			available := ctrl.Available()

			if len(available) != tt.wantLen {
				t.Errorf("Available() len = %d, want %d", len(available), tt.wantLen)
			}

			if tt.contains != "" {
				found := false
				for _, ledType := range available {
					if ledType == tt.contains {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Available() does not contain %q", tt.contains)
				}
			}
		})
	}
}

func TestSysfsController_Patterns(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "led1"})

	got := strings.Join(ctrl.Patterns(), ",")
	if want := "blink,heartbeat,solid"; got != want {
		t.Errorf("Patterns() = %s, want %s", got, want)
	}
}

func TestSysfsController_RawTrigger(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "led1"), 0o755); err != nil {
		t.Fatal(err)
	}
	ctrl := newSysfs(map[string]string{"user": "led1"})
	ctrl.root = root

	if err := ctrl.Set("user", true, "mmc0"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "led1", "trigger"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mmc0" {
		t.Errorf("trigger = %q, want raw trigger name", data)
	}
}

func TestSysfsController_Set_InvalidType(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "led1"})

	// Should error on unsupported LED type
	err := ctrl.Set("nonexistent", true, "")
	if err == nil {
		t.Error("Set() with invalid LED type should return error")
	}
}

func TestSysfsController_SetWritesTriggerAndBrightness(t *testing.T) {
	root := t.TempDir()
	ledDir := filepath.Join(root, "led0")
	if err := os.Mkdir(ledDir, 0o755); err != nil {
		t.Fatal(err)
	}

	ctrl := newSysfs(map[string]string{SystemLED: "led0"})
	ctrl.root = root

	read := func(name string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(ledDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return strings.TrimSpace(string(data))
	}

	if err := ctrl.Set(SystemLED, true, "blink"); err != nil {
		t.Fatalf("Set(blink) error = %v", err)
	}
	if got := read("trigger"); got != "timer" {
		t.Errorf("trigger = %q, want timer", got)
	}
	if on, off := read("delay_on"), read("delay_off"); on != blinkPeriodMS || off != blinkPeriodMS {
		t.Errorf("delays = %s/%s, want %s", on, off, blinkPeriodMS)
	}
	if got := read("brightness"); got != "1" {
		t.Errorf("brightness = %q, want 1", got)
	}

	if err := ctrl.Set(SystemLED, false, "solid"); err != nil {
		t.Fatalf("Set(solid) error = %v", err)
	}
	if got := read("trigger"); got != "none" {
		t.Errorf("trigger = %q, want none", got)
	}
	if got := read("brightness"); got != "0" {
		t.Errorf("brightness = %q, want 0", got)
	}
}

func TestSysfsController_Set_MissingLED(t *testing.T) {
	ctrl := newSysfs(map[string]string{SystemLED: "led0"})
	ctrl.root = t.TempDir()

	if err := ctrl.Set(SystemLED, true, ""); err == nil {
		t.Error("Set() on a missing LED directory should return error")
	}
}
