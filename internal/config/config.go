// Package config loads service options and peripheral descriptions from a
// TOML file, VCAPTURE_ environment variables and command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/vcapture/internal/capture"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/pkg/xlnx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "VCAPTURE_"

// Default peripheral addresses of the reference capture design.
const (
	DefaultVDMABase = 0x43000000
	DefaultGPIOBase = 0x41200000
	DefaultVTCBase  = 0x43C10000
)

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	// Build set of flags explicitly changed via CLI
	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	// Get config file path
	var configPath string
	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if fieldType.Name == "Config" {
			configPath = v.Field(i).String()
			break
		}
	}

	// Load TOML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var config map[string]any
			if err := toml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}

			// Apply TOML values using reflection
			for i := 0; i < v.NumField(); i++ {
				field := v.Field(i)
				fieldType := t.Field(i)

				// Skip if this flag was explicitly set via CLI
				flagName := fieldNameToFlag(fieldType.Name)
				if changedFlags[flagName] {
					continue
				}

				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(config, tomlPath); value != nil {
						setFieldValue(field, value)
					}
				}
			}
		}
	}

	// Apply environment variable overrides (skip CLI-set flags)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip if this flag was explicitly set via CLI
		flagName := fieldNameToFlag(fieldType.Name)
		if changedFlags[flagName] {
			continue
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				setFieldValueFromString(field, envValue)
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue sets a field value using reflection.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int64:
		if field.Type() == durationType {
			if s, ok := value.(string); ok {
				if d, err := time.ParseDuration(s); err == nil {
					field.SetInt(int64(d))
				}
			}
			return
		}
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		}
	case reflect.Int:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		} else if i, intOk := value.(int); intOk {
			field.SetInt(int64(i))
		}
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		if i, ok := value.(int64); ok && i >= 0 {
			field.SetUint(uint64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			if arr, ok := value.([]any); ok {
				slice := make([]string, len(arr))
				for i, v := range arr {
					if s, strOk := v.(string); strOk {
						slice[i] = s
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		}
	}
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int64:
		if field.Type() == durationType {
			if d, err := time.ParseDuration(value); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Int:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		// Base 0 accepts hex register addresses such as 0x43000000.
		if u, err := strconv.ParseUint(value, 0, 64); err == nil {
			field.SetUint(u)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Parse comma-separated values for env vars
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Module levels may be given in a [logging.modules] table or as extra keys
// of [logging]. Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var rawConfig struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return cfg
	}

	for key, value := range rawConfig.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range v {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}

	return cfg
}

// DefaultCaptureConfig returns the peripheral description of the reference
// design: VDMA, reset GPIO and timing controller at their default addresses.
func DefaultCaptureConfig() capture.Config {
	return capture.Config{
		DMA:            xlnx.DefaultDMAConfig(DefaultVDMABase),
		GPIO:           xlnx.DefaultGPIOConfig(DefaultGPIOBase),
		VTCBaseAddress: DefaultVTCBase,
	}
}

// LoadCaptureConfig reads the [capture] table over DefaultCaptureConfig.
// A missing file yields the defaults. Keys the table does not define are
// rejected, as is a result that fails validation.
func LoadCaptureConfig(configPath string) (capture.Config, error) {
	var file struct {
		Capture map[string]any `toml:"capture"`
	}
	if err := loadFile(configPath, &file); err != nil {
		return capture.Config{}, err
	}

	cfg := DefaultCaptureConfig()
	if file.Capture != nil {
		if err := decodeStrict(file.Capture, &cfg); err != nil {
			return capture.Config{}, fmt.Errorf("config %s: [capture]: %w", configPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return capture.Config{}, fmt.Errorf("config %s: %w", configPath, err)
	}
	return cfg, nil
}

// LEDConfig maps LED types to sysfs LED names.
type LEDConfig struct {
	Enabled bool              `toml:"enabled"`
	Names   map[string]string `toml:"names"`
}

// LoadLEDConfig reads the [led] table. LED control is off unless the file
// enables it.
func LoadLEDConfig(configPath string) (LEDConfig, error) {
	var file struct {
		LED LEDConfig `toml:"led"`
	}

	if err := loadFile(configPath, &file); err != nil {
		return LEDConfig{}, err
	}
	return file.LED, nil
}

// decodeStrict decodes table into out, which keeps its values for absent
// keys. A key that out does not declare is an ErrInvalidConfig.
func decodeStrict(table map[string]any, out any) error {
	data, err := toml.Marshal(table)
	if err != nil {
		return err
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: unknown keys\n%s", xlnx.ErrInvalidConfig, strict.String())
		}
		return fmt.Errorf("%w: %v", xlnx.ErrInvalidConfig, err)
	}
	return nil
}

// loadFile decodes configPath into out. A missing or unset path leaves out
// untouched.
func loadFile(configPath string, out any) error {
	if configPath == "" {
		return nil
	}
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}
