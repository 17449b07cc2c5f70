package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is one documented configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every known key with its default. These seed the
// viper defaults, so environment overrides work for each of them.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Scanner
		// ===================
		{
			Key:         "scanner.view_width",
			Value:       d.Scanner.ViewWidth,
			Description: "Width of the camera preview in view units",
		},
		{
			Key:         "scanner.view_height",
			Value:       d.Scanner.ViewHeight,
			Description: "Height of the camera preview in view units",
		},
		{
			Key:         "scanner.target_width",
			Value:       d.Scanner.TargetWidth,
			Description: "Width of the scan box, centered in the view",
		},
		{
			Key:         "scanner.target_height",
			Value:       d.Scanner.TargetHeight,
			Description: "Height of the scan box, centered in the view",
		},
		{
			Key:         "scanner.overlap_threshold",
			Value:       d.Scanner.OverlapThreshold,
			Description: "Share of the code's area that must be inside the box (strictly greater)",
		},
		{
			Key:         "scanner.confirm_delay_ms",
			Value:       d.Scanner.ConfirmDelayMS,
			Description: "How long a placed code must stay placed before the scan commits (0 uses 600)",
		},
		{
			Key:         "scanner.accepted_lengths",
			Value:       d.Scanner.AcceptedLengths,
			Description: "Decoded text lengths accepted as valid",
		},
		{
			Key:         "scanner.symbologies",
			Value:       d.Scanner.Symbologies,
			Description: "Code types requested from the capture layer",
		},
		{
			Key:         "scanner.inbox_size",
			Value:       d.Scanner.InboxSize,
			Description: "Buffered detection events awaiting evaluation",
		},

		// ===================
		// Capture
		// ===================
		{
			Key:         "capture.source",
			Value:       d.Capture.Source,
			Description: "Frame source: watch (inbox directory) or replay (YAML script)",
		},
		{
			Key:         "capture.path",
			Value:       d.Capture.Path,
			Description: "Inbox directory or script file; empty uses the home inbox",
		},
		{
			Key:         "capture.sensor_width",
			Value:       d.Capture.SensorWidth,
			Description: "Width of the capture sensor image",
		},
		{
			Key:         "capture.sensor_height",
			Value:       d.Capture.SensorHeight,
			Description: "Height of the capture sensor image",
		},
		{
			Key:         "capture.forget_after",
			Value:       d.Capture.ForgetAfter,
			Description: "Frames a code may go unseen before it is no longer tracked",
		},
		{
			Key:         "capture.read_attempts",
			Value:       d.Capture.ReadAttempts,
			Description: "Read attempts for a frame file that is still being written",
		},

		// ===================
		// Logging
		// ===================
		{
			Key:         "log.level",
			Value:       d.Log.Level,
			Description: "Log level: debug, info, warn, error",
		},
		{
			Key:         "log.format",
			Value:       d.Log.Format,
			Description: "Log format: text or json",
		},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ValidateKey checks that a key is well formed and known.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if GetDefault(key) == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return nil
}
