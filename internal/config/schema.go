package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/scanbox/internal/capture"
	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds scanbox configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Scanner ScannerCfg `mapstructure:"scanner" yaml:"scanner"`
	Capture CaptureCfg `mapstructure:"capture" yaml:"capture"`
	Log     LogCfg     `mapstructure:"log" yaml:"log"`
}

// ScannerCfg configures the scan session: the view, the target box, and
// the commit rules.
type ScannerCfg struct {
	ViewWidth        float64  `mapstructure:"view_width" yaml:"view_width"`
	ViewHeight       float64  `mapstructure:"view_height" yaml:"view_height"`
	TargetWidth      float64  `mapstructure:"target_width" yaml:"target_width"`
	TargetHeight     float64  `mapstructure:"target_height" yaml:"target_height"`
	OverlapThreshold float64  `mapstructure:"overlap_threshold" yaml:"overlap_threshold"` // strict lower bound
	ConfirmDelayMS   int      `mapstructure:"confirm_delay_ms" yaml:"confirm_delay_ms"`
	AcceptedLengths  []int    `mapstructure:"accepted_lengths" yaml:"accepted_lengths"`
	Symbologies      []string `mapstructure:"symbologies" yaml:"symbologies"` // "ean13", "qr", ...
	InboxSize        int      `mapstructure:"inbox_size" yaml:"inbox_size"`
}

// CaptureCfg configures where frames come from.
type CaptureCfg struct {
	Source       string  `mapstructure:"source" yaml:"source"` // "watch" or "replay"
	Path         string  `mapstructure:"path" yaml:"path"`     // inbox dir or script; empty uses {home}/inbox
	SensorWidth  float64 `mapstructure:"sensor_width" yaml:"sensor_width"`
	SensorHeight float64 `mapstructure:"sensor_height" yaml:"sensor_height"`
	ForgetAfter  int     `mapstructure:"forget_after" yaml:"forget_after"`   // frames
	ReadAttempts uint    `mapstructure:"read_attempts" yaml:"read_attempts"` // watch source only
}

// LogCfg configures the slog handler.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scanner: ScannerCfg{
			ViewWidth:        390,
			ViewHeight:       844,
			TargetWidth:      260,
			TargetHeight:     120,
			OverlapThreshold: scan.DefaultOverlapThreshold,
			ConfirmDelayMS:   int(scan.DefaultConfirmDelay / time.Millisecond),
			AcceptedLengths:  scan.DefaultAcceptedLengths(),
			Symbologies:      []string{"ean8", "ean13", "pdf417", "code128", "qr"},
			InboxSize:        16,
		},
		Capture: CaptureCfg{
			Source:       capture.SourceWatch,
			SensorWidth:  1080,
			SensorHeight: 1920,
			ForgetAfter:  capture.DefaultForgetAfter,
			ReadAttempts: capture.DefaultReadAttempts,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values no session can run with.
func (c *Config) Validate() error {
	s := c.Scanner
	switch {
	case s.ViewWidth <= 0 || s.ViewHeight <= 0:
		return fmt.Errorf("%w: scanner view size must be positive", ErrInvalidConfig)
	case s.TargetWidth <= 0 || s.TargetHeight <= 0:
		return fmt.Errorf("%w: scanner target size must be positive", ErrInvalidConfig)
	case s.TargetWidth > s.ViewWidth || s.TargetHeight > s.ViewHeight:
		return fmt.Errorf("%w: scanner target must fit inside the view", ErrInvalidConfig)
	case s.OverlapThreshold <= 0 || s.OverlapThreshold >= 1:
		return fmt.Errorf("%w: overlap_threshold must be between 0 and 1 (exclusive), got %v", ErrInvalidConfig, s.OverlapThreshold)
	case s.ConfirmDelayMS < 0:
		return fmt.Errorf("%w: confirm_delay_ms must not be negative", ErrInvalidConfig)
	case len(s.AcceptedLengths) == 0:
		return fmt.Errorf("%w: accepted_lengths must not be empty", ErrInvalidConfig)
	case s.InboxSize < 0:
		return fmt.Errorf("%w: inbox_size must not be negative", ErrInvalidConfig)
	}
	for _, l := range s.AcceptedLengths {
		if l <= 0 {
			return fmt.Errorf("%w: accepted length %d must be positive", ErrInvalidConfig, l)
		}
	}
	if _, err := c.CodeTypes(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Capture.Source {
	case capture.SourceWatch, capture.SourceReplay:
	default:
		return fmt.Errorf("%w: capture source must be %q or %q, got %q",
			ErrInvalidConfig, capture.SourceWatch, capture.SourceReplay, c.Capture.Source)
	}
	if c.Capture.SensorWidth <= 0 || c.Capture.SensorHeight <= 0 {
		return fmt.Errorf("%w: capture sensor size must be positive", ErrInvalidConfig)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// View returns the view size.
func (c *Config) View() geom.Size {
	return geom.Size{Width: c.Scanner.ViewWidth, Height: c.Scanner.ViewHeight}
}

// Target returns the scan box centered in the view.
func (c *Config) Target() geom.Rect {
	return geom.Centered(c.View(), c.Scanner.TargetWidth, c.Scanner.TargetHeight)
}

// Rules returns the evaluation rules for a session.
func (c *Config) Rules() scan.Rules {
	return scan.Rules{
		Target:          c.Target(),
		Threshold:       c.Scanner.OverlapThreshold,
		AcceptedLengths: append([]int(nil), c.Scanner.AcceptedLengths...),
	}
}

// ConfirmDelay returns the confirmation delay as a duration.
func (c *Config) ConfirmDelay() time.Duration {
	return time.Duration(c.Scanner.ConfirmDelayMS) * time.Millisecond
}

// CodeTypes parses the configured symbologies.
func (c *Config) CodeTypes() ([]scan.CodeType, error) {
	out := make([]scan.CodeType, 0, len(c.Scanner.Symbologies))
	for _, name := range c.Scanner.Symbologies {
		ct, err := scan.ParseCodeType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// CaptureConfig builds the capture configuration. inbox is used when no
// path is configured.
func (c *Config) CaptureConfig(inbox string) (capture.Config, error) {
	types, err := c.CodeTypes()
	if err != nil {
		return capture.Config{}, err
	}
	path := c.Capture.Path
	if path == "" {
		path = inbox
	}
	return capture.Config{
		Source:       c.Capture.Source,
		Path:         path,
		Sensor:       geom.Size{Width: c.Capture.SensorWidth, Height: c.Capture.SensorHeight},
		View:         c.View(),
		Symbologies:  types,
		ForgetAfter:  c.Capture.ForgetAfter,
		ReadAttempts: c.Capture.ReadAttempts,
	}, nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
