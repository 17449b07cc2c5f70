package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if cfg.ConfirmDelay() != 600*time.Millisecond {
		t.Errorf("expected 600ms confirm delay, got %v", cfg.ConfirmDelay())
	}

	target := cfg.Target()
	if target.X != 65 || target.Y != 362 || target.Width != 260 || target.Height != 120 {
		t.Errorf("unexpected target box: %+v", target)
	}

	types, err := cfg.CodeTypes()
	if err != nil {
		t.Fatalf("CodeTypes: %v", err)
	}
	if len(types) != 5 {
		t.Errorf("expected 5 symbologies, got %d", len(types))
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_SCANBOX_INBOX", "/tmp/inbox")

		result := ResolveEnvVars("${TEST_SCANBOX_INBOX}/frames")
		if result != "/tmp/inbox/frames" {
			t.Errorf("expected /tmp/inbox/frames, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero view", func(c *Config) { c.Scanner.ViewWidth = 0 }},
		{"target wider than view", func(c *Config) { c.Scanner.TargetWidth = 1000 }},
		{"zero target", func(c *Config) { c.Scanner.TargetHeight = 0 }},
		{"threshold of one", func(c *Config) { c.Scanner.OverlapThreshold = 1 }},
		{"negative threshold", func(c *Config) { c.Scanner.OverlapThreshold = -0.1 }},
		{"negative delay", func(c *Config) { c.Scanner.ConfirmDelayMS = -1 }},
		{"no lengths", func(c *Config) { c.Scanner.AcceptedLengths = nil }},
		{"zero length", func(c *Config) { c.Scanner.AcceptedLengths = []int{0} }},
		{"unknown symbology", func(c *Config) { c.Scanner.Symbologies = []string{"aztec"} }},
		{"unknown source", func(c *Config) { c.Capture.Source = "usb" }},
		{"zero sensor", func(c *Config) { c.Capture.SensorHeight = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCaptureConfig(t *testing.T) {
	cfg := DefaultConfig()

	cc, err := cfg.CaptureConfig("/home/inbox")
	if err != nil {
		t.Fatalf("CaptureConfig: %v", err)
	}
	if cc.Path != "/home/inbox" {
		t.Errorf("expected inbox fallback, got %q", cc.Path)
	}
	if cc.View != cfg.View() {
		t.Errorf("expected view %+v, got %+v", cfg.View(), cc.View)
	}

	cfg.Capture.Path = "/data/frames"
	cc, _ = cfg.CaptureConfig("/home/inbox")
	if cc.Path != "/data/frames" {
		t.Errorf("expected configured path, got %q", cc.Path)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
scanner:
  confirm_delay_ms: 250
  accepted_lengths: [8, 13]
capture:
  source: replay
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Scanner.ConfirmDelayMS != 250 {
			t.Errorf("expected 250, got %d", cfg.Scanner.ConfirmDelayMS)
		}
		if len(cfg.Scanner.AcceptedLengths) != 2 || cfg.Scanner.AcceptedLengths[0] != 8 {
			t.Errorf("unexpected accepted lengths: %v", cfg.Scanner.AcceptedLengths)
		}
		if cfg.Capture.Source != "replay" {
			t.Errorf("expected replay, got %s", cfg.Capture.Source)
		}
		// Unset keys fall back to defaults.
		if cfg.Scanner.TargetWidth != 260 {
			t.Errorf("expected default target width, got %v", cfg.Scanner.TargetWidth)
		}
		if mgr.File() != configFile {
			t.Errorf("expected %s, got %s", configFile, mgr.File())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := writeConfig(t, "scanner:\n  confirm_delay_ms: 250\n")
		t.Setenv("SCANBOX_SCANNER_CONFIRM_DELAY_MS", "900")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Scanner.ConfirmDelayMS; got != 900 {
			t.Errorf("expected 900, got %d", got)
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		configFile := writeConfig(t, "scanner:\n  overlap_threshold: 1.5\n")

		_, err := NewManager(configFile)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_GetValue(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	v, err := mgr.GetValue("log.level")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected debug, got %v", v)
	}

	if _, err := mgr.GetValue("log.colour"); !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault, got %v", err)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Scanner.ConfirmDelayMS
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "scanner:\n  confirm_delay_ms: 600\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int64

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int64(cfg.Scanner.ConfirmDelayMS))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("scanner:\n  confirm_delay_ms: 300\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lastValue.Load() == 300 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Scanner.ConfirmDelayMS; got != 300 {
		t.Errorf("config not updated: expected 300, got %d", got)
	}
	if v := lastValue.Load(); v != 300 {
		t.Errorf("callback received wrong value: expected 300, got %d", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Scanbox configuration") {
		t.Error("expected header comment")
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if parsed.Scanner.ConfirmDelayMS != 600 || parsed.Capture.Source != "watch" {
		t.Errorf("unexpected round trip: %+v", parsed)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if mgr.Get().Scanner.OverlapThreshold != 0.7 {
		t.Errorf("expected 0.7, got %v", mgr.Get().Scanner.OverlapThreshold)
	}
}
