package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"scanner.overlap_threshold",
		"scanner.confirm_delay_ms",
		"scanner.accepted_lengths",
		"scanner.symbologies",
		"capture.source",
		"capture.path",
		"log.level",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if keys[e.Key] {
			t.Errorf("duplicate key: %s", e.Key)
		}
		keys[e.Key] = true
		if e.Description == "" {
			t.Errorf("key %s has no description", e.Key)
		}
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("scanner.confirm_delay_ms")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != 600 {
			t.Errorf("GetDefault() Value = %v, want 600", entry.Value)
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		entry := GetDefault("does.not.exist")
		if entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{"capture.source", nil},
		{"", ErrInvalidKey},
		{"capture source", ErrInvalidKey},
		{"capture.source;rm", ErrInvalidKey},
		{"capture.speed", ErrNoDefault},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateKey(%q) = %v, want nil", tt.key, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}
