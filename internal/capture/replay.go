package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/scanbox/internal/scan"
)

// Script is a recorded capture: frames with their offsets from session start.
//
//	frames:
//	  - at: 0s
//	    codes:
//	      - type: ean13
//	        text: "012345678905"
//	        bounds: {x: 0.4, y: 0.48, width: 0.2, height: 0.04}
type Script struct {
	Frames []ScriptFrame `yaml:"frames"`
}

// ScriptFrame is one frame of a Script.
type ScriptFrame struct {
	At    time.Duration `yaml:"at"`
	Codes []CodeDoc     `yaml:"codes"`
}

// LoadScript reads a YAML capture script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML capture script. Frame offsets must not decrease.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	var last time.Duration
	for i, f := range s.Frames {
		if f.At < last {
			return nil, fmt.Errorf("frame %d: offset %s is before previous frame at %s", i, f.At, last)
		}
		last = f.At
	}
	return &s, nil
}

// ReplaySource plays a Script in real (or fake) time.
type ReplaySource struct {
	script *Script
	clock  scan.Clock
}

// NewReplaySource creates a source for script timed by clock.
func NewReplaySource(script *Script, clock scan.Clock) *ReplaySource {
	if clock == nil {
		clock = scan.SystemClock()
	}
	return &ReplaySource{script: script, clock: clock}
}

// Frames emits every scripted frame at its offset, then closes the channel.
func (r *ReplaySource) Frames(ctx context.Context) (<-chan FrameDoc, error) {
	out := make(chan FrameDoc)
	go func() {
		defer close(out)
		var elapsed time.Duration
		for _, f := range r.script.Frames {
			if wait := f.At - elapsed; wait > 0 {
				fired := make(chan struct{})
				t := r.clock.AfterFunc(wait, func() { close(fired) })
				select {
				case <-fired:
				case <-ctx.Done():
					t.Stop()
					return
				}
				elapsed = f.At
			}
			select {
			case out <- FrameDoc{Codes: f.Codes}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
