package capture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed frame.schema.json
var frameSchemaJSON []byte

var (
	frameSchemaOnce sync.Once
	frameSchema     *jsonschema.Schema
	frameSchemaErr  error
)

func compiledFrameSchema() (*jsonschema.Schema, error) {
	frameSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("frame.schema.json", bytes.NewReader(frameSchemaJSON)); err != nil {
			frameSchemaErr = fmt.Errorf("failed to load frame schema: %w", err)
			return
		}
		frameSchema, frameSchemaErr = compiler.Compile("frame.schema.json")
	})
	return frameSchema, frameSchemaErr
}

// MalformedFrameError wraps JSON that parses but does not describe a frame.
type MalformedFrameError struct {
	Err error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("frame does not match schema: %v", e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// DecodeFrame parses a JSON frame document and validates it against the
// frame schema. Syntax errors are returned as-is (the writer may not have
// finished); schema violations are returned as *MalformedFrameError.
func DecodeFrame(data []byte) (FrameDoc, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return FrameDoc{}, fmt.Errorf("failed to decode frame JSON: %w", err)
	}

	schema, err := compiledFrameSchema()
	if err != nil {
		return FrameDoc{}, err
	}
	if err := schema.Validate(raw); err != nil {
		return FrameDoc{}, &MalformedFrameError{Err: err}
	}

	var doc FrameDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return FrameDoc{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return doc, nil
}
