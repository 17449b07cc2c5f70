package api

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	f, err = ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatYAML, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestOutputTo_ScanReport(t *testing.T) {
	o := scan.Outcome{State: scan.Committed, Type: scan.CodeEAN13, Text: "012345678905"}
	report := NewScanReport("abc", o, []int{12, 13}, 1234567*time.Microsecond)

	assert.Equal(t, "org.gs1.EAN-13:012345678905", report.Result)
	assert.Equal(t, "Valid org.gs1.EAN-13 scanned: 012345678905", report.Message)
	assert.Equal(t, "1.235s", report.Duration)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputTo(&buf, OutputFormatJSON, report))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "committed", decoded["state"])
		assert.Equal(t, "abc", decoded["session_id"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputTo(&buf, OutputFormatYAML, report))
		assert.Contains(t, buf.String(), "state: committed")
		assert.Contains(t, buf.String(), "result: org.gs1.EAN-13:012345678905")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, OutputTo(&bytes.Buffer{}, OutputFormat("xml"), report))
	})
}

func TestNewScanReport_Cancelled(t *testing.T) {
	report := NewScanReport("abc", scan.Outcome{State: scan.Cancelled}, []int{12, 13}, time.Second)
	assert.Empty(t, report.Result)
	assert.Empty(t, report.Message)
	assert.Equal(t, scan.Cancelled, report.State)
}

func TestNewCheckReport(t *testing.T) {
	rules := scan.DefaultRules(geom.Rect{X: 0, Y: 0, Width: 100, Height: 100})
	c := scan.Code{Type: scan.CodeEAN13, Text: "012345678905", Decoded: true}
	bounds := geom.Rect{X: 10, Y: 10, Width: 50, Height: 20}

	report := NewCheckReport(c, bounds, rules, rules.Evaluate(c, bounds, true))
	assert.Equal(t, scan.ValidAndPlaced, report.Classification)
	assert.Equal(t, "green", report.Color)
	assert.InDelta(t, 1.0, report.OverlapRatio, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, OutputTo(&buf, OutputFormatJSON, report))
	assert.Contains(t, buf.String(), `"classification": "valid_and_placed"`)
	assert.Contains(t, buf.String(), `"indicator": "success"`)
}
