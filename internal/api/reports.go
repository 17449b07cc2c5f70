package api

import (
	"time"

	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

// ScanReport is printed when a scan session completes.
type ScanReport struct {
	SessionID string     `json:"session_id" yaml:"session_id"`
	State     scan.State `json:"state" yaml:"state"`
	// Result is the composite completion string, "" when cancelled.
	Result   string        `json:"result" yaml:"result"`
	Type     scan.CodeType `json:"type,omitempty" yaml:"type,omitempty"`
	Text     string        `json:"text,omitempty" yaml:"text,omitempty"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	Duration string        `json:"duration" yaml:"duration"`
}

// NewScanReport builds the report for a finished session.
func NewScanReport(sessionID string, o scan.Outcome, acceptedLengths []int, elapsed time.Duration) ScanReport {
	result := o.String()
	return ScanReport{
		SessionID: sessionID,
		State:     o.State,
		Result:    result,
		Type:      o.Type,
		Text:      o.Text,
		Message:   scan.Describe(result, acceptedLengths),
		Duration:  elapsed.Round(time.Millisecond).String(),
	}
}

// CheckReport is printed by the check command for a single evaluation.
type CheckReport struct {
	Type           scan.CodeType       `json:"type" yaml:"type"`
	Text           string              `json:"text,omitempty" yaml:"text,omitempty"`
	Decoded        bool                `json:"decoded" yaml:"decoded"`
	Bounds         geom.Rect           `json:"bounds" yaml:"bounds"`
	Target         geom.Rect           `json:"target" yaml:"target"`
	LengthValid    bool                `json:"length_valid" yaml:"length_valid"`
	OverlapRatio   float64             `json:"overlap_ratio" yaml:"overlap_ratio"`
	Classification scan.Classification `json:"classification" yaml:"classification"`
	Indicator      scan.Indicator      `json:"indicator" yaml:"indicator"`
	Color          string              `json:"color" yaml:"color"`
	Message        string              `json:"message" yaml:"message"`
}

// NewCheckReport flattens an evaluation of c at bounds.
func NewCheckReport(c scan.Code, bounds geom.Rect, rules scan.Rules, ev scan.Evaluation) CheckReport {
	return CheckReport{
		Type:           c.Type,
		Text:           c.Text,
		Decoded:        c.Decoded,
		Bounds:         bounds,
		Target:         rules.Target,
		LengthValid:    ev.Result.LengthValid,
		OverlapRatio:   ev.Result.OverlapRatio,
		Classification: ev.Result.Classification,
		Indicator:      ev.Feedback.Indicator,
		Color:          ev.Feedback.Indicator.Color(),
		Message:        ev.Feedback.Message,
	}
}
