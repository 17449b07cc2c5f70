// Package scan validates detected codes against the on-screen target and
// decides when a scan session commits its result.
package scan

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/scanbox/internal/geom"
)

// CodeType identifies the symbology of a detected code. Values are the raw
// identifiers reported by the capture platform.
type CodeType string

const (
	CodeEAN8    CodeType = "org.gs1.EAN-8"
	CodeEAN13   CodeType = "org.gs1.EAN-13"
	CodePDF417  CodeType = "org.iso.PDF417"
	CodeCode128 CodeType = "org.iso.Code128"
	CodeQR      CodeType = "org.iso.QRCode"
)

var shortCodeNames = map[string]CodeType{
	"ean8":    CodeEAN8,
	"ean13":   CodeEAN13,
	"pdf417":  CodePDF417,
	"code128": CodeCode128,
	"qr":      CodeQR,
}

// DefaultSymbologies are the code types a session asks the capture layer for.
func DefaultSymbologies() []CodeType {
	return []CodeType{CodeEAN8, CodeEAN13, CodePDF417, CodeCode128, CodeQR}
}

// ParseCodeType accepts either a short name ("ean13", "qr") or one of the
// raw platform identifiers.
func ParseCodeType(s string) (CodeType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if ct, ok := shortCodeNames[key]; ok {
		return ct, nil
	}
	for _, ct := range shortCodeNames {
		if string(ct) == strings.TrimSpace(s) {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown code type %q", s)
}

// Code is one recognized object in a capture frame.
type Code struct {
	// ID is the tracking identity assigned by the capture layer. The same
	// physical code keeps its ID across frames.
	ID   string   `json:"id,omitempty" yaml:"id,omitempty"`
	Type CodeType `json:"type" yaml:"type"`
	Text string   `json:"text,omitempty" yaml:"text,omitempty"`
	// Decoded is false when the platform recognized an object but could not
	// extract a string value from it.
	Decoded bool `json:"decoded" yaml:"decoded"`
	// Bounds is the raw geometry in capture space, not view coordinates.
	Bounds geom.Rect `json:"bounds" yaml:"bounds"`
}

// Frame carries the codes recognized in one captured frame.
type Frame struct {
	Seq   uint64    `json:"seq" yaml:"seq"`
	At    time.Time `json:"at" yaml:"at"`
	Codes []Code    `json:"codes" yaml:"codes"`
}

// Classification is the verdict for a single detection.
type Classification int

const (
	NoDetection Classification = iota
	InvalidFormat
	ValidButMisplaced
	ValidAndPlaced
)

func (c Classification) String() string {
	switch c {
	case NoDetection:
		return "no_detection"
	case InvalidFormat:
		return "invalid_format"
	case ValidButMisplaced:
		return "valid_but_misplaced"
	case ValidAndPlaced:
		return "valid_and_placed"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// MarshalText renders the classification by name in reports.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Indicator is the color of the target border.
type Indicator int

const (
	// Neutral is the attention color (orange).
	Neutral Indicator = iota
	// Alert is the failure color (red).
	Alert
	// Success is the placed color (green).
	Success
)

func (i Indicator) String() string {
	switch i {
	case Neutral:
		return "neutral"
	case Alert:
		return "alert"
	case Success:
		return "success"
	default:
		return fmt.Sprintf("indicator(%d)", int(i))
	}
}

// Color returns the display color name for the indicator.
func (i Indicator) Color() string {
	switch i {
	case Alert:
		return "red"
	case Success:
		return "green"
	default:
		return "orange"
	}
}

// MarshalText renders the indicator by name in reports.
func (i Indicator) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Feedback is what the user sees: the border color and the status line.
type Feedback struct {
	Indicator Indicator `json:"indicator" yaml:"indicator"`
	Message   string    `json:"message" yaml:"message"`
}

// Status messages shown below the target.
const (
	MessageIdle          = "Position a barcode inside the box."
	MessageInvalid       = "Invalid barcode"
	MessageOutside       = "Position barcode inside the box."
	MessagePartialInside = "Position barcode fully inside the box."
)

// InitialFeedback is displayed before the first detection.
func InitialFeedback() Feedback {
	return Feedback{Indicator: Neutral, Message: MessageIdle}
}

// ValidationResult is the outcome of evaluating one detection.
type ValidationResult struct {
	LengthValid    bool           `json:"length_valid" yaml:"length_valid"`
	OverlapRatio   float64        `json:"overlap_ratio" yaml:"overlap_ratio"`
	Classification Classification `json:"classification" yaml:"classification"`
}

// Display receives feedback updates in processing order.
type Display interface {
	Show(Feedback)
}

// DisplayFunc adapts a plain function to Display.
type DisplayFunc func(Feedback)

// Show calls f.
func (f DisplayFunc) Show(fb Feedback) { f(fb) }
