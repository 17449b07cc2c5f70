package scan

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// State is the lifecycle position of a scan session.
type State int32

const (
	Scanning State = iota
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further events are processed in s.
func (s State) Terminal() bool {
	return s == Committed || s == Cancelled
}

// MarshalText renders the state by name in reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the completion of a scan session.
type Outcome struct {
	State State    `json:"state" yaml:"state"`
	Type  CodeType `json:"type,omitempty" yaml:"type,omitempty"`
	Text  string   `json:"text,omitempty" yaml:"text,omitempty"`
}

// String returns "{type}:{text}" for a committed scan and "" otherwise.
func (o Outcome) String() string {
	if o.State != Committed {
		return ""
	}
	return string(o.Type) + ":" + o.Text
}

// ParseOutcome splits a composite completion string at its first colon.
// The empty string parses as a cancelled outcome.
func ParseOutcome(s string) (Outcome, error) {
	if s == "" {
		return Outcome{State: Cancelled}, nil
	}
	typ, text, ok := strings.Cut(s, ":")
	if !ok || typ == "" {
		return Outcome{}, fmt.Errorf("malformed scan result %q", s)
	}
	return Outcome{State: Committed, Type: CodeType(typ), Text: text}, nil
}

// Describe renders the message the host screen shows for a completion
// string. Cancelled scans produce no message.
func Describe(s string, acceptedLengths []int) string {
	if s == "" {
		return ""
	}
	o, err := ParseOutcome(s)
	if err != nil {
		return "Invalid barcode scanned: " + s
	}
	n := utf8.RuneCountInString(o.Text)
	for _, l := range acceptedLengths {
		if n == l {
			return fmt.Sprintf("Valid %s scanned: %s", o.Type, o.Text)
		}
	}
	return "Invalid barcode scanned: " + s
}
