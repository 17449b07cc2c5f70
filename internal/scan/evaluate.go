package scan

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/jackzampolin/scanbox/internal/geom"
)

const (
	// DefaultOverlapThreshold is the share of the code's area that must lie
	// inside the target. The comparison is strict.
	DefaultOverlapThreshold = 0.7
)

// DefaultAcceptedLengths are the decoded text lengths treated as valid
// (UPC-A and EAN-13).
func DefaultAcceptedLengths() []int {
	return []int{12, 13}
}

// Rules holds the fixed parameters a session evaluates detections against.
type Rules struct {
	Target          geom.Rect
	Threshold       float64
	AcceptedLengths []int
}

// DefaultRules returns rules for the given target with default threshold and lengths.
func DefaultRules(target geom.Rect) Rules {
	return Rules{
		Target:          target,
		Threshold:       DefaultOverlapThreshold,
		AcceptedLengths: DefaultAcceptedLengths(),
	}
}

// Evaluation pairs a validation result with the feedback it produces.
type Evaluation struct {
	Result   ValidationResult `json:"result" yaml:"result"`
	Feedback Feedback         `json:"feedback" yaml:"feedback"`
}

// LengthValid reports whether text has one of the accepted lengths,
// counted in characters.
func (r Rules) LengthValid(text string) bool {
	return slices.Contains(r.AcceptedLengths, utf8.RuneCountInString(text))
}

// Placed returns the overlap ratio of bounds against the target and whether
// it clears the threshold.
func (r Rules) Placed(bounds geom.Rect) (float64, bool) {
	ratio := geom.OverlapRatio(bounds, r.Target)
	return ratio, ratio > r.Threshold
}

// Evaluate classifies a single code. bounds is the code's projection into
// view coordinates; projected is false when no projection was possible.
func (r Rules) Evaluate(c Code, bounds geom.Rect, projected bool) Evaluation {
	if !c.Decoded {
		return Evaluation{
			Result:   ValidationResult{Classification: InvalidFormat},
			Feedback: Feedback{Indicator: Alert, Message: MessageInvalid},
		}
	}

	invalid := Feedback{Indicator: Alert, Message: fmt.Sprintf("Invalid %s: %s", c.Type, c.Text)}
	lengthValid := r.LengthValid(c.Text)

	if !projected {
		return Evaluation{
			Result:   ValidationResult{LengthValid: lengthValid, Classification: InvalidFormat},
			Feedback: invalid,
		}
	}

	ratio := geom.OverlapRatio(bounds, r.Target)
	res := ValidationResult{LengthValid: lengthValid, OverlapRatio: ratio}

	if !lengthValid {
		res.Classification = InvalidFormat
		return Evaluation{Result: res, Feedback: invalid}
	}

	if _, ok := bounds.Intersect(r.Target); !ok {
		res.Classification = ValidButMisplaced
		return Evaluation{Result: res, Feedback: Feedback{Indicator: Neutral, Message: MessageOutside}}
	}

	if ratio > r.Threshold {
		res.Classification = ValidAndPlaced
		return Evaluation{
			Result:   res,
			Feedback: Feedback{Indicator: Success, Message: fmt.Sprintf("Valid %s: %s", c.Type, c.Text)},
		}
	}

	res.Classification = ValidButMisplaced
	return Evaluation{Result: res, Feedback: Feedback{Indicator: Neutral, Message: MessagePartialInside}}
}
