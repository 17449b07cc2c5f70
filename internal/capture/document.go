package capture

import (
	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

// CodeDoc is the on-disk form of one recognized code. Text is absent when the
// platform could not extract a string value.
type CodeDoc struct {
	Type   string    `json:"type" yaml:"type"`
	Text   *string   `json:"text,omitempty" yaml:"text,omitempty"`
	Bounds geom.Rect `json:"bounds" yaml:"bounds"`
}

// FrameDoc is the on-disk form of one capture frame.
type FrameDoc struct {
	Codes []CodeDoc `json:"codes" yaml:"codes"`
}

// Code converts the document into a scan.Code. Unknown type names are kept
// verbatim so that symbology filtering can drop them.
func (d CodeDoc) Code() scan.Code {
	ct, err := scan.ParseCodeType(d.Type)
	if err != nil {
		ct = scan.CodeType(d.Type)
	}
	c := scan.Code{Type: ct, Bounds: d.Bounds}
	if d.Text != nil {
		c.Text = *d.Text
		c.Decoded = true
	}
	return c
}

// ScanCodes converts every code in the frame.
func (d FrameDoc) ScanCodes() []scan.Code {
	out := make([]scan.Code, len(d.Codes))
	for i, c := range d.Codes {
		out[i] = c.Code()
	}
	return out
}
