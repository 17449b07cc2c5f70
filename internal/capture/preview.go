package capture

import (
	"math"

	"github.com/jackzampolin/scanbox/internal/geom"
)

// Preview maps raw capture geometry into view coordinates for a full-screen
// preview with aspect-fill gravity: the sensor image is scaled to cover the
// whole view, centered, and the overflow is cropped.
//
// Raw geometry is normalized to the sensor: (0,0) is the top-left corner and
// (1,1) the bottom-right.
type Preview struct {
	Sensor geom.Size
	View   geom.Size
}

// Project converts a normalized rectangle to view coordinates. It reports
// false when either size is unusable or the raw rectangle is malformed.
func (p Preview) Project(raw geom.Rect) (geom.Rect, bool) {
	if !p.Sensor.Valid() || !p.View.Valid() || !raw.Valid() {
		return geom.Rect{}, false
	}
	if raw.Width < 0 || raw.Height < 0 {
		return geom.Rect{}, false
	}

	scale := math.Max(p.View.Width/p.Sensor.Width, p.View.Height/p.Sensor.Height)
	w := p.Sensor.Width * scale
	h := p.Sensor.Height * scale
	offX := (p.View.Width - w) / 2
	offY := (p.View.Height - h) / 2

	return geom.Rect{
		X:      offX + raw.X*w,
		Y:      offY + raw.Y*h,
		Width:  raw.Width * w,
		Height: raw.Height * h,
	}, true
}
