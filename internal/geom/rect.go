// Package geom provides the view-space geometry used to decide whether a
// detected code sits inside the scan target.
package geom

import "math"

// Size is a width/height pair in view or sensor units.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are finite and positive.
func (s Size) Valid() bool {
	return finite(s.Width) && finite(s.Height) && s.Width > 0 && s.Height > 0
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Centered returns a w x h rectangle centered in view.
func Centered(view Size, w, h float64) Rect {
	return Rect{
		X:      (view.Width - w) / 2,
		Y:      (view.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Area returns Width*Height, or 0 for an empty rectangle.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no positive extent.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Valid reports whether every component is a finite number.
func (r Rect) Valid() bool {
	return finite(r.X) && finite(r.Y) && finite(r.Width) && finite(r.Height)
}

// Intersect returns the overlap of r and o. The second return value is false
// when the rectangles share no area; rectangles that only touch along an edge
// do not intersect.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	if r.Empty() || o.Empty() {
		return Rect{}, false
	}
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// OverlapRatio returns the share of box's area that lies inside target.
// The result is 0 when the two do not intersect or box has zero area.
func OverlapRatio(box, target Rect) float64 {
	inter, ok := box.Intersect(target)
	if !ok {
		return 0
	}
	area := box.Area()
	if area <= 0 {
		return 0
	}
	ratio := inter.Area() / area
	// Floating point can push a fully contained box a hair over 1.
	return math.Min(math.Max(ratio, 0), 1)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
