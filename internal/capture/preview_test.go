package capture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jackzampolin/scanbox/internal/geom"
)

func TestPreview_Project(t *testing.T) {
	t.Run("same aspect ratio scales uniformly", func(t *testing.T) {
		p := Preview{Sensor: geom.Size{Width: 100, Height: 200}, View: geom.Size{Width: 50, Height: 100}}
		r, ok := p.Project(geom.Rect{X: 0.5, Y: 0.25, Width: 0.2, Height: 0.1})
		assert.True(t, ok)
		assert.InDelta(t, 25, r.X, 1e-9)
		assert.InDelta(t, 25, r.Y, 1e-9)
		assert.InDelta(t, 10, r.Width, 1e-9)
		assert.InDelta(t, 10, r.Height, 1e-9)
	})

	t.Run("wider sensor is cropped horizontally", func(t *testing.T) {
		p := Preview{Sensor: geom.Size{Width: 200, Height: 100}, View: geom.Size{Width: 100, Height: 100}}
		r, ok := p.Project(geom.Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.2})
		assert.True(t, ok)
		assert.InDelta(t, 50, r.X, 1e-9)
		assert.InDelta(t, 50, r.Y, 1e-9)
		assert.InDelta(t, 20, r.Width, 1e-9)
		assert.InDelta(t, 20, r.Height, 1e-9)

		// The left quarter of the sensor falls outside the view.
		r, _ = p.Project(geom.Rect{X: 0, Y: 0, Width: 0.25, Height: 1})
		assert.InDelta(t, -50, r.X, 1e-9)
		assert.InDelta(t, 0, r.MaxX(), 1e-9)
	})

	t.Run("malformed input", func(t *testing.T) {
		p := Preview{Sensor: geom.Size{Width: 100, Height: 100}, View: geom.Size{Width: 100, Height: 100}}
		_, ok := p.Project(geom.Rect{X: math.NaN(), Width: 1, Height: 1})
		assert.False(t, ok)
		_, ok = p.Project(geom.Rect{Width: -1, Height: 1})
		assert.False(t, ok)

		_, ok = Preview{View: geom.Size{Width: 1, Height: 1}}.Project(geom.Rect{Width: 1, Height: 1})
		assert.False(t, ok)
	})

	t.Run("zero area is projectable", func(t *testing.T) {
		p := Preview{Sensor: geom.Size{Width: 100, Height: 100}, View: geom.Size{Width: 100, Height: 100}}
		r, ok := p.Project(geom.Rect{X: 0.5, Y: 0.5})
		assert.True(t, ok)
		assert.Equal(t, 0.0, r.Area())
	})
}
