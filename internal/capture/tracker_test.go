package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

func TestTracker_StableIdentity(t *testing.T) {
	tr := NewTracker(3)

	a1 := tr.Observe(1, []scan.Code{{Type: scan.CodeEAN13, Text: "012345678905", Decoded: true, Bounds: geom.Rect{X: 0.1}}})
	a2 := tr.Observe(2, []scan.Code{{Type: scan.CodeEAN13, Text: "012345678905", Decoded: true, Bounds: geom.Rect{X: 0.2}}})
	require.Len(t, a1, 1)
	require.Len(t, a2, 1)
	assert.NotEmpty(t, a1[0].ID)
	assert.Equal(t, a1[0].ID, a2[0].ID)

	raw, ok := tr.Raw(a1[0].ID)
	assert.True(t, ok)
	assert.Equal(t, 0.2, raw.X, "latest geometry wins")

	b := tr.Observe(3, []scan.Code{{Type: scan.CodeQR, Text: "012345678905", Decoded: true}})
	assert.NotEqual(t, a1[0].ID, b[0].ID)
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ForgetsUnseenCodes(t *testing.T) {
	tr := NewTracker(2)
	a := tr.Observe(1, []scan.Code{{Type: scan.CodeEAN8, Text: "12345670", Decoded: true}})

	tr.Observe(2, nil)
	tr.Observe(3, nil)
	_, ok := tr.Raw(a[0].ID)
	assert.True(t, ok, "still within the window")

	tr.Observe(4, nil)
	_, ok = tr.Raw(a[0].ID)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())

	again := tr.Observe(5, []scan.Code{{Type: scan.CodeEAN8, Text: "12345670", Decoded: true}})
	assert.NotEqual(t, a[0].ID, again[0].ID, "a returning code gets a fresh identity")
}

func TestNewTracker_Default(t *testing.T) {
	tr := NewTracker(0)
	assert.Equal(t, uint64(DefaultForgetAfter), tr.forgetAfter)
}
