package capture

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

// DefaultForgetAfter is how many frames a code may go unseen before its
// identity is dropped.
const DefaultForgetAfter = 30

type trackKey struct {
	typ     scan.CodeType
	text    string
	decoded bool
}

type track struct {
	id       string
	key      trackKey
	raw      geom.Rect
	lastSeen uint64
}

// Tracker gives codes a stable identity across frames and remembers the most
// recent raw geometry of each one. Codes with the same type and text are
// treated as the same physical object.
//
// Observe is called by the frame pump while Raw is called by the scan
// machine, so access is guarded.
type Tracker struct {
	mu          sync.Mutex
	forgetAfter uint64
	byKey       map[trackKey]*track
	byID        map[string]*track
}

// NewTracker creates a tracker. forgetAfter <= 0 uses DefaultForgetAfter.
func NewTracker(forgetAfter int) *Tracker {
	if forgetAfter <= 0 {
		forgetAfter = DefaultForgetAfter
	}
	return &Tracker{
		forgetAfter: uint64(forgetAfter),
		byKey:       make(map[trackKey]*track),
		byID:        make(map[string]*track),
	}
}

// Observe records the codes of frame seq and returns them with IDs assigned.
func (t *Tracker) Observe(seq uint64, codes []scan.Code) []scan.Code {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]scan.Code, len(codes))
	for i, c := range codes {
		key := trackKey{typ: c.Type, text: c.Text, decoded: c.Decoded}
		tr, ok := t.byKey[key]
		if !ok {
			tr = &track{id: uuid.New().String(), key: key}
			t.byKey[key] = tr
			t.byID[tr.id] = tr
		}
		tr.raw = c.Bounds
		tr.lastSeen = seq
		c.ID = tr.id
		out[i] = c
	}

	for id, tr := range t.byID {
		if seq > tr.lastSeen && seq-tr.lastSeen > t.forgetAfter {
			delete(t.byID, id)
			delete(t.byKey, tr.key)
		}
	}
	return out
}

// Raw returns the latest raw geometry for a tracked code.
func (t *Tracker) Raw(id string) (geom.Rect, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.byID[id]
	if !ok {
		return geom.Rect{}, false
	}
	return tr.raw, true
}

// Len returns the number of codes currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
