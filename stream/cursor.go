package stream

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Neumenon/lha/lha"
)

// Cursor tracks per-SID state while frames are consumed: the sequence
// position, the last document received and whether the stream ended.
type Cursor struct {
	mu sync.RWMutex

	states map[uint64]*SIDState
}

// SIDState holds state for a single stream ID.
type SIDState struct {
	SID      uint64
	LastSeq  uint64        // Last sequence number accepted
	Started  bool          // At least one frame accepted
	Doc      *lha.Document // Last document received (nil until one arrives)
	DocHash  [32]byte      // SHA-256 of Doc's canonical text
	Docs     int           // Documents received
	Final    bool          // Final frame seen
	Gaps     int           // Sequence gaps tolerated
	Rejected int           // Frames refused as duplicate or late
}

// SequenceError reports a frame that cannot be accepted on its stream.
type SequenceError struct {
	SID    uint64
	Seq    uint64
	Reason string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("stream: sid=%d seq=%d: %s", e.SID, e.Seq, e.Reason)
}

// NewCursor creates an empty cursor.
func NewCursor() *Cursor {
	return &Cursor{
		states: make(map[uint64]*SIDState),
	}
}

// Get returns the state for a SID, creating it if needed.
func (c *Cursor) Get(sid uint64) *SIDState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(sid)
}

func (c *Cursor) getLocked(sid uint64) *SIDState {
	state, ok := c.states[sid]
	if !ok {
		state = &SIDState{SID: sid}
		c.states[sid] = state
	}
	return state
}

// Lookup returns the state for a SID without creating it.
func (c *Cursor) Lookup(sid uint64) (*SIDState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[sid]
	return state, ok
}

// SIDs returns all tracked SIDs in ascending order.
func (c *Cursor) SIDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sids := make([]uint64, 0, len(c.states))
	for sid := range c.states {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	return sids
}

// Observe checks a frame against its stream and advances the cursor.
//
// The first frame of a stream may carry any seq. After that a frame must
// have seq > LastSeq; a larger jump than one is accepted and counted in
// Gaps. Duplicates, reordered frames and anything after a final frame are
// refused with a *SequenceError and leave the state unchanged apart from
// Rejected.
func (c *Cursor) Observe(f *Frame) (gap bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.getLocked(f.SID)
	switch {
	case state.Final:
		state.Rejected++
		return false, &SequenceError{SID: f.SID, Seq: f.Seq, Reason: "frame after final"}
	case state.Started && f.Seq <= state.LastSeq:
		state.Rejected++
		return false, &SequenceError{SID: f.SID, Seq: f.Seq, Reason: fmt.Sprintf("not after seq %d", state.LastSeq)}
	}

	gap = state.Started && f.Seq != state.LastSeq+1
	if gap {
		state.Gaps++
	}
	state.Started = true
	state.LastSeq = f.Seq
	if f.Final {
		state.Final = true
	}
	return gap, nil
}

// SetDocument records doc as the latest document on sid.
func (c *Cursor) SetDocument(sid uint64, doc *lha.Document) {
	hash := StateHash(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.getLocked(sid)
	state.Doc = doc
	state.DocHash = hash
	state.Docs++
}

// AllFinal reports whether every tracked stream has ended. It is false
// when no stream has been seen.
func (c *Cursor) AllFinal() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.states) == 0 {
		return false
	}
	for _, state := range c.states {
		if !state.Final {
			return false
		}
	}
	return true
}
