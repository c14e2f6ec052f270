package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/lha/lha"
)

func TestCursor_Basic(t *testing.T) {
	cursor := NewCursor()

	state := cursor.Get(3)
	require.NotNil(t, state)
	assert.Equal(t, uint64(3), state.SID)
	assert.False(t, state.Started)

	_, ok := cursor.Lookup(99)
	assert.False(t, ok, "Lookup must not create state")

	cursor.Get(1)
	cursor.Get(2)
	assert.Equal(t, []uint64{1, 2, 3}, cursor.SIDs())
}

func TestCursor_Observe(t *testing.T) {
	cursor := NewCursor()

	gap, err := cursor.Observe(&Frame{SID: 1, Seq: 5, Kind: KindDoc})
	require.NoError(t, err)
	assert.False(t, gap, "first frame may start at any seq")

	gap, err = cursor.Observe(&Frame{SID: 1, Seq: 6, Kind: KindDoc})
	require.NoError(t, err)
	assert.False(t, gap)

	gap, err = cursor.Observe(&Frame{SID: 1, Seq: 9, Kind: KindDoc})
	require.NoError(t, err)
	assert.True(t, gap)

	for _, seq := range []uint64{9, 7} {
		_, err = cursor.Observe(&Frame{SID: 1, Seq: seq, Kind: KindDoc})
		var se *SequenceError
		require.True(t, errors.As(err, &se), "seq %d: got %v", seq, err)
		assert.Equal(t, uint64(1), se.SID)
		assert.Equal(t, seq, se.Seq)
	}

	state, ok := cursor.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, uint64(9), state.LastSeq)
	assert.Equal(t, 1, state.Gaps)
	assert.Equal(t, 2, state.Rejected)
}

func TestCursor_Final(t *testing.T) {
	cursor := NewCursor()
	assert.False(t, cursor.AllFinal(), "no streams yet")

	_, err := cursor.Observe(&Frame{SID: 1, Seq: 0, Kind: KindDoc})
	require.NoError(t, err)
	_, err = cursor.Observe(&Frame{SID: 2, Seq: 0, Kind: KindAck, Final: true})
	require.NoError(t, err)
	assert.False(t, cursor.AllFinal())

	_, err = cursor.Observe(&Frame{SID: 1, Seq: 1, Kind: KindAck, Final: true})
	require.NoError(t, err)
	assert.True(t, cursor.AllFinal())

	_, err = cursor.Observe(&Frame{SID: 1, Seq: 2, Kind: KindDoc})
	assert.ErrorContains(t, err, "frame after final")
}

func TestCursor_SetDocument(t *testing.T) {
	cursor := NewCursor()
	doc, err := lha.ParseString("BLOCK A\n 1 2\n")
	require.NoError(t, err)

	cursor.SetDocument(4, doc)
	cursor.SetDocument(4, doc)

	state, ok := cursor.Lookup(4)
	require.True(t, ok)
	assert.Same(t, doc, state.Doc)
	assert.Equal(t, StateHash(doc), state.DocHash)
	assert.Equal(t, 2, state.Docs)
}

func TestCursor_WithReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCRC())
	doc, err := lha.ParseString("BLOCK A\n")
	require.NoError(t, err)

	require.NoError(t, w.WriteDocument(1, 0, doc))
	require.NoError(t, w.WriteDocument(1, 0, doc)) // duplicate
	require.NoError(t, w.WriteDocument(1, 1, doc))
	require.NoError(t, w.WriteFinal(1, 2))

	r := NewReader(&buf)
	cursor := NewCursor()
	accepted := 0
	for {
		frame, err := r.Next()
		if err != nil {
			break
		}
		if _, err := cursor.Observe(frame); err != nil {
			continue
		}
		if frame.Kind == KindDoc {
			got, err := r.Document(frame)
			require.NoError(t, err)
			cursor.SetDocument(frame.SID, got)
			accepted++
		}
	}

	assert.Equal(t, 2, accepted)
	state, _ := cursor.Lookup(1)
	assert.True(t, state.Final)
	assert.Equal(t, 1, state.Rejected)
	assert.Equal(t, StateHash(doc), state.DocHash)
}
