package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/lha/lha"
)

const massDoc = "BLOCK MASS # Mass spectrum\n   36   1.23456789E+02   # mA\n" +
	"DECAY   25   1.234E-03   # h decay\n   6.50000000E-01   3   5   -5\n"

func parseDoc(t *testing.T, text string) *lha.Document {
	t.Helper()
	doc, err := lha.ParseString(text)
	require.NoError(t, err)
	return doc
}

// ============================================================
// Writer Tests
// ============================================================

func TestWriter_MinimalFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteFrame(&Frame{
		Version: 1,
		Kind:    KindDoc,
		Payload: []byte("BLOCK A"),
	})
	require.NoError(t, err)
	assert.Equal(t, "@frame{v=1 sid=0 seq=0 kind=doc len=7}\nBLOCK A\n", buf.String())
}

func TestWriter_WithCRC(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCRC())

	payload := []byte("BLOCK A\n 1 2\n")
	require.NoError(t, w.WriteFrame(&Frame{SID: 1, Seq: 5, Kind: KindDoc, Payload: payload}))
	assert.Contains(t, buf.String(), fmt.Sprintf("crc=%08x", ComputeCRC(payload)))
}

func TestWriter_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCRC())

	require.NoError(t, w.WriteAck(1, 42))
	assert.Equal(t, "@frame{v=1 sid=1 seq=42 kind=ack len=0}\n\n", buf.String())
}

func TestWriter_Final(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteFinal(3, 9))
	assert.Contains(t, buf.String(), "final=true")
}

func TestWriter_DocumentBase(t *testing.T) {
	var buf bytes.Buffer
	doc := parseDoc(t, massDoc)

	require.NoError(t, NewWriter(&buf).WriteDocument(1, 0, doc))
	assert.Contains(t, buf.String(), "base=sha256:"+HashToHex(StateHash(doc)))
	assert.Contains(t, buf.String(), "BLOCK\tMASS\t# Mass spectrum\n")
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_MinimalFrame(t *testing.T) {
	r := NewReader(strings.NewReader("@frame{v=1 sid=2 seq=3 kind=doc len=7}\nBLOCK A\n"))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), frame.Version)
	assert.Equal(t, uint64(2), frame.SID)
	assert.Equal(t, uint64(3), frame.Seq)
	assert.Equal(t, KindDoc, frame.Kind)
	assert.Equal(t, "BLOCK A", string(frame.Payload))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_CRCMismatch(t *testing.T) {
	r := NewReader(strings.NewReader("@frame{v=1 sid=1 seq=5 kind=doc len=5 crc=deadbeef}\nhello\n"))

	_, err := r.Next()
	var mismatch *CRCMismatchError
	require.True(t, errors.As(err, &mismatch), "expected CRCMismatchError, got %v", err)
	assert.Equal(t, uint32(0xdeadbeef), mismatch.Expected)

	r = NewReader(strings.NewReader("@frame{v=1 sid=1 seq=5 kind=doc len=5 crc=deadbeef}\nhello\n"), WithoutCRCVerification())
	_, err = r.Next()
	assert.NoError(t, err)
}

func TestReader_PayloadWithNewlines(t *testing.T) {
	payload := "BLOCK A\n 1 2\n# @frame{v=1}\n"
	input := fmt.Sprintf("@frame{v=1 sid=1 seq=1 kind=doc len=%d}\n%s\n", len(payload), payload)

	frame, err := NewReader(strings.NewReader(input)).Next()
	require.NoError(t, err)
	assert.Equal(t, payload, string(frame.Payload))
}

func TestReader_HeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no prefix", "frame{v=1 len=0}\n"},
		{"no brace", "@frame{v=1 len=0\n"},
		{"bad version", "@frame{v=2 len=0}\n"},
		{"bad kind", "@frame{v=1 kind=patch len=0}\n"},
		{"bad len", "@frame{v=1 len=x}\n"},
		{"missing len", "@frame{v=1 kind=doc}\n"},
		{"bad crc", "@frame{v=1 len=0 crc=xyz}\n"},
		{"bad base", "@frame{v=1 len=0 base=sha256:00}\n"},
		{"bad enc", "@frame{v=1 len=0 enc=gzip}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Next()
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
		})
	}
}

func TestReader_MaxPayload(t *testing.T) {
	r := NewReader(strings.NewReader("@frame{v=1 kind=doc len=100}\n"), WithMaxPayload(10))
	_, err := r.Next()
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "too large")
}

// ============================================================
// Document Round Trip Tests
// ============================================================

func TestDocument_RoundTrip(t *testing.T) {
	for _, opts := range [][]WriterOption{
		nil,
		{WithCRC()},
		{WithCompression()},
		{WithCRC(), WithCompression()},
	} {
		var buf bytes.Buffer
		doc := parseDoc(t, massDoc)

		w := NewWriter(&buf, opts...)
		require.NoError(t, w.WriteDocument(7, 0, doc))
		require.NoError(t, w.WriteDocument(7, 1, doc))
		require.NoError(t, w.WriteFinal(7, 2))

		r := NewReader(&buf)
		for seq := uint64(0); seq < 2; seq++ {
			got, frame, err := r.NextDocument()
			require.NoError(t, err)
			assert.Equal(t, seq, frame.Seq)
			assert.Equal(t, doc.Fingerprint(), got.Fingerprint())

			br, err := mustDecay(t, got, 25).BranchingRatio(5, -5)
			require.NoError(t, err)
			assert.Equal(t, 0.65, br)
		}

		_, frame, err := r.NextDocument()
		var km *KindMismatchError
		require.True(t, errors.As(err, &km))
		assert.True(t, frame.Final)
	}
}

func TestDocument_CompressedPayloadIsSmaller(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("BLOCK BIG\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, " %d 1.00000000E+00 # repeated row\n", i)
	}
	doc := parseDoc(t, sb.String())

	var plain, packed bytes.Buffer
	require.NoError(t, NewWriter(&plain).WriteDocument(1, 0, doc))
	require.NoError(t, NewWriter(&packed, WithCompression()).WriteDocument(1, 0, doc))
	assert.Less(t, packed.Len(), plain.Len())
	assert.Contains(t, packed.String(), "enc=zstd")
}

func TestDocument_BaseMismatch(t *testing.T) {
	payload := "BLOCK A\n"
	wrong := StateHashBytes([]byte("BLOCK B\n"))
	input := fmt.Sprintf("@frame{v=1 sid=1 seq=0 kind=doc len=%d base=sha256:%s}\n%s\n", len(payload), HashToHex(wrong), payload)

	_, _, err := NewReader(strings.NewReader(input)).NextDocument()
	var bm *BaseMismatchError
	assert.True(t, errors.As(err, &bm), "expected BaseMismatchError, got %v", err)
}

func TestDocument_ParseErrorCarriesFrame(t *testing.T) {
	payload := "DECAY 25 0.5\n"
	input := fmt.Sprintf("@frame{v=1 sid=4 seq=8 kind=doc len=%d}\n%s\n", len(payload), payload)

	_, _, err := NewReader(strings.NewReader(input)).NextDocument()
	require.Error(t, err)
	assert.ErrorIs(t, err, lha.ErrParse)
	assert.Contains(t, err.Error(), "sid=4 seq=8")
}

func TestHexToHash(t *testing.T) {
	h := StateHashBytes([]byte("x"))
	got, ok := HexToHash(HashToHex(h))
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = HexToHash(strings.Repeat("zz", 32))
	assert.False(t, ok)
}

func mustDecay(t *testing.T, doc *lha.Document, pdgid int64) *lha.Decay {
	t.Helper()
	d, err := doc.Decay(pdgid)
	require.NoError(t, err)
	return d
}
