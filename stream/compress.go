package stream

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

// compress zstd-encodes a payload. The shared encoder is safe for
// concurrent EncodeAll calls.
func compress(src []byte) []byte {
	encoderOnce.Do(func() {
		// NewWriter only fails on invalid options.
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder.EncodeAll(src, make([]byte, 0, len(src)/2))
}

// decompress decodes a zstd payload, refusing output larger than max.
func decompress(src []byte, max int) ([]byte, error) {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(MaxPayloadSize)))
	})
	out, err := decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	if len(out) > max {
		return nil, &ParseError{Reason: fmt.Sprintf("decompressed payload too large: %d > %d", len(out), max), Offset: -1}
	}
	return out, nil
}
