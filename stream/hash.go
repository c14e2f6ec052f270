package stream

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/crc32"

	"github.com/Neumenon/lha/lha"
)

// crcTable is the IEEE CRC-32 table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// StateHash computes sha256 of the document's serialized text. It matches
// the base WriteDocument records when the writer uses default emit options.
func StateHash(doc *lha.Document) [32]byte {
	return sha256.Sum256([]byte(doc.String()))
}

// StateHashBytes computes SHA-256 of raw bytes.
func StateHashBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string to a 32-byte hash.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}
