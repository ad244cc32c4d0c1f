package storage

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"hotdelta/internal/decl"
)

// Current snapshot format version - increment when the encoded layout changes
const snapshotSchemaVersion uint16 = 1

var snapshotMagic = []byte("HDS1")

// snapshot is the encoded form of a session baseline.
type snapshot struct {
	Schema    uint16
	Documents []*decl.Document
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeSnapshot encodes documents as zstd-compressed msgpack. Arena state
// is not part of the encoding; decoded documents are added to a fresh arena.
func EncodeSnapshot(docs []*decl.Document) ([]byte, error) {
	raw, err := msgpack.Marshal(&snapshot{Schema: snapshotSchemaVersion, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	out := make([]byte, 0, len(snapshotMagic)+len(raw)/3)
	out = append(out, snapshotMagic...)
	return encoder.EncodeAll(raw, out), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(data []byte) ([]*decl.Document, error) {
	if !bytes.HasPrefix(data, snapshotMagic) {
		return nil, fmt.Errorf("not a snapshot")
	}
	raw, err := decoder.DecodeAll(data[len(snapshotMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	var snap snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("snapshot schema %d, want %d", snap.Schema, snapshotSchemaVersion)
	}
	return snap.Documents, nil
}
