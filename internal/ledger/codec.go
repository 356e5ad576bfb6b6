package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/monoledger/gitledger/pkg/gitobj"
)

// Encode writes payload as a blob and returns the single-entry tree for
// (payload, leaseID): the entry name is the 16-hex-char little-endian
// encoding of leaseID, the entry object is the payload blob.
func Encode(ctx context.Context, g *gitobj.Git, payload []byte, leaseID uint64) ([]gitobj.TreeEntry, error) {
	hash, err := g.WriteBlob(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("write payload blob: %w", err)
	}
	return []gitobj.TreeEntry{{Mode: gitobj.BlobMode, Hash: hash, Name: leaseName(leaseID)}}, nil
}

// Decode reads the entries of a blob-ledger tree and returns the decoded
// (payload, leaseID). A nil/empty entries slice (no such tree, or a fresh
// ledger that never had a payload pushed) decodes to (nil, 0).
func Decode(ctx context.Context, g *gitobj.Git, entries []gitobj.TreeEntry) ([]byte, uint64, error) {
	if len(entries) == 0 {
		return nil, 0, nil
	}
	if len(entries) > 1 {
		return nil, 0, &FormatError{Reason: fmt.Sprintf("tree has %d entries, want at most 1", len(entries))}
	}
	entry := entries[0]
	leaseID, err := parseLeaseName(entry.Name)
	if err != nil {
		return nil, 0, err
	}
	payload, err := g.ReadBlob(ctx, entry.Hash)
	if err != nil {
		return nil, 0, fmt.Errorf("read payload blob: %w", err)
	}
	return payload, leaseID, nil
}

func leaseName(leaseID uint64) string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], leaseID)
	return hex.EncodeToString(b[:])
}

func parseLeaseName(name string) (uint64, error) {
	if len(name) != 16 {
		return 0, &FormatError{Reason: fmt.Sprintf("entry name %q is not 16 hex characters", name)}
	}
	raw, err := hex.DecodeString(name)
	if err != nil {
		return 0, &FormatError{Reason: fmt.Sprintf("entry name %q is not valid hex", name)}
	}
	return binary.LittleEndian.Uint64(raw), nil
}
