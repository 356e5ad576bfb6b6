package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/monoledger/gitledger/pkg/gitobj"
	"github.com/monoledger/gitledger/pkg/gitobj/testutil"
)

func newTestGit(t *testing.T) *gitobj.Git {
	t.Helper()
	dir := t.TempDir()
	g, err := gitobj.OpenOrInit(context.Background(), dir, "origin", testutil.NewBareRemote(t))
	if err != nil {
		t.Fatalf("OpenOrInit: %v", err)
	}
	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGit(t)

	cases := []struct {
		payload []byte
		lease   uint64
	}{
		{[]byte("hello"), 1},
		{[]byte(""), 0xdeadbeefcafef00d},
		{nil, 42},
		{bytes.Repeat([]byte{0xff}, 4096), 1<<64 - 1},
	}

	for _, c := range cases {
		entries, err := Encode(ctx, g, c.payload, c.lease)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		payload, lease, err := Decode(ctx, g, entries)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if lease != c.lease {
			t.Errorf("lease round-trip: got %d, want %d", lease, c.lease)
		}
		if !bytes.Equal(payload, c.payload) && !(len(payload) == 0 && len(c.payload) == 0) {
			t.Errorf("payload round-trip: got %q, want %q", payload, c.payload)
		}
	}
}

func TestDecodeEmptyTree(t *testing.T) {
	ctx := context.Background()
	g := newTestGit(t)

	payload, lease, err := Decode(ctx, g, nil)
	if err != nil {
		t.Fatalf("Decode(nil): %v", err)
	}
	if lease != 0 || len(payload) != 0 {
		t.Errorf("Decode(nil) = (%q, %d), want (empty, 0)", payload, lease)
	}
}

func TestDecodeRejectsMultipleEntries(t *testing.T) {
	ctx := context.Background()
	g := newTestGit(t)

	a, _ := Encode(ctx, g, []byte("a"), 1)
	b, _ := Encode(ctx, g, []byte("b"), 2)
	entries := append(a, b...)

	_, _, err := Decode(ctx, g, entries)
	var fmtErr *FormatError
	if err == nil {
		t.Fatal("expected FormatError, got nil")
	}
	if !errors.As(err, &fmtErr) {
		t.Fatalf("expected *FormatError, got %T: %v", err, err)
	}
}

func TestDecodeRejectsBadFilename(t *testing.T) {
	ctx := context.Background()
	g := newTestGit(t)

	entries, _ := Encode(ctx, g, []byte("a"), 1)
	entries[0].Name = "not-hex"

	_, _, err := Decode(ctx, g, entries)
	var fmtErr *FormatError
	if err == nil || !errors.As(err, &fmtErr) {
		t.Fatalf("expected *FormatError, got %T: %v", err, err)
	}
}
