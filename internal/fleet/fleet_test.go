package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/monoledger/gitledger/internal/ledger"
	"github.com/monoledger/gitledger/internal/lease"
	"github.com/monoledger/gitledger/pkg/gitobj/testutil"
)

// alternatingWorker repeatedly acquires the lease, and appends a single
// space only when the current payload length has the worker's expected
// parity; otherwise it releases without modifying the payload and retries
// immediately. It returns once it has performed rounds successful
// appends.
func alternatingWorker(t *testing.T, remote string, parity, rounds int) func(ctx context.Context, workerID int) error {
	return func(ctx context.Context, workerID int) error {
		l, err := ledger.Open(ctx, t.TempDir(), "origin", remote, "main")
		if err != nil {
			return err
		}
		mgr := lease.New(l, lease.Config{PollInterval: 5 * time.Millisecond, LeaseDuration: time.Second}, nil)

		done := 0
		for done < rounds {
			guard, err := mgr.Lock(ctx)
			if err != nil {
				return err
			}
			data := guard.Data()
			if len(data)%2 == parity {
				next := append(append([]byte{}, data...), ' ')
				if err := guard.UpdateAndRelease(ctx, next); err != nil {
					return err
				}
				done++
			} else {
				if err := guard.Release(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// TestScenario4TwoParallelWorkersAlternate exercises end-to-end scenario
// 4: two parallel workers alternate appending a space to the payload,
// each observing only strings of its expected length parity, four rounds
// each starting from empty. The final payload is 8 spaces.
func TestScenario4TwoParallelWorkersAlternate(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewBareRemote(t)

	seed, err := ledger.Open(ctx, t.TempDir(), "origin", remote, "main")
	if err != nil {
		t.Fatalf("seed ledger.Open: %v", err)
	}
	entries, err := ledger.Encode(ctx, seed.Git(), nil, 0)
	if err != nil {
		t.Fatalf("seed Encode: %v", err)
	}
	if _, err := seed.Push(ctx, "", entries, "seed"); err != nil {
		t.Fatalf("seed Push: %v", err)
	}

	evenWorker := alternatingWorker(t, remote, 0, 4)
	oddWorker := alternatingWorker(t, remote, 1, 4)

	results := Run(ctx, 2, func(ctx context.Context, workerID int) error {
		if workerID == 0 {
			return evenWorker(ctx, workerID)
		}
		return oddWorker(ctx, workerID)
	})
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("worker %d: %v", r.WorkerID, r.Err)
		}
	}

	final, err := ledger.Open(ctx, t.TempDir(), "origin", remote, "main")
	if err != nil {
		t.Fatalf("final ledger.Open: %v", err)
	}
	state, err := final.Fetch(ctx)
	if err != nil {
		t.Fatalf("final Fetch: %v", err)
	}
	payload, _, err := ledger.Decode(ctx, final.Git(), state.Entries)
	if err != nil {
		t.Fatalf("final Decode: %v", err)
	}
	if len(payload) != 8 {
		t.Fatalf("final payload length = %d, want 8 (%q)", len(payload), payload)
	}
	for _, b := range payload {
		if b != ' ' {
			t.Fatalf("final payload = %q, want all spaces", payload)
		}
	}
}
