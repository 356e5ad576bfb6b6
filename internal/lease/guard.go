package lease

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/monoledger/gitledger/internal/ledger"
)

// ErrLostLease is returned by Update/Renew/Release when the guard's CAS
// push is rejected after acquisition: some other party raced in a commit
// (typically because it stole the lease after a timeout), and this guard
// no longer holds it.
var ErrLostLease = errors.New("lease: lost lease, CAS push rejected after acquisition")

// Guard is a held lease. The zero value is not usable; obtain one from
// Manager.Lock. A Guard is not safe for concurrent use by multiple
// goroutines — the two-guards-same-lease scenario in the testable
// properties is intentionally about two independent *Guard values racing
// on the same ledger, not about sharing one Guard.
type Guard struct {
	manager *Manager
	mu      sync.Mutex

	leaseID    uint64
	lastCommit string
	payload    []byte
	released   bool
}

func newGuard(m *Manager, leaseID uint64, commit string, payload []byte) *Guard {
	g := &Guard{manager: m, leaseID: leaseID, lastCommit: commit, payload: payload}
	runtime.SetFinalizer(g, finalizeGuard)
	return g
}

// finalizeGuard is the best-effort release-on-drop backstop described in
// SPEC_FULL.md §4.5: if a Guard is garbage-collected without an explicit
// Close/Release/UpdateAndRelease, attempt one release and ignore the
// outcome. Correct callers should still `defer guard.Close()` — this only
// covers callers that forget.
func finalizeGuard(g *Guard) {
	g.mu.Lock()
	released := g.released
	g.mu.Unlock()
	if released {
		return
	}
	_ = g.Release(context.Background())
}

// Data returns the payload observed at the last successful CAS (initial
// acquisition, Update, or Renew).
func (g *Guard) Data() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.payload
}

// Update pushes newPayload under a freshly-generated lease, replacing both
// the cached payload and the lease. Any third party that stole the lease
// since our last successful CAS will have advanced the remote tip, so our
// push fails as ErrLostLease — this is the theft-detection mechanism.
func (g *Guard) Update(ctx context.Context, newPayload []byte) error {
	return g.pushNext(ctx, newPayload, true)
}

// Renew is identical to Update but retains the current payload. Rotating
// to a fresh lease on every renewal advances the remote tip and
// invalidates the CAS parent any racing thief would need, making renewal
// double as a liveness heartbeat and an eviction of any racing holder.
func (g *Guard) Renew(ctx context.Context) error {
	g.mu.Lock()
	payload := g.payload
	g.mu.Unlock()
	return g.pushNext(ctx, payload, true)
}

// Release encodes (payload, 0) and CAS-pushes, cleanly releasing the
// lease. On a lost race, returns ErrLostLease.
func (g *Guard) Release(ctx context.Context) error {
	g.mu.Lock()
	payload := g.payload
	g.mu.Unlock()
	return g.pushNext(ctx, payload, false)
}

// UpdateAndRelease encodes (newPayload, 0) and CAS-pushes in one step,
// consuming the guard.
func (g *Guard) UpdateAndRelease(ctx context.Context, newPayload []byte) error {
	return g.pushNext(ctx, newPayload, false)
}

// Close is the idiomatic Go release path: call it (typically via defer)
// when done with the guard. Equivalent to Release, except calling Close on
// an already-released guard is a no-op rather than an error.
func (g *Guard) Close() error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()
	return g.Release(context.Background())
}

func (g *Guard) pushNext(ctx context.Context, payload []byte, holdLease bool) error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return fmt.Errorf("lease: guard already released")
	}
	parent := g.lastCommit
	g.mu.Unlock()

	var nextLease uint64
	if holdLease {
		newLease, err := randomNonZeroLease()
		if err != nil {
			return fmt.Errorf("generate lease: %w", err)
		}
		nextLease = newLease
	}

	entries, err := ledger.Encode(ctx, g.manager.ledger.Git(), payload, nextLease)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	commit, err := g.manager.ledger.Push(ctx, parent, entries, "lease: update")
	if err != nil {
		if isRace(err) {
			return ErrLostLease
		}
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.payload = payload
	g.lastCommit = commit
	g.leaseID = nextLease
	if !holdLease {
		g.released = true
		runtime.SetFinalizer(g, nil)
	}
	return nil
}
