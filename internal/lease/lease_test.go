package lease

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/monoledger/gitledger/internal/ledger"
	"github.com/monoledger/gitledger/pkg/gitobj/testutil"
)

func testConfig() Config {
	return Config{PollInterval: 15 * time.Millisecond, LeaseDuration: 120 * time.Millisecond}
}

func newTestManager(t *testing.T, remoteURL string) *Manager {
	t.Helper()
	l, err := ledger.Open(context.Background(), t.TempDir(), "origin", remoteURL, "main")
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	return New(l, testConfig(), nil)
}

// TestScenario1FullLifecycle exercises end-to-end scenario 1.
func TestScenario1FullLifecycle(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewBareRemote(t)
	m := newTestManager(t, remote)

	guard, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if len(guard.Data()) != 0 {
		t.Fatalf("initial Data() = %q, want empty", guard.Data())
	}

	if err := guard.Update(ctx, []byte("foo")); err != nil {
		t.Fatalf("Update(foo): %v", err)
	}
	if err := guard.UpdateAndRelease(ctx, []byte("bar")); err != nil {
		t.Fatalf("UpdateAndRelease(bar): %v", err)
	}

	guard2, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	if string(guard2.Data()) != "bar" {
		t.Fatalf("Data() after re-lock = %q, want bar", guard2.Data())
	}
	if err := guard2.Renew(ctx); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if err := guard2.Update(ctx, []byte("qux")); err != nil {
		t.Fatalf("Update(qux): %v", err)
	}
	if err := guard2.Renew(ctx); err != nil {
		t.Fatalf("Renew 2: %v", err)
	}
	if err := guard2.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	guard3, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("third Lock: %v", err)
	}
	if string(guard3.Data()) != "qux" {
		t.Fatalf("Data() after final re-lock = %q, want qux", guard3.Data())
	}
	_ = guard3.Release(ctx)
}

// TestScenario2HandoffCorruption exercises end-to-end scenario 2 and
// invariant 5 (lost-lease detection): two guards forked from the same
// acquired lease, simulating a corrupted handoff between processes.
func TestScenario2HandoffCorruption(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewBareRemote(t)
	m := newTestManager(t, remote)

	base, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := base.Update(ctx, []byte("foo")); err != nil {
		t.Fatalf("Update(foo): %v", err)
	}

	base.mu.Lock()
	a := newGuard(m, base.leaseID, base.lastCommit, base.payload)
	b := newGuard(m, base.leaseID, base.lastCommit, base.payload)
	base.mu.Unlock()

	if err := b.Renew(ctx); err != nil {
		t.Fatalf("B.Renew (1st): %v", err)
	}
	if err := a.Renew(ctx); !errors.Is(err, ErrLostLease) {
		t.Fatalf("A.Renew = %v, want ErrLostLease", err)
	}
	if err := b.Renew(ctx); err != nil {
		t.Fatalf("B.Renew (2nd): %v", err)
	}
	if string(b.Data()) != "foo" {
		t.Fatalf("B.Data() = %q, want foo", b.Data())
	}
	if err := b.Update(ctx, []byte("baz")); err != nil {
		t.Fatalf("B.Update(baz): %v", err)
	}
	if string(b.Data()) != "baz" {
		t.Fatalf("B.Data() after update = %q, want baz", b.Data())
	}

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

// TestScenario3TheftAfterTimeout exercises end-to-end scenario 3 and
// invariant 6: a guard that is never released is stolen after
// LeaseDuration elapses, and the thief observes the last-persisted
// payload.
func TestScenario3TheftAfterTimeout(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewBareRemote(t)
	cfg := testConfig()

	l1, err := ledger.Open(ctx, t.TempDir(), "origin", remote, "main")
	if err != nil {
		t.Fatalf("ledger.Open (holder): %v", err)
	}
	holderMgr := New(l1, cfg, nil)

	guard, err := holderMgr.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock (holder): %v", err)
	}
	if err := guard.Update(ctx, []byte("foo")); err != nil {
		t.Fatalf("Update(foo): %v", err)
	}
	// Intentionally never release guard — simulates a crashed holder.

	l2, err := ledger.Open(ctx, t.TempDir(), "origin", remote, "main")
	if err != nil {
		t.Fatalf("ledger.Open (waiter): %v", err)
	}
	waiterMgr := New(l2, cfg, nil)

	start := time.Now()
	waiterGuard, err := waiterMgr.Lock(ctx)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Lock (waiter): %v", err)
	}
	if elapsed < cfg.LeaseDuration {
		t.Fatalf("waiter returned after %v, want >= %v", elapsed, cfg.LeaseDuration)
	}
	if string(waiterGuard.Data()) != "foo" {
		t.Fatalf("waiter Data() = %q, want foo", waiterGuard.Data())
	}
	_ = waiterGuard.Release(ctx)

	runtime.KeepAlive(guard)
}

// TestScenario7UpdateAndReleaseLeavesZeroLease exercises invariant 7: a
// fresh lock after update_and_release observes the released payload under
// a brand-new random lease.
func TestScenario7UpdateAndReleaseLeavesZeroLease(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewBareRemote(t)
	m := newTestManager(t, remote)

	guard, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := guard.UpdateAndRelease(ctx, []byte("x")); err != nil {
		t.Fatalf("UpdateAndRelease: %v", err)
	}

	guard2, err := m.Lock(ctx)
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	if string(guard2.Data()) != "x" {
		t.Fatalf("Data() = %q, want x", guard2.Data())
	}
	if guard2.leaseID == 0 {
		t.Fatal("new lease must be non-zero")
	}
	_ = guard2.Release(ctx)
}
