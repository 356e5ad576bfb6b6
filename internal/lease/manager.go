// Package lease implements the blob-ledger lease manager: a leased
// exclusive lock built atop a monotonic ledger, where lease identity is
// embedded in the ledger payload's tree-entry filename so that
// acquisition, renewal, theft detection, and release are all
// compare-and-swap operations on the ledger itself.
package lease

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/monoledger/gitledger/internal/ledger"
)

// Config governs the acquisition loop's timing.
type Config struct {
	// PollInterval is how long to sleep between fetches while waiting for
	// a held lease to be released or to time out.
	PollInterval time.Duration
	// LeaseDuration is how long a lease may go unrenewed before a waiter
	// is entitled to steal it.
	LeaseDuration time.Duration
}

// Notifier receives acquisition-loop progress events. New substitutes
// NoopNotifier, which discards everything, when given nil; internal/tui
// implements a progress-bar-driving Notifier.
type Notifier interface {
	// Waiting reports that the loop observed leaseID held (possibly the
	// same value as last time) and is about to sleep before re-polling.
	Waiting(leaseID uint64, waited time.Duration)
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

func (NoopNotifier) Waiting(uint64, time.Duration) {}

// Manager drives the acquisition loop for one ledger.
type Manager struct {
	ledger   *ledger.Ledger
	cfg      Config
	notifier Notifier
}

// New returns a Manager for l with the given acquisition timing. notifier
// may be nil, in which case events are discarded.
func New(l *ledger.Ledger, cfg Config, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Manager{ledger: l, cfg: cfg, notifier: notifier}
}

// Lock runs the acquisition protocol (distilled spec §4.5) and returns a
// Guard on success. It blocks until either it claims an unheld lease or it
// steals a lease that has gone unrenewed for at least LeaseDuration.
func (m *Manager) Lock(ctx context.Context) (*Guard, error) {
	for {
		commit, payload, err := m.pollUntilClaimable(ctx)
		if err != nil {
			return nil, err
		}

		newLease, err := randomNonZeroLease()
		if err != nil {
			return nil, fmt.Errorf("generate lease: %w", err)
		}

		entries, err := ledger.Encode(ctx, m.ledger.Git(), payload, newLease)
		if err != nil {
			return nil, fmt.Errorf("encode claim: %w", err)
		}
		newCommit, err := m.ledger.Push(ctx, commit, entries, "lease: acquire")
		if err == nil {
			return newGuard(m, newLease, newCommit, payload), nil
		}
		if isRace(err) {
			continue // outer retry loop: restart the whole acquisition
		}
		return nil, err
	}
}

// pollUntilClaimable runs the inner polling loop: it returns once the
// ledger is observed unheld, or once the currently-held lease has gone
// unrenewed for at least LeaseDuration (theft). It returns the commit
// observed at exit (empty string if the ledger has never been pushed to)
// and the payload observed at exit.
func (m *Manager) pollUntilClaimable(ctx context.Context) (commit string, payload []byte, err error) {
	var observedLease uint64
	waitStart := time.Now()

	for {
		state, fetchErr := m.ledger.Fetch(ctx)
		if fetchErr != nil {
			return "", nil, fetchErr
		}

		var remoteLease uint64
		var remotePayload []byte
		var remoteCommit string
		if state != nil {
			remoteCommit = state.Commit
			remotePayload, remoteLease, fetchErr = ledger.Decode(ctx, m.ledger.Git(), state.Entries)
			if fetchErr != nil {
				return "", nil, fetchErr
			}
		}

		if remoteLease == 0 {
			return remoteCommit, remotePayload, nil
		}

		elapsed := time.Since(waitStart)
		if remoteLease != observedLease {
			observedLease = remoteLease
			waitStart = time.Now()
			elapsed = 0
		} else if elapsed >= m.cfg.LeaseDuration {
			return remoteCommit, remotePayload, nil
		}

		m.notifier.Waiting(remoteLease, elapsed)

		sleep := m.cfg.PollInterval
		if remaining := m.cfg.LeaseDuration - elapsed; remaining < sleep {
			sleep = remaining
		}
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// randomNonZeroLease draws a cryptographically random 64-bit lease,
// rejecting and redrawing 0 (which denotes "no lease held") — the
// distilled spec's §9 open question resolved in favor of an explicit
// reject-and-redraw even though the original source does not bother.
func randomNonZeroLease() (uint64, error) {
	for {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(b[:])
		if v != 0 {
			return v, nil
		}
	}
}

func isRace(err error) bool {
	return errors.Is(err, ledger.ErrRace)
}
