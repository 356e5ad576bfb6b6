// Package ledger implements the monotonic-ledger CAS primitive: fetch the
// remote tip of a single named branch, apply a transformation, push a
// successor commit, retry on race.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/monoledger/gitledger/pkg/gitobj"
)

// State is the observed tip of a ledger: the commit hash and the entries
// of its tree. A nil *State means the ledger has never been pushed to.
type State struct {
	Commit  string
	Entries []gitobj.TreeEntry
}

// TransformFunc maps the currently observed tree entries to a new set of
// entries to push. It is invoked once per CAS attempt and is given
// whatever the ledger most recently observed on that attempt — it must not
// cache results across invocations (see UpdateWith).
type TransformFunc func(ctx context.Context, current []gitobj.TreeEntry) ([]gitobj.TreeEntry, error)

// Ledger manages a single named branch on a single named remote in a
// single local bare repository. A Ledger is not safe for concurrent use by
// multiple goroutines; call Clone to get an independent handle (its own
// ephemeral ref) sharing the same local store and remote.
type Ledger struct {
	g            *gitobj.Git
	remoteName   string
	branch       string
	branchRef    string
	trackingRef  string
	ephemeralRef string
}

// Open idempotently creates (or reuses) a bare repository at localPath
// with a remote named remoteName pointing at remoteURL, and returns a
// Ledger handle for branch on that remote.
func Open(ctx context.Context, localPath, remoteName, remoteURL, branch string) (*Ledger, error) {
	g, err := gitobj.OpenOrInit(ctx, localPath, remoteName, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	if _, err := g.GCEphemeralRefs(ctx); err != nil {
		return nil, fmt.Errorf("gc ephemeral refs: %w", err)
	}
	return &Ledger{
		g:            g,
		remoteName:   remoteName,
		branch:       branch,
		branchRef:    "refs/heads/" + branch,
		trackingRef:  "refs/remotes/" + remoteName + "/" + branch,
		ephemeralRef: gitobj.NewEphemeralRefName(),
	}, nil
}

// Clone returns an independent handle onto the same local store and
// remote branch, with its own ephemeral ref name. Use one clone per
// goroutine/thread that needs to push concurrently (see internal/fleet).
func (l *Ledger) Clone() *Ledger {
	clone := *l
	clone.ephemeralRef = gitobj.NewEphemeralRefName()
	return &clone
}

// Git returns the underlying object-store adapter, for callers (the lease
// codec, tests) that need to read/write blobs directly.
func (l *Ledger) Git() *gitobj.Git {
	return l.g
}

// Fetch pulls the remote branch into local tracking refs and fast-forwards
// the local branch ref to match. Returns nil if the branch does not exist
// on the remote yet. Returns ErrHistoryDivergence if the tracking ref
// cannot fast-forward from the current local branch ref — a symptom of a
// remote history rewrite by a third party, which this protocol treats as
// fatal rather than something to reconcile.
func (l *Ledger) Fetch(ctx context.Context) (*State, error) {
	if err := l.g.Fetch(ctx, l.remoteName); err != nil {
		return nil, fmt.Errorf("fetch remote %s: %w", l.remoteName, err)
	}

	trackingHash, err := l.g.ResolveRef(ctx, l.trackingRef)
	if err != nil {
		if errors.Is(err, gitobj.ErrRefNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve tracking ref: %w", err)
	}

	ok, err := l.g.FastForward(ctx, l.branchRef, trackingHash)
	if err != nil {
		return nil, fmt.Errorf("fast-forward local branch ref: %w", err)
	}
	if !ok {
		return nil, ErrHistoryDivergence
	}

	treeHash, err := l.g.CommitTreeHash(ctx, trackingHash)
	if err != nil {
		return nil, fmt.Errorf("resolve commit tree: %w", err)
	}
	entries, err := l.g.ReadTree(ctx, treeHash)
	if err != nil {
		return nil, fmt.Errorf("read commit tree: %w", err)
	}
	return &State{Commit: trackingHash, Entries: entries}, nil
}

// Push attempts a single compare-and-swap: write entries as a tree, create
// a commit whose parent is expectedParent (empty for a root commit), stage
// it on this handle's ephemeral ref, and push ephemeral_ref -> branch_ref
// on the remote. The ephemeral ref is deleted on every exit path.
//
// On success, returns the new commit hash. On a losing race (the remote
// rejected the push, and the tracking ref no longer matches
// expectedParent), returns ErrRace. Any other push rejection, or a
// subprocess failure, is returned as a plain error.
func (l *Ledger) Push(ctx context.Context, expectedParent string, entries []gitobj.TreeEntry, message string) (string, error) {
	treeHash, err := l.g.WriteTree(ctx, entries)
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}

	var parents []string
	if expectedParent != "" {
		parents = []string{expectedParent}
	}
	commitHash, err := l.g.CommitTree(ctx, treeHash, parents, message)
	if err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}

	if err := l.g.UpdateRef(ctx, l.ephemeralRef, commitHash, ""); err != nil {
		return "", fmt.Errorf("stage ephemeral ref: %w", err)
	}
	defer func() {
		_ = l.g.DeleteRef(ctx, l.ephemeralRef)
	}()

	switch l.g.PushCAS(ctx, l.remoteName, l.ephemeralRef, l.branchRef) {
	case gitobj.PushOk:
		return commitHash, nil
	case gitobj.PushRejected:
		if err := l.g.Fetch(ctx, l.remoteName); err != nil {
			return "", fmt.Errorf("fetch after rejected push: %w", err)
		}
		currentTip, err := l.g.ResolveRef(ctx, l.trackingRef)
		if err != nil && !errors.Is(err, gitobj.ErrRefNotFound) {
			return "", fmt.Errorf("resolve tracking ref after rejected push: %w", err)
		}
		if currentTip != expectedParent {
			return "", ErrRace
		}
		return "", fmt.Errorf("push rejected but remote tip still matches expected parent")
	default:
		return "", fmt.Errorf("push subprocess failure")
	}
}

// UpdateOnceWith performs a single fetch-transform-push attempt. ok is
// true iff the push succeeded (commit is then the new commit hash). A
// losing race is reported as ok==false, err==nil, letting UpdateWith loop
// without treating a race as failure; any other error is a real failure.
// Unlike UpdateWith, the transform function need not be idempotent, since
// it is invoked exactly once.
func (l *Ledger) UpdateOnceWith(ctx context.Context, message string, f TransformFunc) (ok bool, commit string, err error) {
	state, err := l.Fetch(ctx)
	if err != nil {
		return false, "", err
	}

	var parent string
	var current []gitobj.TreeEntry
	if state != nil {
		parent = state.Commit
		current = state.Entries
	}

	entries, err := f(ctx, current)
	if err != nil {
		return false, "", err
	}

	commit, err = l.Push(ctx, parent, entries, message)
	if err != nil {
		if errors.Is(err, ErrRace) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, commit, nil
}

// UpdateWith runs the CAS loop until a push succeeds: fetch, invoke f,
// push; on a losing race, fetch fresh state and retry. f must be
// idempotent with respect to being re-invoked on fresh state after a
// losing race — it is called once per attempt, never memoized across
// attempts, so it must not assume the current-entries argument is the same
// across calls.
func (l *Ledger) UpdateWith(ctx context.Context, message string, f TransformFunc) (string, error) {
	for {
		ok, commit, err := l.UpdateOnceWith(ctx, message, f)
		if err != nil {
			return "", err
		}
		if ok {
			return commit, nil
		}
	}
}
