package gitobj

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// PushResult is the outcome of a compare-and-swap push.
type PushResult int

const (
	// PushOk means the remote accepted the push as a fast-forward.
	PushOk PushResult = iota
	// PushRejected means the remote rejected the push (most commonly a
	// non-fast-forward, i.e. someone else raced us).
	PushRejected
	// PushSubprocessFailure means the push command itself could not be run
	// (git missing, context cancelled). A git push that runs and exits
	// nonzero, including on a transport failure, is PushRejected.
	PushSubprocessFailure
)

// openOrInitAttempts / openOrInitDelay bound how long OpenOrInit waits for
// a concurrently-running initializer (in another process) to finish adding
// the remote before adding it itself.
const (
	openOrInitAttempts = 20
	openOrInitDelay    = 50 * time.Millisecond
)

// OpenOrInit idempotently creates a local bare repository at dir (if one
// does not already exist) and ensures it has a remote named remoteName
// pointing at remoteURL. It is safe to call concurrently from independent
// processes targeting the same dir: the retry loop gives a racing
// initializer time to add the remote first, and if both sides still add
// it, the one whose add fails accepts the remote the other added.
func OpenOrInit(ctx context.Context, dir, remoteName, remoteURL string) (*Git, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local path: %w", err)
		}
		g := New(dir)
		if err := g.RunSilent(ctx, "init", "--bare"); err != nil {
			return nil, fmt.Errorf("git init --bare: %w", err)
		}
	}

	g := New(dir)
	for attempt := 0; attempt < openOrInitAttempts; attempt++ {
		if has, err := g.hasRemote(ctx, remoteName); err != nil {
			return nil, err
		} else if has {
			return g, nil
		}
		time.Sleep(openOrInitDelay)
	}

	if has, err := g.hasRemote(ctx, remoteName); err != nil {
		return nil, err
	} else if has {
		return g, nil
	}

	if err := g.RunSilent(ctx, "remote", "add", remoteName, remoteURL); err != nil {
		if has, hasErr := g.hasRemote(ctx, remoteName); hasErr == nil && has {
			return g, nil
		}
		return nil, fmt.Errorf("git remote add: %w", err)
	}
	return g, nil
}

func (g *Git) hasRemote(ctx context.Context, name string) (bool, error) {
	out, err := g.Run(ctx, "remote")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if line == name {
			return true, nil
		}
	}
	return false, nil
}

// Fetch pulls all refs from remoteName into this repository's tracking
// refs (refs/remotes/<remoteName>/*). It does not touch any local branch.
func (g *Git) Fetch(ctx context.Context, remoteName string) error {
	return g.RunSilent(ctx, "fetch", remoteName)
}

// PushCAS pushes localRef to remoteRef on remoteName with git's native
// compare-and-swap semantics: the push is only accepted if it is a
// fast-forward of whatever the remote currently has at remoteRef. This is
// the one hard requirement the object store must provide (§6).
func (g *Git) PushCAS(ctx context.Context, remoteName, localRef, remoteRef string) PushResult {
	refspec := localRef + ":" + remoteRef
	g.Logger.Trace().Str("remote", remoteName).Str("refspec", refspec).Msg("git push (cas)")
	if err := g.RunSilent(ctx, "push", remoteName, refspec); err != nil {
		var gitErr *Error
		if asGitError(err, &gitErr) {
			return PushRejected
		}
		return PushSubprocessFailure
	}
	return PushOk
}

func asGitError(err error, target **Error) bool {
	ge, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = ge
	return true
}

// LsRemote queries a remote for the commit hash of a ref without fetching
// it locally.
func (g *Git) LsRemote(ctx context.Context, url, ref string) (string, error) {
	out, err := g.Run(ctx, "ls-remote", url, ref)
	if err != nil {
		return "", fmt.Errorf("ls-remote %s %s: %w", url, ref, err)
	}
	return ParseLsRemoteOutput(out, ref)
}

// ParseLsRemoteOutput extracts the commit hash from git ls-remote output.
// When multiple lines match (e.g., annotated tags), ParseLsRemoteOutput
// prefers the dereferenced entry (^{}) which points at the underlying
// commit.
func ParseLsRemoteOutput(output, ref string) (string, error) {
	if strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("no matching ref %q in ls-remote output", ref)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	var bestHash string
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		hash := parts[0]
		refName := parts[1]

		if strings.HasSuffix(refName, "^{}") {
			return hash, nil
		}
		if bestHash == "" {
			bestHash = hash
		}
	}

	if bestHash == "" {
		return "", fmt.Errorf("no matching ref %q in ls-remote output", ref)
	}
	return bestHash, nil
}
