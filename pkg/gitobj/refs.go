package gitobj

import (
	"context"
	"errors"
)

// RefInfo represents a reference name and its target hash.
type RefInfo struct {
	Name string // full ref name (e.g., "refs/heads/main")
	Hash string // SHA the ref points to
}

// ResolveRef resolves a ref name to its full SHA.
// Returns ErrRefNotFound if the ref does not exist.
func (g *Git) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := g.Run(ctx, "rev-parse", "--verify", ref)
	if err != nil {
		return "", ErrRefNotFound
	}
	return out, nil
}

// UpdateRef creates or updates a ref to point at the given target.
// oldValue, when non-empty, makes the update a compare-and-swap against the
// ref's current value (git update-ref rejects it if the ref has moved).
func (g *Git) UpdateRef(ctx context.Context, refName, target, oldValue string) error {
	args := []string{"update-ref", refName, target}
	if oldValue != "" {
		args = append(args, oldValue)
	}
	return g.RunSilent(ctx, args...)
}

// DeleteRef removes a ref. Missing refs are not an error.
func (g *Git) DeleteRef(ctx context.Context, refName string) error {
	if _, err := g.ResolveRef(ctx, refName); err != nil {
		return nil
	}
	return g.RunSilent(ctx, "update-ref", "-d", refName)
}

// ForEachRef lists refs matching pattern. Returns an empty slice (not nil)
// when no refs match.
func (g *Git) ForEachRef(ctx context.Context, pattern string) ([]RefInfo, error) {
	lines, err := g.RunLines(ctx, "for-each-ref", "--format=%(refname) %(objectname)", pattern)
	if err != nil || len(lines) == 0 {
		return []RefInfo{}, nil
	}

	refs := make([]RefInfo, 0, len(lines))
	for _, line := range lines {
		idx := lastSpace(line)
		if idx < 0 {
			continue
		}
		refs = append(refs, RefInfo{Name: line[:idx], Hash: line[idx+1:]})
	}
	return refs, nil
}

func lastSpace(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' {
			return i
		}
	}
	return -1
}

// IsAncestor reports whether old is a strict or equal ancestor of new,
// i.e. old is reachable by walking new's history.
func (g *Git) IsAncestor(ctx context.Context, old, new string) (bool, error) {
	if old == new {
		return true, nil
	}
	code, err := g.RunExitCode(ctx, "merge-base", "--is-ancestor", old, new)
	if err != nil {
		return false, err
	}
	switch code {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, errors.New("git merge-base --is-ancestor failed")
	}
}

// FastForward updates ref to target iff the ref is currently absent, equal
// to target, or a strict ancestor of target. Returns false (no error) on a
// divergent history — the caller must not overwrite non-fast-forward state.
func (g *Git) FastForward(ctx context.Context, ref, target string) (bool, error) {
	current, err := g.ResolveRef(ctx, ref)
	if err != nil {
		// No local ref yet: any target fast-forwards trivially.
		if updateErr := g.UpdateRef(ctx, ref, target, ""); updateErr != nil {
			return false, updateErr
		}
		return true, nil
	}
	if current == target {
		return true, nil
	}
	ok, err := g.IsAncestor(ctx, current, target)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := g.UpdateRef(ctx, ref, target, current); err != nil {
		return false, err
	}
	return true, nil
}
