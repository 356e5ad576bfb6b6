package gitobj

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ephemeralRefPrefix is the namespace used for staging refs created by a
// ledger push attempt. Only this process's own ref should ever be deleted
// under this path during normal operation, but a crash between creating
// the commit and deleting the ref can leak one — see GCEphemeralRefs.
const ephemeralRefPrefix = "refs/tmp/"

// NewEphemeralRefName returns a fresh, collision-resistant local ref name
// under refs/tmp/ to stage a commit before attempting a CAS push.
func NewEphemeralRefName() string {
	return ephemeralRefPrefix + uuid.NewString()
}

// GCEphemeralRefs deletes every ref under refs/tmp/, recovering from the
// documented crash window where a process dies between committing and
// deleting its ephemeral ref. Safe to run on startup: a live ledger never
// depends on an ephemeral ref surviving past the end of a single push
// attempt.
func (g *Git) GCEphemeralRefs(ctx context.Context) (int, error) {
	refs, err := g.ForEachRef(ctx, ephemeralRefPrefix)
	if err != nil {
		return 0, fmt.Errorf("list ephemeral refs: %w", err)
	}
	for _, r := range refs {
		if err := g.DeleteRef(ctx, r.Name); err != nil {
			return 0, fmt.Errorf("delete ephemeral ref %s: %w", r.Name, err)
		}
	}
	return len(refs), nil
}
