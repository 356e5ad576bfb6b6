package gitobj

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TreeEntry is one named entry of a tree object: a file mode, an object
// hash, and a path-component name.
type TreeEntry struct {
	Mode string // git file mode, e.g. "100644" for a regular blob
	Hash string // object hash of the blob/tree this entry points to
	Name string // entry name (a single path component)
}

// BlobMode is the file mode for a plain (non-executable) blob entry.
const BlobMode = "100644"

// WriteBlob stores data as a blob object and returns its hash.
func (g *Git) WriteBlob(ctx context.Context, data []byte) (string, error) {
	return g.hashObjectStdin(ctx, data)
}

// ReadBlob reads back the content of a blob by hash.
func (g *Git) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	out, err := g.catFile(ctx, hash)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteTree builds a tree object from entries (already sorted or not — git
// mktree requires entries sorted by name, so WriteTree sorts a copy) and
// returns its hash. An empty entries slice produces the canonical empty
// tree.
func (g *Git) WriteTree(ctx context.Context, entries []TreeEntry) (string, error) {
	sorted := append([]TreeEntry(nil), entries...)
	sortTreeEntries(sorted)

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s blob %s\t%s\n", e.Mode, e.Hash, e.Name)
	}

	g.Logger.Trace().Int("entries", len(sorted)).Msg("git mktree")
	cmd := exec.CommandContext(ctx, "git", "mktree")
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	cmd.Stdin = bytes.NewReader(buf.Bytes())
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", &Error{Args: []string{"mktree"}, Stderr: string(exitErr.Stderr), Err: err}
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadTree lists the entries of a tree object.
func (g *Git) ReadTree(ctx context.Context, hash string) ([]TreeEntry, error) {
	lines, err := g.RunLines(ctx, "ls-tree", hash)
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, len(lines))
	for _, line := range lines {
		// format: "<mode> blob <hash>\t<name>"
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		fields := strings.Fields(line[:tab])
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, TreeEntry{Mode: fields[0], Hash: fields[2], Name: line[tab+1:]})
	}
	return entries, nil
}

// CommitTree creates a commit object pointing at tree with the given
// parents (zero, for a root commit, or one) and returns its hash. The
// commit is not attached to any ref.
func (g *Git) CommitTree(ctx context.Context, tree string, parents []string, message string) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)
	return g.Run(ctx, args...)
}

// CommitParents returns the parent hashes of a commit, in order.
func (g *Git) CommitParents(ctx context.Context, commit string) ([]string, error) {
	out, err := g.Run(ctx, "log", "-1", "--format=%P", commit)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Fields(out), nil
}

// CommitTreeHash returns the tree hash referenced by a commit.
func (g *Git) CommitTreeHash(ctx context.Context, commit string) (string, error) {
	return g.Run(ctx, "rev-parse", commit+"^{tree}")
}

func (g *Git) hashObjectStdin(ctx context.Context, data []byte) (string, error) {
	g.Logger.Trace().Int("bytes", len(data)).Msg("git hash-object -w --stdin")
	cmd := exec.CommandContext(ctx, "git", "hash-object", "-w", "--stdin")
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", &Error{Args: []string{"hash-object"}, Stderr: string(exitErr.Stderr), Err: err}
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *Git) catFile(ctx context.Context, hash string) ([]byte, error) {
	g.Logger.Trace().Str("hash", hash).Msg("git cat-file blob")
	cmd := exec.CommandContext(ctx, "git", "cat-file", "blob", hash)
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, &Error{Args: []string{"cat-file"}, Stderr: string(exitErr.Stderr), Err: err}
		}
		return nil, err
	}
	return out, nil
}

func sortTreeEntries(entries []TreeEntry) {
	// Insertion sort: the number of entries in a blob-ledger tree is tiny
	// (spec caps it at one), so this never needs to scale.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Name < entries[j-1].Name; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
