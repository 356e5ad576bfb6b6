// Package gitobj is a thin shell-out adapter over the git CLI. It exposes
// the subset of content-addressed object-store primitives (blobs, trees,
// commits, refs) and the compare-and-swap push semantics that the ledger
// packages are built on.
package gitobj

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Git represents a git repository at a specific directory.
type Git struct {
	Dir    string // working directory
	Logger zerolog.Logger
}

// New creates a Git instance for the given directory with a no-op logger.
func New(dir string) *Git {
	return &Git{Dir: dir, Logger: zerolog.Nop()}
}

// WithLogger returns a shallow copy of g that logs through logger.
func (g *Git) WithLogger(logger zerolog.Logger) *Git {
	clone := *g
	clone.Logger = logger
	return &clone
}

// Run executes a git command and returns trimmed stdout.
func (g *Git) Run(ctx context.Context, args ...string) (string, error) {
	g.Logger.Trace().Str("dir", g.Dir).Strs("args", args).Msg("git")
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", &Error{Args: args, Stderr: string(exitErr.Stderr), Err: err}
		}
		return "", err
	}
	return strings.TrimRight(string(out), " \t\r\n"), nil
}

// RunLines executes a git command and returns stdout split by newlines.
func (g *Git) RunLines(ctx context.Context, args ...string) ([]string, error) {
	out, err := g.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// RunSilent executes a git command, discarding output on success. On
// error, distinguishes a nonzero exit (wrapped as *Error, with combined
// stdout+stderr attached) from a failure to even run the command (git
// missing, context cancelled) — the latter is returned unwrapped so
// callers like PushCAS can tell "git ran and exited nonzero" apart from
// "git could not be run at all".
func (g *Git) RunSilent(ctx context.Context, args ...string) error {
	g.Logger.Trace().Str("dir", g.Dir).Strs("args", args).Msg("git")
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &Error{Args: args, Stderr: string(output), Err: err}
		}
		return err
	}
	return nil
}

// RunExitCode runs a git command and returns its exit code directly,
// without treating a nonzero exit as an error. Used for commands like
// `merge-base --is-ancestor` whose exit code IS the answer.
func (g *Git) RunExitCode(ctx context.Context, args ...string) (int, error) {
	g.Logger.Trace().Str("dir", g.Dir).Strs("args", args).Msg("git")
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	cmd.Env = capturedEnvironment().buildChildEnv()
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// IsInstalled returns true if the git binary is available on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
