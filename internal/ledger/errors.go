package ledger

import "errors"

// ErrRace means a push was rejected because the remote tip no longer
// matched the expected parent. Push returns it. UpdateOnceWith reports it
// as ok == false with a nil error, and UpdateWith retries the CAS loop, so
// callers of those two never see it.
var ErrRace = errors.New("ledger: push raced, remote tip moved")

// ErrHistoryDivergence means the local tracking ref cannot fast-forward
// from the current local branch ref: some third party rewrote remote
// history, which this protocol treats as a fatal invariant violation
// rather than something to reconcile.
var ErrHistoryDivergence = errors.New("ledger: tracking ref diverged from local branch ref")

// FormatError reports a malformed blob-ledger tree: more than one entry,
// or an entry name that is not 16 hex characters (either case is accepted
// on decode).
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "ledger: malformed payload tree: " + e.Reason
}
