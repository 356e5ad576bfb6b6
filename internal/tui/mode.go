package tui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// DetectMode picks an OutputMode for the running process: jsonFlag and
// quietFlag (explicit CLI flags) take precedence; otherwise a non-TTY
// stdout (piped or redirected) falls back to quiet, since rendering a
// progress bar into a log file or pipe is meaningless.
func DetectMode(jsonFlag, quietFlag bool) OutputMode {
	switch {
	case jsonFlag:
		return OutputJSON
	case quietFlag:
		return OutputQuiet
	case !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()):
		return OutputQuiet
	default:
		return OutputNormal
	}
}

// NewCallback returns the Callback for mode: a TUICallback for
// OutputNormal, a NonInteractiveCallback otherwise.
func NewCallback(mode OutputMode) Callback {
	if mode == OutputNormal {
		return NewTUICallback()
	}
	return NewNonInteractiveCallback(mode)
}
