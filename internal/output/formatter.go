package output

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// Verbosity determines output detail
type Verbosity int

const (
	VerbosityQuiet    Verbosity = iota // One-line summary (pre-commit hooks)
	VerbosityStandard                  // Human-readable report
	VerbosityJSON                      // Machine-readable JSON
)

// DefaultVerbosity returns the appropriate default based on environment.
func DefaultVerbosity() Verbosity {
	// Pre-commit hook context (GIT_AUTHOR_DATE set by git)
	if os.Getenv("GIT_AUTHOR_DATE") != "" {
		return VerbosityQuiet
	}

	// Tool-to-tool context (explicit, or stdout is a pipe)
	if os.Getenv("GITINTEL_JSON") == "1" {
		return VerbosityJSON
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return VerbosityJSON
	}

	return VerbosityStandard
}

// WriteJSON renders any result as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
