// Package errs defines the recoverable and fatal error taxonomy shared
// across the collector. Kinds map directly onto the conditions a caller
// needs to branch on (skip this PID, disable a subsystem, abort the run).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the rest of the system should react to it.
type Kind int

const (
	// Unknown is the zero value; no Error built by this package carries it.
	// KindOf reports it, together with false, for errors that are not an *Error.
	Unknown Kind = iota

	// InvalidSelection means mutually exclusive filter options were both set.
	// Fatal at start.
	InvalidSelection

	// MissingOperatingSystemInfo means the host platform has no region
	// reader/enumerator implementation. Fatal at start.
	MissingOperatingSystemInfo

	// Denied means insufficient privilege to read a specific resource.
	// Per-PID or per-file; recovered.
	Denied

	// Vanished means the target PID or file disappeared mid-collection.
	// Per-PID or per-file; recovered.
	Vanished

	// Unreadable means a specific memory chunk could not be read.
	// The chunk is skipped; the dump continues.
	Unreadable

	// ScanError means the rule engine failed on one PID.
	// That PID's scan is skipped.
	ScanError

	// RuleLoadError means the rule set failed to compile or load.
	// The scan gate is disabled for the run.
	RuleLoadError

	// OutOfMemory means the host ran out of working memory during dumping.
	// Further dumping is abandoned; already-written members are kept.
	OutOfMemory

	// ArchiveError means a write to the archive sink failed. Fatal for the run.
	ArchiveError
)

func (k Kind) String() string {
	switch k {
	case InvalidSelection:
		return "InvalidSelection"
	case MissingOperatingSystemInfo:
		return "MissingOperatingSystemInfo"
	case Denied:
		return "Denied"
	case Vanished:
		return "Vanished"
	case Unreadable:
		return "Unreadable"
	case ScanError:
		return "ScanError"
	case RuleLoadError:
		return "RuleLoadError"
	case OutOfMemory:
		return "OutOfMemory"
	case ArchiveError:
		return "ArchiveError"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind and optional PID/path context.
type Error struct {
	Kind Kind
	PID  int    // 0 if not applicable
	Path string // "" if not applicable
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.PID != 0 && e.Path != "":
		return fmt.Sprintf("%s: pid %d, path %q: %v", e.Kind, e.PID, e.Path, e.Err)
	case e.PID != 0:
		return fmt.Sprintf("%s: pid %d: %v", e.Kind, e.PID, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: path %q: %v", e.Kind, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errs.Sentinel(errs.Denied)) style comparisons match on Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == Kind(k)
}

type kindSentinel Kind

// Sentinel returns a comparable error value for use with errors.Is(err, errs.Sentinel(k)).
func Sentinel(k Kind) error { return kindSentinel(k) }

func (k kindSentinel) Error() string { return Kind(k).String() }

// New builds an *Error of the given kind wrapping cause, with no PID/path context.
func New(k Kind, cause error) *Error {
	return &Error{Kind: k, Err: cause}
}

// WithPID builds an *Error scoped to a PID.
func WithPID(k Kind, pid int, cause error) *Error {
	return &Error{Kind: k, PID: pid, Err: cause}
}

// WithPath builds an *Error scoped to a filesystem path.
func WithPath(k Kind, path string, cause error) *Error {
	return &Error{Kind: k, Path: path, Err: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Unknown, false
}

// Recoverable reports whether an error of this kind should be logged and
// skipped rather than aborting the run.
func (k Kind) Recoverable() bool {
	switch k {
	case InvalidSelection, MissingOperatingSystemInfo, ArchiveError:
		return false
	default:
		return true
	}
}
