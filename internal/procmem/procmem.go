// Package procmem enumerates the readable regions of a target process's
// virtual address space and reads bytes out of it, without attaching a
// debugger. Implementations are split per OS behind the Reader interface;
// see linux.go, windows.go, and darwin.go.
package procmem

import "github.com/cado-security/varc-go/internal/model"

// MaxChunk is the default upper bound the dumper applies to a single read
// through a Reader, per spec.md §4.3; a Reader itself reads whatever length
// it is given.
const MaxChunk = 256 * 1024 * 1024

// Reader enumerates regions and reads bytes from one target process. A
// Reader is scoped to a single PID and may be reused across multiple reads
// within one dump (Windows caches a handle this way); callers must call
// Close when done with a PID.
type Reader interface {
	// Regions lists the readable, sorted, non-overlapping regions of the
	// target's address space at the time of the call.
	Regions() ([]model.Region, error)
	// Read returns up to length bytes read from addr. A partial or failed
	// read returns fewer bytes than requested (or zero); it never pads.
	Read(addr uint64, length uint64) ([]byte, error)
	// Close releases any OS handle held for this PID.
	Close() error
}

// Open returns a Reader for pid using the platform-specific implementation.
// Open is implemented per build-tagged file (linux.go, windows.go, darwin.go).
