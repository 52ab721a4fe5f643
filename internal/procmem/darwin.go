//go:build darwin

package procmem

import (
	"fmt"

	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
)

// darwinReader has no region enumeration or reading capability: per
// spec.md §9, macOS implements inventory only, matching
// original_source/varc_core/systems/osx.py (a bare BaseSystem subclass with
// no memory-reading overrides). ProcessDumper treats every call here as an
// empty region list, which causes it to skip every PID without touching the
// archive.
type darwinReader struct {
	pid int
}

// Open returns a Reader stub for pid on macOS.
func Open(pid int) (Reader, error) {
	return &darwinReader{pid: pid}, nil
}

func (r *darwinReader) Close() error { return nil }

func (r *darwinReader) Regions() ([]model.Region, error) {
	return nil, nil
}

func (r *darwinReader) Read(addr uint64, length uint64) ([]byte, error) {
	return nil, errs.WithPID(errs.Unreadable, r.pid, fmt.Errorf("memory reading is not supported on macOS"))
}
