//go:build !linux && !windows && !darwin

package procmem

import (
	"fmt"

	"github.com/cado-security/varc-go/internal/errs"
	"github.com/cado-security/varc-go/internal/model"
)

type unsupportedReader struct{ pid int }

// Open fails on any platform without a dedicated implementation, per
// spec.md §7's MissingOperatingSystemInfo.
func Open(pid int) (Reader, error) {
	return nil, errs.New(errs.MissingOperatingSystemInfo, fmt.Errorf("unsupported platform"))
}

func (r *unsupportedReader) Close() error                             { return nil }
func (r *unsupportedReader) Regions() ([]model.Region, error)          { return nil, nil }
func (r *unsupportedReader) Read(addr, length uint64) ([]byte, error) { return nil, nil }
