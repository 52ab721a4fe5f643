//go:build !windows

package host

import (
	"errors"

	"github.com/cado-security/varc-go/internal/errs"
)

// unsupportedScreenshotter covers Linux and macOS: capturing every attached
// monitor needs an X11/Wayland or Core Graphics binding, neither of which
// any example repo in the pack carries, so there is no grounded
// third-party path to wire here. The collector treats a Capture failure as
// non-fatal (--no-screenshot behavior), per spec.md §7.
type unsupportedScreenshotter struct{}

func NewScreenshotter() Screenshotter { return unsupportedScreenshotter{} }

var errUnsupportedPlatform = errors.New("screenshot capture is not implemented on this platform")

func (unsupportedScreenshotter) Capture() ([]byte, error) {
	return nil, errs.New(errs.Unreadable, errUnsupportedPlatform)
}
