//go:build windows

package host

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsScreenshotter captures the full virtual screen (all monitors) via
// GDI BitBlt, the same primitive the original's mss dependency wraps.
type WindowsScreenshotter struct{}

func NewScreenshotter() Screenshotter { return WindowsScreenshotter{} }

var (
	modUser32   = windows.NewLazySystemDLL("user32.dll")
	modGdi32    = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC          = modUser32.NewProc("GetDC")
	procReleaseDC      = modUser32.NewProc("ReleaseDC")
	procGetSystemMetrics = modUser32.NewProc("GetSystemMetrics")
	procCreateCompatibleDC  = modGdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = modGdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject    = modGdi32.NewProc("SelectObject")
	procBitBlt          = modGdi32.NewProc("BitBlt")
	procGetDIBits       = modGdi32.NewProc("GetDIBits")
	procDeleteDC        = modGdi32.NewProc("DeleteDC")
	procDeleteObject    = modGdi32.NewProc("DeleteObject")
)

const (
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	srcCopy           = 0x00CC0020
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// Capture grabs the whole virtual desktop as one PNG.
func (WindowsScreenshotter) Capture() ([]byte, error) {
	x, _, _ := procGetSystemMetrics.Call(smXVirtualScreen)
	y, _, _ := procGetSystemMetrics.Call(smYVirtualScreen)
	w, _, _ := procGetSystemMetrics.Call(smCXVirtualScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYVirtualScreen)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("screenshot: could not resolve virtual screen metrics")
	}

	hdcScreen, _, _ := procGetDC.Call(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("screenshot: GetDC failed")
	}
	defer procReleaseDC.Call(0, hdcScreen)

	hdcMem, _, _ := procCreateCompatibleDC.Call(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("screenshot: CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hdcScreen, w, h)
	if hBitmap == 0 {
		return nil, fmt.Errorf("screenshot: CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	old, _, _ := procSelectObject.Call(hdcMem, hBitmap)
	defer procSelectObject.Call(hdcMem, old)

	ok, _, _ := procBitBlt.Call(hdcMem, 0, 0, w, h, hdcScreen, x, y, srcCopy)
	if ok == 0 {
		return nil, fmt.Errorf("screenshot: BitBlt failed")
	}

	hdr := bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(h), // top-down DIB
		Planes:      1,
		BitCount:    32,
		Compression: 0, // BI_RGB
	}
	buf := make([]byte, int(w)*int(h)*4)
	ret, _, _ := procGetDIBits.Call(hdcMem, hBitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&hdr)), 0)
	if ret == 0 {
		return nil, fmt.Errorf("screenshot: GetDIBits failed")
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		for col := 0; col < int(w); col++ {
			i := (row*int(w) + col) * 4
			b, g, r, a := buf[i], buf[i+1], buf[i+2], buf[i+3]
			_ = a
			img.SetRGBA(col, row, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode screenshot png: %w", err)
	}
	return out.Bytes(), nil
}
