// Package camera provides frame sources for the recognition pipeline.
// A Source exclusively owns its device handle and yields grayscale frames.
package camera

import (
	"errors"
	"image"
)

// ErrDeviceUnavailable is returned when the camera device cannot be opened.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// ErrReadFailed is returned when a frame cannot be read (end of stream,
// device disconnect).
var ErrReadFailed = errors.New("failed to read frame")

// ErrBusy is returned when the camera is already held for another purpose.
var ErrBusy = errors.New("camera busy")

// Source is a sequence of grayscale frames from a camera or a recording.
// Close is idempotent and safe to call after a failed Open.
type Source interface {
	Open() error
	Read() (*image.Gray, error)
	Close() error
}

// grayFromYUYV extracts the luma plane of a packed YUYV 4:2:2 buffer.
func grayFromYUYV(buf []byte, width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	n := width * height
	if len(buf) < 2*n {
		n = len(buf) / 2
	}
	for i := 0; i < n; i++ {
		img.Pix[i] = buf[2*i]
	}
	return img
}
