package camera

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/blackjack/webcam"

	"github.com/facegate/facegate/pkg/logging"
)

// fourcc for packed YUYV 4:2:2, the format virtually every UVC webcam offers.
const pixelFormatYUYV = webcam.PixelFormat(0x56595559)

// Device captures frames from a V4L2 camera device.
type Device struct {
	path   string
	width  int
	height int

	mu     sync.Mutex
	cam    *webcam.Webcam
	opened bool
}

// NewDevice returns a Device for the given V4L2 device path.
func NewDevice(path string, width, height int) *Device {
	return &Device{path: path, width: width, height: height}
}

// Open acquires the camera and starts streaming.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return nil
	}

	cam, err := webcam.Open(d.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.path, err)
	}

	format := pixelFormatYUYV
	if _, ok := cam.GetSupportedFormats()[format]; !ok {
		// Fall back to whatever format mentions YUYV in its description.
		found := false
		for f, desc := range cam.GetSupportedFormats() {
			if strings.Contains(strings.ToUpper(desc), "YUYV") {
				format = f
				found = true
				break
			}
		}
		if !found {
			_ = cam.Close()
			return fmt.Errorf("%w: %s: no YUYV format", ErrDeviceUnavailable, d.path)
		}
	}

	f, w, h, err := cam.SetImageFormat(format, uint32(d.width), uint32(d.height))
	if err != nil {
		_ = cam.Close()
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.path, err)
	}
	if f != format {
		_ = cam.Close()
		return fmt.Errorf("%w: %s: format rejected", ErrDeviceUnavailable, d.path)
	}
	d.width = int(w)
	d.height = int(h)

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.path, err)
	}

	d.cam = cam
	d.opened = true
	logging.Component("camera").Infof("opened %s at %dx%d", d.path, d.width, d.height)
	return nil
}

// Read blocks until the next frame is available and returns it as grayscale.
func (d *Device) Read() (*image.Gray, error) {
	d.mu.Lock()
	cam := d.cam
	opened := d.opened
	d.mu.Unlock()

	if !opened {
		return nil, ErrReadFailed
	}

	for {
		err := cam.WaitForFrame(5)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
		}

		buf, err := cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
		}
		if len(buf) == 0 {
			continue
		}
		return grayFromYUYV(buf, d.width, d.height), nil
	}
}

// Close releases the camera. Safe to call repeatedly and after a failed Open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil
	}
	d.opened = false

	cam := d.cam
	d.cam = nil
	if err := cam.StopStreaming(); err != nil {
		logging.Component("camera").Warnf("stop streaming: %v", err)
	}
	return cam.Close()
}
