package camera

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir replays image files from a directory in name order. It is used for
// offline runs and tests; Read returns ErrReadFailed at end of stream,
// mirroring a disconnected device.
type Dir struct {
	path   string
	frames []string
	next   int
	opened bool
}

// NewDir returns a Dir source over the given directory.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Open scans the directory for PNG and JPEG frames.
func (d *Dir) Open() error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.path, err)
	}

	d.frames = d.frames[:0]
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			d.frames = append(d.frames, filepath.Join(d.path, e.Name()))
		}
	}
	sort.Strings(d.frames)

	if len(d.frames) == 0 {
		return fmt.Errorf("%w: %s: no frames", ErrDeviceUnavailable, d.path)
	}

	d.next = 0
	d.opened = true
	return nil
}

// Read decodes the next frame as grayscale.
func (d *Dir) Read() (*image.Gray, error) {
	if !d.opened {
		return nil, ErrReadFailed
	}
	if d.next >= len(d.frames) {
		return nil, fmt.Errorf("%w: end of stream", ErrReadFailed)
	}

	f, err := os.Open(d.frames[d.next])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, d.frames[d.next], err)
	}
	d.next++

	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}

// Close resets the source. Idempotent.
func (d *Dir) Close() error {
	d.opened = false
	return nil
}
