// Package detect locates the most prominent face in a grayscale frame.
// It runs a pigo cascade over multiple scales and keeps the candidate with
// the largest area: the face closest to the camera is the one the access
// decision should be about. Multi-face handling is out of scope.
package detect

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/facegate/facegate/pkg/logging"
)

// Params tune the cascade run.
type Params struct {
	MinSize          int
	MaxSize          int
	ShiftFactor      float64
	ScaleFactor      float64
	QualityThreshold float64
}

// DefaultParams returns cascade parameters that work for a near-field
// access-control camera.
func DefaultParams() Params {
	return Params{
		MinSize:          60,
		MaxSize:          480,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		QualityThreshold: 5.0,
	}
}

// Region is a located face: the cropped pixels and where they came from.
type Region struct {
	Crop *image.Gray
	Rect image.Rectangle
}

// Locator finds faces using a pretrained pigo cascade. It is loaded once
// and reused across frames.
type Locator struct {
	classifier *pigo.Pigo
	params     Params
}

// NewLocator loads the binary cascade file and builds a Locator.
func NewLocator(cascadeFile string, params Params) (*Locator, error) {
	data, err := os.ReadFile(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	logging.Component("detect").Debugf("cascade loaded from %s", cascadeFile)
	return &Locator{classifier: classifier, params: params}, nil
}

// Find returns the largest detected face region, or ok=false when the frame
// contains no face. An empty frame is a valid pipeline state, not an error.
func (l *Locator) Find(img *image.Gray) (*Region, bool) {
	bounds := img.Bounds()
	cols := bounds.Dx()
	rows := bounds.Dy()

	maxSize := l.params.MaxSize
	if m := min(cols, rows); maxSize > m {
		maxSize = m
	}

	cParams := pigo.CascadeParams{
		MinSize:     l.params.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: l.params.ShiftFactor,
		ScaleFactor: l.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: img.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    img.Stride,
		},
	}

	dets := l.classifier.RunCascade(cParams, 0.0)
	dets = l.classifier.ClusterDetections(dets, 0.2)

	best := image.Rectangle{}
	found := false
	for _, det := range dets {
		if float64(det.Q) < l.params.QualityThreshold {
			continue
		}
		r := image.Rect(
			det.Col-det.Scale/2,
			det.Row-det.Scale/2,
			det.Col+det.Scale/2,
			det.Row+det.Scale/2,
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		if !found || area(r) > area(best) {
			best = r
			found = true
		}
	}
	if !found {
		return nil, false
	}

	return &Region{Crop: crop(img, best), Rect: best}, true
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// crop copies the region into a fresh tightly-packed image so the caller
// never aliases frame memory.
func crop(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := img.Pix[(r.Min.Y+y-img.Rect.Min.Y)*img.Stride+(r.Min.X-img.Rect.Min.X):]
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], src[:r.Dx()])
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
