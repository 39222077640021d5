package detect

import (
	"bytes"
	"image"
	"testing"
)

func TestCrop(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Pix[y*src.Stride+x] = uint8(y*8 + x)
		}
	}

	out := crop(src, image.Rect(2, 3, 6, 7))

	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 4 {
		t.Fatalf("crop size = %dx%d, want 4x4", out.Bounds().Dx(), out.Bounds().Dy())
	}
	if out.Pix[0] != 3*8+2 {
		t.Errorf("top-left pixel = %d, want %d", out.Pix[0], 3*8+2)
	}
	if got := out.Pix[3*out.Stride+3]; got != 6*8+5 {
		t.Errorf("bottom-right pixel = %d, want %d", got, 6*8+5)
	}

	// The crop owns its pixels; mutating the frame must not leak through.
	before := append([]uint8(nil), out.Pix...)
	for i := range src.Pix {
		src.Pix[i] = 0
	}
	if !bytes.Equal(before, out.Pix) {
		t.Error("crop aliases the source frame")
	}
}

func TestCropSubImageOrigin(t *testing.T) {
	// A source whose bounds do not start at the origin still crops by
	// absolute coordinates.
	base := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range base.Pix {
		base.Pix[i] = uint8(i)
	}
	sub := base.SubImage(image.Rect(2, 2, 10, 10)).(*image.Gray)

	out := crop(sub, image.Rect(4, 4, 6, 6))
	if out.Pix[0] != base.Pix[4*base.Stride+4] {
		t.Errorf("pixel = %d, want %d", out.Pix[0], base.Pix[4*base.Stride+4])
	}
}

func TestArea(t *testing.T) {
	if got := area(image.Rect(0, 0, 10, 20)); got != 200 {
		t.Errorf("area = %d, want 200", got)
	}
	if got := area(image.Rectangle{}); got != 0 {
		t.Errorf("empty area = %d, want 0", got)
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.MinSize <= 0 || p.MaxSize <= p.MinSize {
		t.Errorf("size range %d..%d is not usable", p.MinSize, p.MaxSize)
	}
	if p.ScaleFactor <= 1.0 {
		t.Errorf("scale factor %f must be above 1", p.ScaleFactor)
	}
	if p.QualityThreshold <= 0 {
		t.Errorf("quality threshold %f must be positive", p.QualityThreshold)
	}
}

func TestNewLocatorMissingCascade(t *testing.T) {
	if _, err := NewLocator("/nonexistent/cascade", DefaultParams()); err == nil {
		t.Error("expected error for missing cascade file")
	}
}
