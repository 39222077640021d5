// Package sample turns face crops into canonical training samples and
// manages the on-disk sample corpus.
package sample

import (
	"image"

	"golang.org/x/image/draw"
)

// Size is the canonical sample edge length in pixels.
const Size = 200

// Normalize converts a face crop into the canonical representation: resize
// to Size x Size, then histogram equalization. It is a deterministic pure
// function and the single code path used at both enrollment and
// recognition time; any divergence between the two would break matching.
func Normalize(crop *image.Gray) *image.Gray {
	resized := image.NewGray(image.Rect(0, 0, Size, Size))
	draw.ApproxBiLinear.Scale(resized, resized.Bounds(), crop, crop.Bounds(), draw.Src, nil)
	return equalize(resized)
}

// equalize applies histogram equalization in place and returns img.
func equalize(img *image.Gray) *image.Gray {
	var hist [256]int
	for _, p := range img.Pix {
		hist[p]++
	}

	total := len(img.Pix)
	if total == 0 {
		return img
	}

	// Standard CDF remap, anchored at the first non-empty bin.
	var cdf [256]int
	sum := 0
	for i, h := range hist {
		sum += h
		cdf[i] = sum
	}
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}

	denom := total - cdfMin
	if denom <= 0 {
		return img
	}

	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8((cdf[i] - cdfMin) * 255 / denom)
	}
	for i, p := range img.Pix {
		img.Pix[i] = lut[p]
	}
	return img
}
