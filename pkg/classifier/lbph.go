package classifier

import (
	"image"
	"math"
)

// LBPH parameters. 3x3 local binary patterns pooled into a grid of
// per-cell histograms; a probe is matched to the nearest training
// histogram by chi-square distance.
const (
	gridX = 8
	gridY = 8
	bins  = 256
)

// trainedSample is one training histogram with its label.
type trainedSample struct {
	Label int
	Hist  []float32
}

// model is the trained LBPH state: every training sample's spatial
// histogram. Prediction is nearest neighbor, so adding samples for one
// label never removes discriminative power learned for the others.
type model struct {
	GridX   int
	GridY   int
	Samples []trainedSample
}

// spatialHistogram computes the LBPH feature of a normalized sample: the
// LBP code image pooled into gridX x gridY cell histograms, each cell
// normalized to sum 1, concatenated.
func spatialHistogram(img *image.Gray) []float32 {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	codes := lbpCodes(img, w, h)

	hist := make([]float32, gridX*gridY*bins)
	cellW := w / gridX
	cellH := h / gridY
	if cellW == 0 || cellH == 0 {
		return hist
	}

	for cy := 0; cy < gridY; cy++ {
		for cx := 0; cx < gridX; cx++ {
			cell := hist[(cy*gridX+cx)*bins : (cy*gridX+cx+1)*bins]
			count := 0
			for y := cy * cellH; y < (cy+1)*cellH && y < h; y++ {
				for x := cx * cellW; x < (cx+1)*cellW && x < w; x++ {
					cell[codes[y*w+x]]++
					count++
				}
			}
			if count > 0 {
				inv := 1.0 / float32(count)
				for i := range cell {
					cell[i] *= inv
				}
			}
		}
	}
	return hist
}

// lbpCodes computes the 8-neighbor local binary pattern code of every
// pixel. Border pixels compare against whatever neighbors exist, treating
// out-of-bounds neighbors as darker.
func lbpCodes(img *image.Gray, w, h int) []uint8 {
	codes := make([]uint8, w*h)

	// Clockwise from top-left.
	offsets := [8][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{1, 0},
		{1, 1}, {0, 1}, {-1, 1},
		{-1, 0},
	}

	at := func(x, y int) uint8 {
		return img.Pix[y*img.Stride+x]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := at(x, y)
			var code uint8
			for i, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if at(nx, ny) >= center {
					code |= 1 << uint(i)
				}
			}
			codes[y*w+x] = code
		}
	}
	return codes
}

// chiSquare is the histogram distance used for matching. Identical
// histograms score 0; there is no fixed upper bound.
func chiSquare(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s := float64(a[i]) + float64(b[i])
		if s > 0 {
			sum += d * d / s
		}
	}
	return sum
}

// predict returns the label of the nearest training histogram and the
// distance to it.
func (m *model) predict(hist []float32) (int, float64) {
	bestLabel := 0
	bestDist := math.MaxFloat64
	for i := range m.Samples {
		if d := chiSquare(hist, m.Samples[i].Hist); d < bestDist {
			bestDist = d
			bestLabel = m.Samples[i].Label
		}
	}
	return bestLabel, bestDist
}
