package core

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"
)

const (
	// Transparent padding baked into the puzzle piece image.
	slicePaddingOffset = 41.0

	edgeWeakThreshold   = 100.0
	edgeStrongThreshold = 200.0
)

type grayImage struct {
	w, h   int
	pixels []float64
}

func (g *grayImage) at(x, y int) float64 {
	return g.pixels[y*g.w+x]
}

func (g *grayImage) set(x, y int, v float64) {
	g.pixels[y*g.w+x] = v
}

func decodeGray(data []byte) (*grayImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}

	bounds := img.Bounds()
	out := &grayImage{
		w:      bounds.Dx(),
		h:      bounds.Dy(),
		pixels: make([]float64, bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out.set(x, y, lum)
		}
	}
	return out, nil
}

func gaussianBlur(src *grayImage) *grayImage {
	kernel := [3][3]float64{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	}
	out := &grayImage{w: src.w, h: src.h, pixels: make([]float64, len(src.pixels))}
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			var sum, weight float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px, py := x+kx, y+ky
					if px < 0 || py < 0 || px >= src.w || py >= src.h {
						continue
					}
					k := kernel[ky+1][kx+1]
					sum += src.at(px, py) * k
					weight += k
				}
			}
			out.set(x, y, sum/weight)
		}
	}
	return out
}

func sobel(src *grayImage) *grayImage {
	out := &grayImage{w: src.w, h: src.h, pixels: make([]float64, len(src.pixels))}
	for y := 1; y < src.h-1; y++ {
		for x := 1; x < src.w-1; x++ {
			gx := -src.at(x-1, y-1) + src.at(x+1, y-1) +
				-2*src.at(x-1, y) + 2*src.at(x+1, y) +
				-src.at(x-1, y+1) + src.at(x+1, y+1)
			gy := -src.at(x-1, y-1) - 2*src.at(x, y-1) - src.at(x+1, y-1) +
				src.at(x-1, y+1) + 2*src.at(x, y+1) + src.at(x+1, y+1)
			out.set(x, y, math.Hypot(gx, gy))
		}
	}
	return out
}

// edgeMap keeps strong gradients plus any weak ones connected to them,
// a single hysteresis pass over the sobel magnitudes.
func edgeMap(grad *grayImage) *grayImage {
	out := &grayImage{w: grad.w, h: grad.h, pixels: make([]float64, len(grad.pixels))}

	var stack [][2]int
	for y := 0; y < grad.h; y++ {
		for x := 0; x < grad.w; x++ {
			if grad.at(x, y) >= edgeStrongThreshold {
				out.set(x, y, 1)
				stack = append(stack, [2]int{x, y})
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, y := p[0]+dx, p[1]+dy
				if x < 0 || y < 0 || x >= grad.w || y >= grad.h {
					continue
				}
				if out.at(x, y) == 0 && grad.at(x, y) >= edgeWeakThreshold {
					out.set(x, y, 1)
					stack = append(stack, [2]int{x, y})
				}
			}
		}
	}
	return out
}

// SlideSolver locates the puzzle-piece notch in the background image by
// matching edge maps.
type SlideSolver struct {
	bg    *grayImage
	piece *grayImage
}

func NewSlideSolver(bgData, pieceData []byte) (*SlideSolver, error) {
	bg, err := decodeGray(bgData)
	if err != nil {
		return nil, fmt.Errorf("bad background image: %v", err)
	}
	piece, err := decodeGray(pieceData)
	if err != nil {
		return nil, fmt.Errorf("bad piece image: %v", err)
	}
	if piece.w > bg.w || piece.h > bg.h {
		return nil, fmt.Errorf("piece image larger than background")
	}
	return &SlideSolver{bg: bg, piece: piece}, nil
}

// FindPosition returns the horizontal offset to drag the piece. The match
// runs normalized cross-correlation over the two edge maps and subtracts
// the piece's transparent padding; a sub-pixel jitter keeps repeated
// submissions from being byte-identical.
func (s *SlideSolver) FindPosition() float64 {
	bgEdges := edgeMap(sobel(gaussianBlur(s.bg)))
	pieceEdges := edgeMap(sobel(gaussianBlur(s.piece)))

	var pieceSum float64
	for _, v := range pieceEdges.pixels {
		pieceSum += v * v
	}
	pieceNorm := math.Sqrt(pieceSum)
	if pieceNorm == 0 {
		return slicePaddingOffset
	}

	bestScore := -1.0
	bestX := 0
	for oy := 0; oy <= bgEdges.h-pieceEdges.h; oy++ {
		for ox := 0; ox <= bgEdges.w-pieceEdges.w; ox++ {
			var dot, winSum float64
			for y := 0; y < pieceEdges.h; y++ {
				for x := 0; x < pieceEdges.w; x++ {
					bv := bgEdges.at(ox+x, oy+y)
					dot += bv * pieceEdges.at(x, y)
					winSum += bv * bv
				}
			}
			if winSum == 0 {
				continue
			}
			score := dot / (math.Sqrt(winSum) * pieceNorm)
			if score > bestScore {
				bestScore = score
				bestX = ox
			}
		}
	}

	center := float64(bestX) + float64(pieceEdges.w)/2
	return center - slicePaddingOffset + rand.Float64()*0.5
}
