package core

import (
	"sort"
)

const (
	// Click coordinates are reported in the widget's coordinate space, a
	// fixed fraction of the rendered image size.
	iconScaleX = 33.0 / 100.0
	iconScaleY = 49.0 / 100.0
)

type iconBox struct {
	minX, minY, maxX, maxY int
}

func (b iconBox) width() int   { return b.maxX - b.minX + 1 }
func (b iconBox) height() int  { return b.maxY - b.minY + 1 }
func (b iconBox) centerX() int { return (b.minX + b.maxX) / 2 }
func (b iconBox) centerY() int { return (b.minY + b.maxY) / 2 }

// otsuThreshold picks the split that maximizes between-class variance over
// the gray histogram. The returned bin is the last one belonging to the
// dark class, so segmentation compares inclusively.
func otsuThreshold(img *grayImage) float64 {
	var hist [256]int
	for _, v := range img.pixels {
		bin := int(v)
		if bin > 255 {
			bin = 255
		}
		hist[bin]++
	}

	total := len(img.pixels)
	var sum float64
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	var sumB, wB float64
	best, threshold := 0.0, 127.0
	for i, count := range hist {
		wB += float64(count)
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(count)
		mB := sumB / wB
		mF := (sum - sumB) / wF
		variance := wB * wF * (mB - mF) * (mB - mF)
		if variance > best {
			best = variance
			threshold = float64(i)
		}
	}
	return threshold
}

// findIconBoxes segments the image into dark connected components and
// keeps the ones shaped like an icon.
func findIconBoxes(img *grayImage) []iconBox {
	threshold := otsuThreshold(img)

	visited := make([]bool, len(img.pixels))
	var boxes []iconBox

	minDim := 20
	maxDim := img.w
	if img.h < maxDim {
		maxDim = img.h
	}
	maxDim /= 2

	for startY := 0; startY < img.h; startY++ {
		for startX := 0; startX < img.w; startX++ {
			idx := startY*img.w + startX
			if visited[idx] || img.at(startX, startY) > threshold {
				continue
			}

			box := iconBox{minX: startX, minY: startY, maxX: startX, maxY: startY}
			area := 0
			queue := [][2]int{{startX, startY}}
			visited[idx] = true

			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				area++

				if p[0] < box.minX {
					box.minX = p[0]
				}
				if p[0] > box.maxX {
					box.maxX = p[0]
				}
				if p[1] < box.minY {
					box.minY = p[1]
				}
				if p[1] > box.maxY {
					box.maxY = p[1]
				}

				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x, y := p[0]+d[0], p[1]+d[1]
					if x < 0 || y < 0 || x >= img.w || y >= img.h {
						continue
					}
					nidx := y*img.w + x
					if !visited[nidx] && img.at(x, y) <= threshold {
						visited[nidx] = true
						queue = append(queue, [2]int{x, y})
					}
				}
			}

			w, h := box.width(), box.height()
			boxArea := w * h
			if w < minDim || h < minDim || w > maxDim || h > maxDim {
				continue
			}
			if boxArea < img.w*img.h/400 || boxArea > img.w*img.h/4 {
				continue
			}
			aspect := float64(w) / float64(h)
			if aspect < 0.3 || aspect > 1.0/0.3 {
				continue
			}
			// Drop hollow frames and stray scanline artifacts
			if area < boxArea/10 {
				continue
			}
			boxes = append(boxes, box)
		}
	}

	sort.Slice(boxes, func(i, j int) bool { return boxes[i].centerX() < boxes[j].centerX() })
	return boxes
}

// FindIconPositions detects icon-sized blobs in the challenge image and
// assigns them to questions left to right. When detection comes up short
// the remaining answers fall back to an evenly spaced guess, the widget
// accepts coarse positions.
func FindIconPositions(imgData []byte, questions int) ([][2]float64, error) {
	img, err := decodeGray(imgData)
	if err != nil {
		return nil, err
	}

	boxes := findIconBoxes(img)

	positions := make([][2]float64, 0, questions)
	for i := 0; i < questions; i++ {
		var x, y float64
		if i < len(boxes) {
			x = float64(boxes[i].centerX())
			y = float64(boxes[i].centerY())
		} else {
			x = 50 + float64(i)*80
			y = 100
		}
		positions = append(positions, [2]float64{x * iconScaleX, y * iconScaleY})
	}
	return positions, nil
}
