package core

import (
	"image"
	"math"
	"testing"
)

func TestFindIconPositions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 200))
	solidRect(img, 0, 0, 300, 200, 255)

	// Three icon-sized blobs, left to right
	centers := [][2]float64{{50, 100}, {150, 100}, {250, 100}}
	for _, c := range centers {
		x, y := int(c[0]), int(c[1])
		solidRect(img, x-15, y-15, x+15, y+15, 0)
	}

	positions, err := FindIconPositions(encodePNG(t, img), 3)
	if err != nil {
		t.Fatalf("FindIconPositions failed: %v", err)
	}
	if len(positions) != 3 {
		t.Fatalf("positions = %d, want 3", len(positions))
	}

	for i, pos := range positions {
		wantX := centers[i][0] * iconScaleX
		wantY := centers[i][1] * iconScaleY
		if math.Abs(pos[0]-wantX) > 2 || math.Abs(pos[1]-wantY) > 2 {
			t.Errorf("position %d = %v, want about [%f %f]", i, pos, wantX, wantY)
		}
	}
}

func TestFindIconPositionsFallback(t *testing.T) {
	// Blank image, no detectable icons
	img := image.NewGray(image.Rect(0, 0, 300, 200))
	solidRect(img, 0, 0, 300, 200, 255)

	positions, err := FindIconPositions(encodePNG(t, img), 2)
	if err != nil {
		t.Fatalf("FindIconPositions failed: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(positions))
	}
	for i, pos := range positions {
		wantX := (50 + float64(i)*80) * iconScaleX
		if math.Abs(pos[0]-wantX) > 0.001 {
			t.Errorf("fallback position %d = %v, want x %f", i, pos, wantX)
		}
	}
}

func TestOtsuThresholdSeparatesClasses(t *testing.T) {
	img := &grayImage{w: 4, h: 2, pixels: []float64{10, 10, 10, 10, 240, 240, 240, 240}}
	threshold := otsuThreshold(img)
	if threshold < 10 || threshold >= 240 {
		t.Errorf("threshold = %f, want a split between the two classes", threshold)
	}
}
