package core

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func solidRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func TestSlideSolverFindPosition(t *testing.T) {
	// Notch at x 100..140 in the background, piece square at 10..50
	bg := image.NewGray(image.Rect(0, 0, 260, 160))
	solidRect(bg, 0, 0, 260, 160, 255)
	solidRect(bg, 100, 60, 140, 100, 0)

	piece := image.NewGray(image.Rect(0, 0, 60, 60))
	solidRect(piece, 0, 0, 60, 60, 255)
	solidRect(piece, 10, 10, 50, 50, 0)

	solver, err := NewSlideSolver(encodePNG(t, bg), encodePNG(t, piece))
	if err != nil {
		t.Fatalf("NewSlideSolver failed: %v", err)
	}

	got := solver.FindPosition()

	// Best alignment puts the piece at x=90, center 120, minus the padding
	want := 120.0 - slicePaddingOffset
	if math.Abs(got-want) > 5 {
		t.Errorf("FindPosition = %f, want about %f", got, want)
	}
}

func TestNewSlideSolverBadInput(t *testing.T) {
	if _, err := NewSlideSolver([]byte("not an image"), []byte("nope")); err == nil {
		t.Fatal("expected decode error")
	}

	big := image.NewGray(image.Rect(0, 0, 100, 100))
	small := image.NewGray(image.Rect(0, 0, 10, 10))
	if _, err := NewSlideSolver(encodePNG(t, small), encodePNG(t, big)); err == nil {
		t.Fatal("expected error when the piece exceeds the background")
	}
}
