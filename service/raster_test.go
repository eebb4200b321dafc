package service

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// fillDisk renders a disk with a two-pixel soft edge so the gradient
// direction at the rim is accurately radial.
func fillDisk(img *image.Gray, cx, cy, r int) {
	for y := cy - r - 2; y <= cy+r+2; y++ {
		for x := cx - r - 2; x <= cx+r+2; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			switch {
			case d <= float64(r)-1:
				img.SetGray(x, y, color.Gray{Y: 255})
			case d < float64(r)+1:
				v := 255 * (float64(r) + 1 - d) / 2
				img.SetGray(x, y, color.Gray{Y: uint8(v)})
			}
		}
	}
}

func TestThresholdZeroOrigin(t *testing.T) {
	// Source with a non-zero origin; the binary output must be rebased so
	// the flood fill label buffer indexes from (0,0).
	src := image.NewGray(image.Rect(10, 10, 20, 20))
	src.SetGray(12, 13, color.Gray{Y: 200})

	bin := threshold(src, contourThreshold, false)
	if bin.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("bounds = %v, want zero-origin 10x10", bin.Bounds())
	}
	if bin.GrayAt(2, 3).Y != 255 {
		t.Errorf("bright pixel not carried over at rebased position")
	}
	if bin.GrayAt(0, 0).Y != 0 {
		t.Errorf("dark pixel became bright")
	}

	inv := threshold(src, contourThreshold, true)
	if inv.GrayAt(2, 3).Y != 0 || inv.GrayAt(0, 0).Y != 255 {
		t.Errorf("inverted threshold did not flip pixels")
	}
}

func TestFindContoursSquare(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 100, 100))
	fillRect(bin, image.Rect(30, 30, 60, 60), 255)

	contours := findContours(bin)
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want 1", len(contours))
	}
	if got, want := contours[0].BBox, image.Rect(30, 30, 60, 60); got != want {
		t.Errorf("bbox = %v, want %v", got, want)
	}

	approx := approxPolygon(contours[0].Boundary, 0.01)
	if len(approx) != 4 {
		t.Errorf("approximated square has %d vertices, want 4", len(approx))
	}
}

func TestFindContoursSkipsNoise(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 50, 50))
	// Three isolated pixels, each a component smaller than four pixels.
	bin.SetGray(5, 5, color.Gray{Y: 255})
	bin.SetGray(20, 20, color.Gray{Y: 255})
	bin.SetGray(40, 40, color.Gray{Y: 255})

	if contours := findContours(bin); len(contours) != 0 {
		t.Errorf("got %d contours from noise, want 0", len(contours))
	}
}

func TestCountBlobs(t *testing.T) {
	roi := image.NewGray(image.Rect(0, 0, 60, 60))
	fillRect(roi, image.Rect(10, 10, 13, 13), 255)
	fillRect(roi, image.Rect(30, 10, 33, 13), 255)
	fillRect(roi, image.Rect(20, 40, 23, 43), 255)

	if got := countBlobs(roi); got != 3 {
		t.Errorf("countBlobs = %d, want 3", got)
	}
}

func TestHoughCirclesFindsDisk(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 120, 120))
	fillDisk(gray, 60, 60, 25)

	circles := houghCircles(gray)
	if len(circles) == 0 {
		t.Fatal("no circles found")
	}
	c := circles[0]
	if math.Hypot(float64(c.X-60), float64(c.Y-60)) > 3 {
		t.Errorf("center = (%d,%d), want near (60,60)", c.X, c.Y)
	}
	if c.R < 22 || c.R > 28 {
		t.Errorf("radius = %d, want near 25", c.R)
	}
}

func TestHoughCirclesIgnoresSquare(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 120, 120))
	fillRect(gray, image.Rect(40, 40, 80, 80), 255)

	if circles := houghCircles(gray); len(circles) != 0 {
		t.Errorf("square produced %d circles, want 0", len(circles))
	}
}
