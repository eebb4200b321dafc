package service

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/prepstack/qbank-be/types"
)

// Raster primitives used by the image extraction branch: grayscale
// conversion, binary thresholding, connected-component contour tracing,
// polygon approximation and a gradient Hough transform for circles.
// Everything operates on image.Gray so intermediate buffers stay cheap.

const (
	// Binarization level for contour detection.
	contourThreshold = 127
	// Pips on a dice face are bright after inversion; blobs are counted
	// above this level inside the candidate box.
	pipThreshold = 200

	// Hough circle search window, in pixels.
	houghMinRadius = 10
	houghMaxRadius = 40
	// Minimum accumulator votes for a circle and minimum distance
	// between accepted centers.
	houghVoteFloor     = 30
	houghMinCenterDist = 20

	// Sobel gradient magnitude below this is not an edge.
	edgeThreshold = 80.0
)

type detectedCircle struct {
	X, Y, R int
}

// grayscale converts any image to 8-bit gray.
func grayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, src, b, xdraw.Src, nil)
	return dst
}

// threshold produces a binary image: pixels strictly above level become
// white when invert is false, pixels at or below level become white when
// invert is true.
func threshold(src *image.Gray, level uint8, invert bool) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.GrayAt(x, y).Y
			on := v > level
			if invert {
				on = !on
			}
			if on {
				dst.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// grayRegion copies a sub-rectangle of src into a fresh zero-origin buffer.
func grayRegion(src *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst
}

// crop copies a rectangle of src into a new image, clamped to bounds.
func crop(src image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(src.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst
}

type rasterContour struct {
	Boundary []image.Point
	BBox     image.Rectangle
}

// findContours labels 4-connected white components of a binary image and
// traces the outer boundary of each one. Components smaller than four
// pixels are noise and skipped.
func findContours(bin *image.Gray) []rasterContour {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	labels := make([]int32, w*h)
	next := int32(1)

	var contours []rasterContour
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.GrayAt(x, y).Y == 0 || labels[y*w+x] != 0 {
				continue
			}
			size, bbox := floodFill(bin, labels, x, y, next)
			next++
			if size < 4 {
				continue
			}
			boundary := traceBoundary(bin, image.Pt(x, y))
			contours = append(contours, rasterContour{Boundary: boundary, BBox: bbox})
		}
	}
	return contours
}

func floodFill(bin *image.Gray, labels []int32, sx, sy int, label int32) (int, image.Rectangle) {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	stack := []image.Point{{X: sx, Y: sy}}
	labels[sy*w+sx] = label
	size := 0
	bbox := image.Rect(sx, sy, sx+1, sy+1)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size++
		bbox = bbox.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
		for _, d := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if bin.GrayAt(nx, ny).Y != 0 && labels[ny*w+nx] == 0 {
				labels[ny*w+nx] = label
				stack = append(stack, image.Pt(nx, ny))
			}
		}
	}
	return size, bbox
}

// traceBoundary walks the outer contour clockwise using Moore neighbor
// tracing, starting from the component's topmost-leftmost pixel.
func traceBoundary(bin *image.Gray, start image.Point) []image.Point {
	dirs := [8]image.Point{
		{1, 0}, {1, 1}, {0, 1}, {-1, 1},
		{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	}
	inside := func(p image.Point) bool {
		if !p.In(bin.Bounds()) {
			return false
		}
		return bin.GrayAt(p.X, p.Y).Y != 0
	}

	boundary := []image.Point{start}
	cur := start
	// Entered the start pixel scanning left to right, so the backtrack
	// direction starts pointing left.
	dir := 4
	for i := 0; ; i++ {
		if i > 4*len(bin.Pix) {
			break
		}
		found := false
		for k := 0; k < 8; k++ {
			d := (dir + 1 + k) % 8
			n := cur.Add(dirs[d])
			if inside(n) {
				cur = n
				dir = (d + 4) % 8
				found = true
				break
			}
		}
		if !found {
			break // isolated pixel
		}
		if cur == start {
			break
		}
		boundary = append(boundary, cur)
	}
	return boundary
}

// approxPolygon simplifies a closed boundary with Douglas-Peucker. Epsilon
// is a fraction of the boundary perimeter, matching the usual contour
// approximation convention.
func approxPolygon(boundary []image.Point, epsilonFrac float64) []image.Point {
	if len(boundary) < 3 {
		return boundary
	}
	perimeter := 0.0
	for i := 1; i < len(boundary); i++ {
		perimeter += pointDist(boundary[i-1], boundary[i])
	}
	perimeter += pointDist(boundary[len(boundary)-1], boundary[0])
	eps := epsilonFrac * perimeter

	// Split the ring at the point farthest from the start so both halves
	// are open polylines.
	far := 0
	farDist := 0.0
	for i, p := range boundary {
		if d := pointDist(boundary[0], p); d > farDist {
			farDist = d
			far = i
		}
	}
	if far == 0 {
		return boundary[:1]
	}
	first := douglasPeucker(boundary[:far+1], eps)
	second := douglasPeucker(append(boundary[far:], boundary[0]), eps)
	// Drop the duplicated split point and closing start point.
	out := append(first, second[1:len(second)-1]...)
	return out
}

func douglasPeucker(pts []image.Point, eps float64) []image.Point {
	if len(pts) < 3 {
		return pts
	}
	maxDist := 0.0
	index := 0
	for i := 1; i < len(pts)-1; i++ {
		d := perpendicularDist(pts[i], pts[0], pts[len(pts)-1])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist <= eps {
		return []image.Point{pts[0], pts[len(pts)-1]}
	}
	left := douglasPeucker(pts[:index+1], eps)
	right := douglasPeucker(pts[index:], eps)
	return append(left[:len(left)-1], right...)
}

func pointDist(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}

func perpendicularDist(p, a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	if dx == 0 && dy == 0 {
		return pointDist(p, a)
	}
	num := math.Abs(dy*float64(p.X) - dx*float64(p.Y) + float64(b.X)*float64(a.Y) - float64(b.Y)*float64(a.X))
	return num / math.Hypot(dx, dy)
}

// countBlobs counts connected bright regions inside a grayscale region,
// used to count pips on a dice face candidate.
func countBlobs(roi *image.Gray) int {
	bin := threshold(roi, pipThreshold, false)
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	labels := make([]int32, w*h)
	next := int32(1)
	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.GrayAt(x, y).Y == 0 || labels[y*w+x] != 0 {
				continue
			}
			size, _ := floodFill(bin, labels, x, y, next)
			next++
			if size >= 4 {
				count++
			}
		}
	}
	return count
}

// houghCircles finds circles with a gradient Hough transform: Sobel edges
// vote for centers along the gradient direction at every candidate radius,
// then accumulator peaks above the vote floor become circles. Centers
// closer than houghMinCenterDist to an accepted stronger circle are
// suppressed.
func houghCircles(gray *image.Gray) []detectedCircle {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2*houghMinRadius || h < 2*houghMinRadius {
		return nil
	}

	acc := make(map[[3]int]int)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := sobelX(gray, x, y)
			gy := sobelY(gray, x, y)
			mag := math.Hypot(gx, gy)
			if mag < edgeThreshold {
				continue
			}
			ux, uy := gx/mag, gy/mag
			for r := houghMinRadius; r <= houghMaxRadius; r++ {
				for _, sign := range [2]float64{1, -1} {
					cx := x + int(math.Round(sign*ux*float64(r)))
					cy := y + int(math.Round(sign*uy*float64(r)))
					if cx < 0 || cy < 0 || cx >= w || cy >= h {
						continue
					}
					acc[[3]int{cx, cy, r}]++
				}
			}
		}
	}

	var candidates []struct {
		c     detectedCircle
		votes int
	}
	for k, v := range acc {
		if v >= houghVoteFloor {
			candidates = append(candidates, struct {
				c     detectedCircle
				votes int
			}{detectedCircle{X: k[0], Y: k[1], R: k[2]}, v})
		}
	}
	// Strongest first.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].votes > candidates[j-1].votes; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	var circles []detectedCircle
	for _, cand := range candidates {
		tooClose := false
		for _, c := range circles {
			if math.Hypot(float64(cand.c.X-c.X), float64(cand.c.Y-c.Y)) < houghMinCenterDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			circles = append(circles, cand.c)
		}
	}
	return circles
}

func sobelX(g *image.Gray, x, y int) float64 {
	p := func(dx, dy int) float64 { return float64(g.GrayAt(x+dx, y+dy).Y) }
	return -p(-1, -1) + p(1, -1) - 2*p(-1, 0) + 2*p(1, 0) - p(-1, 1) + p(1, 1)
}

func sobelY(g *image.Gray, x, y int) float64 {
	p := func(dx, dy int) float64 { return float64(g.GrayAt(x+dx, y+dy).Y) }
	return -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
}

func rectFromImage(r image.Rectangle) types.Rect {
	return types.Rect{
		X0: float64(r.Min.X),
		Y0: float64(r.Min.Y),
		X1: float64(r.Max.X),
		Y1: float64(r.Max.Y),
	}
}
