package service

import (
	"github.com/prepstack/qbank-be/types"
)

// Shape classification thresholds. These are deliberately simple heuristics
// tuned against scanned exam papers; false positives and negatives are
// expected. Keep the values stable so extraction output is reproducible.
const (
	// Vector paths: aspect-ratio window for "near square".
	vectorSquareRatioMin = 0.9
	vectorSquareRatioMax = 1.1
	// Raster contours tolerate more skew from scanning.
	rasterSquareRatioMin = 0.8
	rasterSquareRatioMax = 1.2

	// Small filled squares are checkbox/dice candidates.
	smallShapeMaxWidth = 30.0

	// An arrow is much longer in one dimension and drawn with few primitives.
	elongationFactor   = 3.0
	maxArrowPrimitives = 3

	// Raster contour size bounds: at least this many pixels on a side, at
	// most a third of the image dimension.
	minContourSide = 10.0

	// Pip counts that upgrade a raster checkbox to a dice face.
	minPipCount = 1
	maxPipCount = 6
)

// ShapeClassifier assigns one of the closed set of shape kinds to a vector
// path or raster contour. The rules are ordered; the first match wins.
type ShapeClassifier struct{}

func NewShapeClassifier() *ShapeClassifier {
	return &ShapeClassifier{}
}

// ClassifyVectorPath classifies a drawing path from a PDF content stream.
func (c *ShapeClassifier) ClassifyVectorPath(p types.VectorPath) types.ShapeKind {
	w := p.BBox.Width()
	h := p.BBox.Height()
	if w <= 0 || h <= 0 {
		return types.ShapeUnknown
	}
	ratio := w / h

	// Small filled squares: dice when a fill color was set, else checkbox.
	if ratio >= vectorSquareRatioMin && ratio <= vectorSquareRatioMax &&
		p.Filled && w < smallShapeMaxWidth {
		if p.FillColor {
			return types.ShapeDice
		}
		return types.ShapeCheckbox
	}

	// Long thin paths drawn with few primitives read as arrows.
	if (w > elongationFactor*h || h > elongationFactor*w) &&
		len(p.Ops) <= maxArrowPrimitives {
		return types.ShapeArrow
	}

	// Near-square paths containing a curve primitive read as circles.
	if ratio >= vectorSquareRatioMin && ratio <= vectorSquareRatioMax &&
		hasCurvePrimitive(p.Ops) {
		return types.ShapeCircle
	}

	return types.ShapeUnknown
}

// ClassifyContour classifies a polygon-approximated raster contour. Only
// 4-vertex near-square contours within the size bounds are considered;
// everything else is unknown. A plausible pip count upgrades the result
// from checkbox to dice.
func (c *ShapeClassifier) ClassifyContour(contour types.RasterContour, imgWidth, imgHeight int) types.ShapeKind {
	if contour.Vertices != 4 {
		return types.ShapeUnknown
	}

	w := contour.BBox.Width()
	h := contour.BBox.Height()
	if w < minContourSide || h < minContourSide {
		return types.ShapeUnknown
	}
	if w > float64(imgWidth)/3 || h > float64(imgHeight)/3 {
		return types.ShapeUnknown
	}

	ratio := w / h
	if ratio < rasterSquareRatioMin || ratio > rasterSquareRatioMax {
		return types.ShapeUnknown
	}

	if contour.Blobs >= minPipCount && contour.Blobs <= maxPipCount {
		return types.ShapeDice
	}
	return types.ShapeCheckbox
}

func hasCurvePrimitive(ops []types.VectorPathOp) bool {
	for _, op := range ops {
		if op == types.OpCurve {
			return true
		}
	}
	return false
}
