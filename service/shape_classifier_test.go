package service

import (
	"testing"

	"github.com/prepstack/qbank-be/types"
)

func TestClassifyVectorPath(t *testing.T) {
	classifier := NewShapeClassifier()

	tests := []struct {
		name string
		path types.VectorPath
		want types.ShapeKind
	}{
		{
			name: "small filled square without color is a checkbox",
			path: types.VectorPath{
				BBox:   types.Rect{X0: 10, Y0: 10, X1: 30, Y1: 30},
				Ops:    []types.VectorPathOp{types.OpRect},
				Filled: true,
			},
			want: types.ShapeCheckbox,
		},
		{
			name: "small filled square with color is a dice",
			path: types.VectorPath{
				BBox:      types.Rect{X0: 10, Y0: 10, X1: 30, Y1: 30},
				Ops:       []types.VectorPathOp{types.OpRect},
				Filled:    true,
				FillColor: true,
			},
			want: types.ShapeDice,
		},
		{
			name: "large filled square is not a checkbox",
			path: types.VectorPath{
				BBox:   types.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100},
				Ops:    []types.VectorPathOp{types.OpRect},
				Filled: true,
			},
			want: types.ShapeUnknown,
		},
		{
			name: "unfilled small square is not a checkbox",
			path: types.VectorPath{
				BBox: types.Rect{X0: 10, Y0: 10, X1: 30, Y1: 30},
				Ops:  []types.VectorPathOp{types.OpRect},
			},
			want: types.ShapeUnknown,
		},
		{
			name: "long thin path with few primitives is an arrow",
			path: types.VectorPath{
				BBox: types.Rect{X0: 0, Y0: 0, X1: 100, Y1: 10},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpLine},
			},
			want: types.ShapeArrow,
		},
		{
			name: "tall thin path is also an arrow",
			path: types.VectorPath{
				BBox: types.Rect{X0: 0, Y0: 0, X1: 10, Y1: 100},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpLine, types.OpLine},
			},
			want: types.ShapeArrow,
		},
		{
			name: "long path with many primitives is not an arrow",
			path: types.VectorPath{
				BBox: types.Rect{X0: 0, Y0: 0, X1: 100, Y1: 10},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpLine, types.OpLine, types.OpLine},
			},
			want: types.ShapeUnknown,
		},
		{
			name: "near-square path with a curve is a circle",
			path: types.VectorPath{
				BBox: types.Rect{X0: 0, Y0: 0, X1: 50, Y1: 50},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpCurve, types.OpCurve, types.OpCurve, types.OpCurve},
			},
			want: types.ShapeCircle,
		},
		{
			name: "near-square path without curves is unknown",
			path: types.VectorPath{
				BBox: types.Rect{X0: 0, Y0: 0, X1: 50, Y1: 50},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpLine, types.OpLine, types.OpLine, types.OpLine},
			},
			want: types.ShapeUnknown,
		},
		{
			name: "degenerate path is unknown",
			path: types.VectorPath{
				BBox: types.Rect{X0: 5, Y0: 5, X1: 5, Y1: 10},
				Ops:  []types.VectorPathOp{types.OpMove, types.OpLine},
			},
			want: types.ShapeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.ClassifyVectorPath(tt.path); got != tt.want {
				t.Errorf("ClassifyVectorPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyContour(t *testing.T) {
	classifier := NewShapeClassifier()
	const imgW, imgH = 300, 300

	tests := []struct {
		name    string
		contour types.RasterContour
		want    types.ShapeKind
	}{
		{
			name: "square contour without pips is a checkbox",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 50, Y1: 50},
				Vertices: 4,
			},
			want: types.ShapeCheckbox,
		},
		{
			name: "square contour with three pips is a dice",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 50, Y1: 50},
				Vertices: 4,
				Blobs:    3,
			},
			want: types.ShapeDice,
		},
		{
			name: "square contour with too many blobs stays a checkbox",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 50, Y1: 50},
				Vertices: 4,
				Blobs:    9,
			},
			want: types.ShapeCheckbox,
		},
		{
			name: "five vertices is unknown",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 50, Y1: 50},
				Vertices: 5,
			},
			want: types.ShapeUnknown,
		},
		{
			name: "too small is unknown",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 18, Y1: 18},
				Vertices: 4,
			},
			want: types.ShapeUnknown,
		},
		{
			name: "larger than a third of the image is unknown",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 0, Y0: 0, X1: 150, Y1: 150},
				Vertices: 4,
			},
			want: types.ShapeUnknown,
		},
		{
			name: "skewed aspect ratio is unknown",
			contour: types.RasterContour{
				BBox:     types.Rect{X0: 10, Y0: 10, X1: 70, Y1: 40},
				Vertices: 4,
			},
			want: types.ShapeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.ClassifyContour(tt.contour, imgW, imgH); got != tt.want {
				t.Errorf("ClassifyContour() = %v, want %v", got, tt.want)
			}
		})
	}
}
