package service

import (
	"math"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"

	"github.com/prepstack/qbank-be/types"
)

// Content-stream walker for the PDF extraction branch. It tracks the
// current transformation matrix through q/Q/cm, accumulates path
// construction operators into vector paths, records which painting
// operator closed each path, and captures the placement rectangle of
// every image XObject drawn with Do.

// ctm is a PDF transformation matrix [a b c d e f].
type ctm struct {
	a, b, c, d, e, f float64
}

func identityCTM() ctm {
	return ctm{a: 1, d: 1}
}

func (m ctm) mul(n ctm) ctm {
	return ctm{
		a: n.a*m.a + n.b*m.c,
		b: n.a*m.b + n.b*m.d,
		c: n.c*m.a + n.d*m.c,
		d: n.c*m.b + n.d*m.d,
		e: n.e*m.a + n.f*m.c + m.e,
		f: n.e*m.b + n.f*m.d + m.f,
	}
}

func (m ctm) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// imagePlacement is the page-space rectangle an XObject was painted into.
type imagePlacement struct {
	Name string
	BBox types.Rect
}

type pathWalker struct {
	stack []ctm
	cur   ctm

	// Path under construction.
	points []point
	ops    []types.VectorPathOp

	// Non-stroking color state. hasFillColor is set once any fill color
	// operator assigns a non-default color.
	hasFillColor bool

	paths      []types.VectorPath
	placements []imagePlacement
}

type point struct{ x, y float64 }

// walkContentStream runs all operations through the walker and returns the
// painted vector paths and image placements found on the page.
func walkContentStream(ops []contentstream.Operation) ([]types.VectorPath, []imagePlacement) {
	w := &pathWalker{cur: identityCTM()}
	for _, op := range ops {
		w.step(op)
	}
	return w.paths, w.placements
}

func (w *pathWalker) step(op contentstream.Operation) {
	switch op.Operator {
	case "q":
		w.stack = append(w.stack, w.cur)
	case "Q":
		if n := len(w.stack); n > 0 {
			w.cur = w.stack[n-1]
			w.stack = w.stack[:n-1]
		}
	case "cm":
		if len(op.Operands) == 6 {
			m := ctm{}
			m.a, _ = operandFloat(op.Operands[0])
			m.b, _ = operandFloat(op.Operands[1])
			m.c, _ = operandFloat(op.Operands[2])
			m.d, _ = operandFloat(op.Operands[3])
			m.e, _ = operandFloat(op.Operands[4])
			m.f, _ = operandFloat(op.Operands[5])
			w.cur = w.cur.mul(m)
		}

	case "m":
		w.addPoint(op.Operands, 0)
		w.ops = append(w.ops, types.OpMove)
	case "l":
		w.addPoint(op.Operands, 0)
		w.ops = append(w.ops, types.OpLine)
	case "c":
		w.addPoints(op.Operands)
		w.ops = append(w.ops, types.OpCurve)
	case "v", "y":
		w.addPoints(op.Operands)
		w.ops = append(w.ops, types.OpCurve)
	case "re":
		w.addRect(op.Operands)
		w.ops = append(w.ops, types.OpRect)
	case "h":
		// Close path; no new points.

	case "f", "F", "f*", "b", "b*", "B", "B*":
		w.flushPath(true)
	case "S", "s", "n":
		w.flushPath(false)

	case "rg", "sc", "scn":
		w.hasFillColor = anyNonZero(op.Operands)
	case "g":
		if v, ok := operandFloat(firstOperand(op.Operands)); ok {
			w.hasFillColor = v > 0
		}
	case "k":
		// CMYK: anything but 0 0 0 1 (pure black) counts as a color.
		if len(op.Operands) == 4 {
			cy, _ := operandFloat(op.Operands[0])
			mg, _ := operandFloat(op.Operands[1])
			ye, _ := operandFloat(op.Operands[2])
			bk, _ := operandFloat(op.Operands[3])
			w.hasFillColor = cy > 0 || mg > 0 || ye > 0 || bk < 1
		}

	case "Do":
		if name, ok := firstOperand(op.Operands).(core.Name); ok {
			w.placements = append(w.placements, imagePlacement{
				Name: string(name),
				BBox: w.unitSquareBBox(),
			})
		}
	}
}

// unitSquareBBox maps the unit square through the current matrix. Image
// XObjects are always painted into the unit square, so this is the image's
// page-space footprint.
func (w *pathWalker) unitSquareBBox() types.Rect {
	corners := [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := w.cur.apply(c[0], c[1])
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	return types.Rect{X0: minX, Y0: minY, X1: maxX, Y1: maxY}
}

func (w *pathWalker) addPoint(operands []core.Object, offset int) {
	if len(operands) < offset+2 {
		return
	}
	x, okX := operandFloat(operands[offset])
	y, okY := operandFloat(operands[offset+1])
	if okX && okY {
		px, py := w.cur.apply(x, y)
		w.points = append(w.points, point{px, py})
	}
}

// addPoints consumes operands pairwise, used for curve operators where
// every coordinate pair bounds the path.
func (w *pathWalker) addPoints(operands []core.Object) {
	for i := 0; i+1 < len(operands); i += 2 {
		w.addPoint(operands, i)
	}
}

func (w *pathWalker) addRect(operands []core.Object) {
	if len(operands) < 4 {
		return
	}
	x, _ := operandFloat(operands[0])
	y, _ := operandFloat(operands[1])
	rw, _ := operandFloat(operands[2])
	rh, _ := operandFloat(operands[3])
	for _, c := range [4][2]float64{{x, y}, {x + rw, y}, {x, y + rh}, {x + rw, y + rh}} {
		px, py := w.cur.apply(c[0], c[1])
		w.points = append(w.points, point{px, py})
	}
}

// flushPath finishes the path under construction and records it when it
// has any extent.
func (w *pathWalker) flushPath(filled bool) {
	defer func() {
		w.points = nil
		w.ops = nil
	}()
	if len(w.points) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range w.points {
		minX = math.Min(minX, p.x)
		minY = math.Min(minY, p.y)
		maxX = math.Max(maxX, p.x)
		maxY = math.Max(maxY, p.y)
	}
	w.paths = append(w.paths, types.VectorPath{
		BBox:      types.Rect{X0: minX, Y0: minY, X1: maxX, Y1: maxY},
		Ops:       append([]types.VectorPathOp(nil), w.ops...),
		Filled:    filled,
		FillColor: filled && w.hasFillColor,
	})
}

func firstOperand(operands []core.Object) core.Object {
	if len(operands) == 0 {
		return nil
	}
	return operands[0]
}

func operandFloat(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}

func anyNonZero(operands []core.Object) bool {
	for _, o := range operands {
		if v, ok := operandFloat(o); ok && v > 0 {
			return true
		}
	}
	return false
}
