package types

// DocumentKind is the declared type of an uploaded document.
type DocumentKind string

const (
	KindPDF   DocumentKind = "pdf"
	KindImage DocumentKind = "image"
)

// Rect is an axis-aligned bounding box in page space: x0 <= x1, y0 <= y1.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// ShapeKind is the closed set of object kinds the shape classifier emits.
// ShapeUnknown is dropped by callers, never serialized into a manifest.
type ShapeKind string

const (
	ShapeCheckbox ShapeKind = "checkbox"
	ShapeDice     ShapeKind = "dice"
	ShapeCircle   ShapeKind = "circle"
	ShapeArrow    ShapeKind = "arrow"
	ShapeUnknown  ShapeKind = "unknown"
)

// TextBlock is a prose block extracted from a page.
type TextBlock struct {
	Text string `json:"text"`
	BBox Rect   `json:"bbox"`
}

// ImageRef points at a raster asset written under the extraction's images
// directory. Filename is unique within one extraction run.
type ImageRef struct {
	Filename string `json:"filename"`
	BBox     Rect   `json:"bbox"`
}

// ShapeObject is a classified vector or raster region.
type ShapeObject struct {
	Kind ShapeKind `json:"type"`
	BBox Rect      `json:"bbox"`
}

// Page holds everything extracted from one page. Number is 1-based.
type Page struct {
	Number     int           `json:"number"`
	TextBlocks []TextBlock   `json:"text_blocks"`
	Images     []ImageRef    `json:"images"`
	Objects    []ShapeObject `json:"objects"`
}

// Manifest describes one extracted document. It is created fresh per
// extraction request and immutable once serialized to output.json.
type Manifest struct {
	Document string `json:"document"`
	Pages    []Page `json:"pages"`
}

// VectorPathOp is one drawing primitive of a vector path.
type VectorPathOp string

const (
	OpMove  VectorPathOp = "m"
	OpLine  VectorPathOp = "l"
	OpCurve VectorPathOp = "c"
	OpRect  VectorPathOp = "re"
)

// VectorPath describes one drawing path pulled from a PDF content stream,
// reduced to what the shape classifier needs.
type VectorPath struct {
	BBox      Rect
	Ops       []VectorPathOp
	Filled    bool
	FillColor bool // a non-default fill color was set before painting
}

// RasterContour describes one detected contour in a raster image.
type RasterContour struct {
	BBox     Rect
	Vertices int // polygon approximation vertex count
	Blobs    int // small bright blob count inside the contour (pip heuristic)
}
