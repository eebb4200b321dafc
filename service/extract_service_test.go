package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// drawRectOutline draws a dark rectangle outline of the given stroke width
// on a light background image.
func drawRectOutline(img *image.Gray, r image.Rectangle, stroke int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			onEdge := x < r.Min.X+stroke || x >= r.Max.X-stroke ||
				y < r.Min.Y+stroke || y >= r.Max.Y-stroke
			if onEdge {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}

func whiteImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractRejectsUnsupportedKind(t *testing.T) {
	s := NewExtractService(logger.NewNop())

	_, err := s.Extract(context.Background(), []byte("data"), "doc", types.DocumentKind("docx"), t.TempDir())
	if !errors.Is(err, types.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractImageRejectsGarbage(t *testing.T) {
	s := NewExtractService(logger.NewNop())

	_, err := s.Extract(context.Background(), []byte("not a png"), "doc", types.KindImage, t.TempDir())
	if !errors.Is(err, types.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractImageCheckbox(t *testing.T) {
	img := whiteImage(200, 200)
	drawRectOutline(img, image.Rect(80, 80, 120, 120), 3)

	s := NewExtractService(logger.NewNop())
	scratch := t.TempDir()

	manifest, err := s.Extract(context.Background(), encodePNG(t, img), "sheet", types.KindImage, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Document != "sheet" {
		t.Errorf("document = %q, want sheet", manifest.Document)
	}
	if len(manifest.Pages) != 1 || manifest.Pages[0].Number != 1 {
		t.Fatalf("pages = %+v, want a single page 1", manifest.Pages)
	}

	page := manifest.Pages[0]
	if len(page.Objects) != 1 {
		t.Fatalf("got %d objects, want 1: %+v", len(page.Objects), page.Objects)
	}
	if page.Objects[0].Kind != types.ShapeCheckbox {
		t.Errorf("kind = %q, want checkbox", page.Objects[0].Kind)
	}
	box := page.Objects[0].BBox
	if box.X0 != 80 || box.Y0 != 80 || box.X1 != 120 || box.Y1 != 120 {
		t.Errorf("bbox = %+v, want 80,80-120,120", box)
	}

	imagesDir := filepath.Join(scratch, "images")
	if _, err := os.Stat(filepath.Join(imagesDir, "original.png")); err != nil {
		t.Errorf("original.png not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(imagesDir, "checkbox_1.png")); err != nil {
		t.Errorf("object crop not written: %v", err)
	}
}

func TestExtractImageDice(t *testing.T) {
	img := whiteImage(200, 200)
	drawRectOutline(img, image.Rect(80, 80, 120, 120), 3)
	// Three pips well inside the outline inset.
	for _, p := range []image.Point{{92, 92}, {105, 92}, {98, 105}} {
		for y := p.Y; y < p.Y+3; y++ {
			for x := p.X; x < p.X+3; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	s := NewExtractService(logger.NewNop())
	manifest, err := s.Extract(context.Background(), encodePNG(t, img), "sheet", types.KindImage, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	page := manifest.Pages[0]
	if len(page.Objects) != 1 {
		t.Fatalf("got %d objects, want 1: %+v", len(page.Objects), page.Objects)
	}
	if page.Objects[0].Kind != types.ShapeDice {
		t.Errorf("kind = %q, want dice", page.Objects[0].Kind)
	}
}

// requirePdftoppm skips tests that rasterize page previews when poppler
// is not installed.
func requirePdftoppm(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed in PATH")
	}
}

func TestExtractPDFImageAndVectorCircle(t *testing.T) {
	requirePdftoppm(t)

	data, err := os.ReadFile(filepath.Join("testdata", "shapes.pdf"))
	if err != nil {
		t.Fatal(err)
	}

	s := NewExtractService(logger.NewNop())
	scratch := t.TempDir()

	manifest, err := s.Extract(context.Background(), data, "shapes.pdf", types.KindPDF, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(manifest.Pages))
	}

	first := manifest.Pages[0]
	var embedded *types.ImageRef
	for i := range first.Images {
		if first.Images[i].Filename == "page1_img1.png" {
			embedded = &first.Images[i]
		}
	}
	if embedded == nil {
		t.Fatalf("embedded image missing from page 1: %+v", first.Images)
	}
	// The fixture paints the XObject with a 40x40 transform at (80, 120).
	if embedded.BBox.X0 != 80 || embedded.BBox.Y0 != 120 || embedded.BBox.X1 != 120 || embedded.BBox.Y1 != 160 {
		t.Errorf("embedded image bbox = %+v, want 80,120-120,160", embedded.BBox)
	}

	second := manifest.Pages[1]
	if len(second.Objects) != 1 || second.Objects[0].Kind != types.ShapeCircle {
		t.Fatalf("page 2 objects = %+v, want one circle", second.Objects)
	}
	box := second.Objects[0].BBox
	if box.X0 != 60 || box.Y0 != 60 || box.X1 != 140 || box.Y1 != 140 {
		t.Errorf("circle bbox = %+v, want 60,60-140,140", box)
	}

	imagesDir := filepath.Join(scratch, "images")
	for _, name := range []string{"page1_img1.png", "page1_preview.png", "page2_preview.png"} {
		if _, err := os.Stat(filepath.Join(imagesDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestExtractImageIgnoresOversizedShape(t *testing.T) {
	// A square larger than a third of the image is layout, not an answer box.
	img := whiteImage(200, 200)
	drawRectOutline(img, image.Rect(40, 40, 160, 160), 3)

	s := NewExtractService(logger.NewNop())
	manifest, err := s.Extract(context.Background(), encodePNG(t, img), "sheet", types.KindImage, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(manifest.Pages[0].Objects); got != 0 {
		t.Errorf("got %d objects, want 0: %+v", got, manifest.Pages[0].Objects)
	}
}
