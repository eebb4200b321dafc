package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

const previewDPI = 300

// ExtractService turns an uploaded document into a structured manifest
// plus raster assets on disk. PDFs go through the tabula parser for text
// blocks, embedded images and vector drawings; standalone images go
// through the raster pipeline. The caller owns the scratch directory and
// is responsible for packaging and cleanup.
type ExtractService struct {
	classifier *ShapeClassifier
	logger     *logger.Logger
}

func NewExtractService(log *logger.Logger) *ExtractService {
	return &ExtractService{
		classifier: NewShapeClassifier(),
		logger:     log.With("service", "extract"),
	}
}

// Extract analyzes data of the given kind, writes image assets under
// scratchDir/images and returns the manifest. The manifest is not written
// to disk here; callers serialize it alongside the assets.
func (s *ExtractService) Extract(ctx context.Context, data []byte, docName string, kind types.DocumentKind, scratchDir string) (*types.Manifest, error) {
	imagesDir := filepath.Join(scratchDir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create images dir: %v", types.ErrExtractionFailed, err)
	}

	switch kind {
	case types.KindPDF:
		return s.extractPDF(ctx, data, docName, scratchDir, imagesDir)
	case types.KindImage:
		return s.extractImage(ctx, data, docName, imagesDir)
	default:
		return nil, fmt.Errorf("%w: document kind %q", types.ErrUnsupportedFormat, kind)
	}
}

func (s *ExtractService) extractPDF(ctx context.Context, data []byte, docName, scratchDir, imagesDir string) (*types.Manifest, error) {
	pdfPath := filepath.Join(scratchDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: stage pdf: %v", types.ErrExtractionFailed, err)
	}

	r, err := reader.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", types.ErrExtractionFailed, err)
	}
	defer r.Close()

	pageCount, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", types.ErrExtractionFailed, err)
	}

	manifest := &types.Manifest{Document: docName}
	detector := layout.NewBlockDetector()

	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNum := i + 1

		page, err := r.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", types.ErrExtractionFailed, pageNum, err)
		}
		pageWidth, _ := page.Width()
		pageHeight, _ := page.Height()

		out := types.Page{
			Number:     pageNum,
			TextBlocks: []types.TextBlock{},
			Images:     []types.ImageRef{},
			Objects:    []types.ShapeObject{},
		}

		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			s.logger.Warn("text extraction failed", "page", pageNum, "error", err)
		} else {
			for _, block := range detector.Detect(fragments, pageWidth, pageHeight).Blocks {
				out.TextBlocks = append(out.TextBlocks, types.TextBlock{
					Text: blockText(block),
					BBox: types.Rect{
						X0: block.BBox.X,
						Y0: block.BBox.Y,
						X1: block.BBox.X + block.BBox.Width,
						Y1: block.BBox.Y + block.BBox.Height,
					},
				})
			}
		}

		paths, placements := s.pageDrawings(page)

		pageImages, err := r.ExtractPageImages(page)
		if err != nil {
			s.logger.Warn("image extraction failed", "page", pageNum, "error", err)
		}
		for j, img := range pageImages {
			pngData, err := img.ToPNG()
			if err != nil {
				s.logger.Warn("image decode failed", "page", pageNum, "xobject", img.Name, "error", err)
				continue
			}
			filename := fmt.Sprintf("page%d_img%d.png", pageNum, j+1)
			if err := os.WriteFile(filepath.Join(imagesDir, filename), pngData, 0o644); err != nil {
				return nil, fmt.Errorf("%w: write %s: %v", types.ErrExtractionFailed, filename, err)
			}
			out.Images = append(out.Images, types.ImageRef{
				Filename: filename,
				BBox:     placementBBox(placements, img.Name, pageWidth, pageHeight),
			})
		}

		for _, p := range paths {
			kind := s.classifier.ClassifyVectorPath(p)
			if kind == types.ShapeUnknown {
				continue
			}
			out.Objects = append(out.Objects, types.ShapeObject{Kind: kind, BBox: p.BBox})
		}

		previewName, err := s.renderPreview(ctx, pdfPath, imagesDir, pageNum)
		if err != nil {
			return nil, fmt.Errorf("%w: preview page %d: %v", types.ErrExtractionFailed, pageNum, err)
		}
		out.Images = append(out.Images, types.ImageRef{
			Filename: previewName,
			BBox:     types.Rect{X1: pageWidth, Y1: pageHeight},
		})

		manifest.Pages = append(manifest.Pages, out)
	}

	return manifest, nil
}

// pageDrawings collects vector paths and image placements from all content
// streams on a page. A page with unparsable content yields no drawings
// rather than failing the whole extraction.
func (s *ExtractService) pageDrawings(page *pages.Page) ([]types.VectorPath, []imagePlacement) {
	contents, err := page.Contents()
	if err != nil || len(contents) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			s.logger.Warn("content stream decode failed", "error", err)
			continue
		}
		buf.Write(decoded)
		buf.WriteByte('\n')
	}
	ops, err := contentstream.NewParser(buf.Bytes()).Parse()
	if err != nil {
		s.logger.Warn("content stream parse failed", "error", err)
		return nil, nil
	}
	return walkContentStream(ops)
}

// renderPreview rasterizes one page at 300 DPI with pdftoppm and renames
// the result to a stable filename.
func (s *ExtractService) renderPreview(ctx context.Context, pdfPath, imagesDir string, pageNum int) (string, error) {
	prefix := filepath.Join(imagesDir, fmt.Sprintf("page%d_preview", pageNum))
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", strconv.Itoa(pageNum), "-l", strconv.Itoa(pageNum),
		"-r", strconv.Itoa(previewDPI), "-png", pdfPath, prefix)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm: %v", err)
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no output for page %d", pageNum)
	}
	name := fmt.Sprintf("page%d_preview.png", pageNum)
	if err := os.Rename(matches[0], filepath.Join(imagesDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

func (s *ExtractService) extractImage(ctx context.Context, data []byte, docName, imagesDir string) (*types.Manifest, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", types.ErrExtractionFailed, err)
	}
	bounds := src.Bounds()
	imgWidth, imgHeight := bounds.Dx(), bounds.Dy()

	if err := writePNG(filepath.Join(imagesDir, "original.png"), src); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}

	page := types.Page{
		Number:     1,
		TextBlocks: []types.TextBlock{},
		Images:     []types.ImageRef{{Filename: "original.png", BBox: types.Rect{X1: float64(imgWidth), Y1: float64(imgHeight)}}},
		Objects:    []types.ShapeObject{},
	}

	gray := grayscale(src)
	cropCounts := map[types.ShapeKind]int{}

	for _, c := range houghCircles(gray) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box := image.Rect(c.X-c.R, c.Y-c.R, c.X+c.R, c.Y+c.R)
		name, err := writeCrop(imagesDir, src, box, types.ShapeCircle, cropCounts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
		}
		page.Objects = append(page.Objects, types.ShapeObject{Kind: types.ShapeCircle, BBox: rectFromImage(box)})
		page.Images = append(page.Images, types.ImageRef{Filename: name, BBox: rectFromImage(box)})
	}

	// Dark shapes become white components after the inverted threshold.
	bin := threshold(gray, contourThreshold, true)
	for _, contour := range findContours(bin) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		approx := approxPolygon(contour.Boundary, 0.01)
		rc := types.RasterContour{
			BBox:     rectFromImage(contour.BBox),
			Vertices: len(approx),
			Blobs:    interiorBlobs(bin, contour.BBox),
		}
		kind := s.classifier.ClassifyContour(rc, imgWidth, imgHeight)
		if kind == types.ShapeUnknown {
			continue
		}
		name, err := writeCrop(imagesDir, src, contour.BBox, kind, cropCounts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
		}
		page.Objects = append(page.Objects, types.ShapeObject{Kind: kind, BBox: rc.BBox})
		page.Images = append(page.Images, types.ImageRef{Filename: name, BBox: rc.BBox})
	}

	return &types.Manifest{Document: docName, Pages: []types.Page{page}}, nil
}

// interiorBlobs counts bright components inside a contour's box, inset so
// the shape outline itself does not register as a blob.
func interiorBlobs(bin *image.Gray, box image.Rectangle) int {
	insetX := box.Dx() / 5
	insetY := box.Dy() / 5
	inner := image.Rect(box.Min.X+insetX, box.Min.Y+insetY, box.Max.X-insetX, box.Max.Y-insetY)
	if inner.Empty() {
		return 0
	}
	return countBlobs(grayRegion(bin, inner))
}

// writeCrop saves the region as <kind>_<i>.png, numbering per kind.
func writeCrop(imagesDir string, src image.Image, box image.Rectangle, kind types.ShapeKind, counts map[types.ShapeKind]int) (string, error) {
	counts[kind]++
	name := fmt.Sprintf("%s_%d.png", kind, counts[kind])
	if err := writePNG(filepath.Join(imagesDir, name), crop(src, box)); err != nil {
		return "", err
	}
	return name, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %v", filepath.Base(path), err)
	}
	return nil
}

func blockText(block layout.Block) string {
	var lines []string
	for _, line := range block.Lines {
		var sb strings.Builder
		for _, frag := range line {
			sb.WriteString(frag.Text)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

func placementBBox(placements []imagePlacement, name string, pageWidth, pageHeight float64) types.Rect {
	for _, p := range placements {
		if p.Name == name {
			return p.BBox
		}
	}
	// No recorded placement, fall back to the full page.
	return types.Rect{X1: pageWidth, Y1: pageHeight}
}
