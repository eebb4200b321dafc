package handler

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/service"
)

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

// answerSheetPNG renders a white page with one checkbox-sized square
// outline, enough for the extraction pipeline to produce a crop.
func answerSheetPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 80; y < 120; y++ {
		for x := 80; x < 120; x++ {
			if x < 83 || x >= 117 || y < 83 || y >= 117 {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newExtractRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	scratchRoot := t.TempDir()
	h := NewExtractHandler(service.NewExtractService(logger.NewNop()), scratchRoot)
	r := gin.New()
	r.POST("/extract", h.ExtractObjects)
	return r, scratchRoot
}

func assertScratchEmpty(t *testing.T, scratchRoot string) {
	t.Helper()
	entries, err := os.ReadDir(scratchRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not cleaned, %d entries left", len(entries))
	}
}

func TestExtractObjectsCleansScratchDir(t *testing.T) {
	r, scratchRoot := newExtractRouter(t)

	body, contentType := multipartUpload(t, "sheet.png", answerSheetPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	// The response body is the finished archive.
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a valid zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"output.json", "images/original.png", "images/checkbox_1.png"} {
		if !names[want] {
			t.Errorf("archive missing %s, has %v", want, zr.File)
		}
	}

	assertScratchEmpty(t, scratchRoot)
}

func TestExtractObjectsCleansScratchDirOnFailure(t *testing.T) {
	r, scratchRoot := newExtractRouter(t)

	body, contentType := multipartUpload(t, "sheet.png", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusInternalServerError)
	}

	assertScratchEmpty(t, scratchRoot)
}
