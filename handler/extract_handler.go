package handler

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
	"github.com/prepstack/qbank-be/utils"
)

// ExtractHandler serves the object-extraction endpoint: upload a PDF or
// image, get back a zip with output.json plus the extracted raster
// assets. The scratch directory lives only for the request.
type ExtractHandler struct {
	extractService *service.ExtractService
	scratchRoot    string
}

func NewExtractHandler(extractService *service.ExtractService, scratchRoot string) *ExtractHandler {
	return &ExtractHandler{extractService: extractService, scratchRoot: scratchRoot}
}

// ExtractObjects handles POST /extract.
func (h *ExtractHandler) ExtractObjects(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "Invalid file"})
		return
	}
	defer file.Close()

	kind, ok := documentKind(header.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "unsupported file type, expected .pdf, .png or .jpg",
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "failed to read file"})
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "File too large"})
		return
	}

	scratchDir := filepath.Join(h.scratchRoot, uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: "error", Message: "failed to allocate scratch space"})
		return
	}
	defer os.RemoveAll(scratchDir)

	manifest, err := h.extractService.Extract(c.Request.Context(), data, header.Filename, kind, scratchDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		c.JSON(status, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}

	zipPath, err := packageResult(scratchDir, manifest)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}

	zipName := utils.FileNameWithoutExt(header.Filename) + "_extracted.zip"
	c.FileAttachment(zipPath, zipName)
}

func documentKind(filename string) (types.DocumentKind, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return types.KindPDF, true
	case ".png", ".jpg", ".jpeg":
		return types.KindImage, true
	}
	return "", false
}

// packageResult writes output.json next to the images directory and zips
// both into scratchDir/result.zip.
func packageResult(scratchDir string, manifest *types.Manifest) (string, error) {
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(scratchDir, "output.json"), manifestJSON, 0o644); err != nil {
		return "", err
	}

	zipPath := filepath.Join(scratchDir, "result.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(zipFile)
	if err := writeZipEntries(zw, scratchDir); err != nil {
		zw.Close()
		zipFile.Close()
		return "", err
	}
	// Close flushes the central directory; an error here means a truncated
	// archive.
	if err := zw.Close(); err != nil {
		zipFile.Close()
		return "", err
	}
	if err := zipFile.Close(); err != nil {
		return "", err
	}
	return zipPath, nil
}

func writeZipEntries(zw *zip.Writer, scratchDir string) error {
	if err := addToZip(zw, filepath.Join(scratchDir, "output.json"), "output.json"); err != nil {
		return err
	}

	imagesDir := filepath.Join(scratchDir, "images")
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(imagesDir, entry.Name())
		if err := addToZip(zw, src, "images/"+entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addToZip(zw *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
