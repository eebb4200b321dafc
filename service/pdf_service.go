package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// PDFService pulls plain text out of question papers and study materials.
// pdftotext does the fast path; pages with no text layer fall back to
// tesseract OCR on a 300 DPI render.
type PDFService struct {
	maxChunkSize int
	overlapSize  int
	logger       *logger.Logger
}

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	MaxChunkSize: 1024,
	OverlapSize:  128,
}

func NewPDFService(config types.DocumentServiceConfig, log *logger.Logger) *PDFService {
	return &PDFService{
		maxChunkSize: config.MaxChunkSize,
		overlapSize:  config.OverlapSize,
		logger:       log.With("service", "pdf"),
	}
}

// PageCount returns the number of pages in the PDF at path.
func (s *PDFService) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return count, nil
}

// ExtractPageText extracts the text of one page, OCRing when the text
// layer yields nothing.
func (s *PDFService) ExtractPageText(path string, pageNum int) (string, error) {
	text, err := s.extractWithPdftotext(path, pageNum)
	if err != nil || text == "" {
		text, err = s.extractWithTesseract(path, pageNum)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}
	return s.cleanText(text), nil
}

// ExtractAllText concatenates the text of every page. Pages that fail
// are skipped with a warning so one bad scan does not sink the document.
func (s *PDFService) ExtractAllText(path string, progress func(page, total int)) (string, error) {
	total, err := s.PageCount(path)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for pageNum := 1; pageNum <= total; pageNum++ {
		if progress != nil {
			progress(pageNum, total)
		}
		text, err := s.ExtractPageText(path, pageNum)
		if err != nil {
			s.logger.Warn("page text extraction failed", "page", pageNum, "error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no text extracted from %s", filepath.Base(path))
	}
	return sb.String(), nil
}

// ProcessPDF chunks a PDF into overlapping passages and sends them on c,
// closing the channel when done. Trailing text of each page is carried
// into the next so chunks can span page breaks.
func (s *PDFService) ProcessPDF(path string, req types.UploadRequest, c chan<- types.DocumentChunk) error {
	defer close(c)
	total, err := s.PageCount(path)
	if err != nil {
		return err
	}
	lastText := ""
	for pageNum := 1; pageNum <= total; pageNum++ {
		text, err := s.ExtractPageText(path, pageNum)
		if err != nil {
			s.logger.Warn("skipping page", "page", pageNum, "error", err)
			continue
		}
		text = strings.TrimSpace(lastText + " " + text)
		if text == "" {
			continue
		}
		metadata := types.DocumentMetadata{
			Source:     req.Source,
			Title:      req.Title,
			PageNum:    pageNum,
			TotalPages: total,
		}
		chunks, carry := s.ChunkText(text, metadata)
		lastText = carry
		if carry != "" && len(chunks) > 0 {
			chunks = chunks[:len(chunks)-1]
		}
		for _, chunk := range chunks {
			c <- chunk
		}
	}
	// The carried tail never got emitted.
	if tail := strings.TrimSpace(lastText); tail != "" {
		c <- types.DocumentChunk{
			Content:  tail,
			Page:     total,
			Metadata: types.DocumentMetadata{Source: req.Source, Title: req.Title, PageNum: total, TotalPages: total},
		}
	}
	return nil
}

// ChunkText splits text into overlapping chunks on sentence boundaries,
// falling back to word boundaries. The second return value is the final
// chunk's text, which callers may carry into the next page.
func (s *PDFService) ChunkText(text string, metadata types.DocumentMetadata) ([]types.DocumentChunk, string) {
	textLen := len(text)
	if textLen <= s.maxChunkSize {
		return []types.DocumentChunk{{
			Content:  text,
			Page:     metadata.PageNum,
			Metadata: metadata,
		}}, text
	}

	var chunks []types.DocumentChunk
	lastText := ""
	currentPos := 0
	for currentPos < textLen {
		chunkEnd := currentPos + s.maxChunkSize
		if chunkEnd >= textLen {
			chunk := strings.TrimSpace(text[currentPos:])
			if chunk != "" {
				chunks = append(chunks, types.DocumentChunk{
					Content:  chunk,
					Page:     metadata.PageNum,
					Metadata: metadata,
				})
				lastText = chunk
			}
			break
		}

		sentenceEnd := chunkEnd
		for i := chunkEnd; i > currentPos; i-- {
			if text[i] == '.' || text[i] == '?' || text[i] == '!' {
				sentenceEnd = i + 1
				break
			}
		}
		if sentenceEnd == chunkEnd {
			for i := chunkEnd; i > currentPos; i-- {
				if text[i] == ' ' {
					sentenceEnd = i
					break
				}
			}
		}

		chunk := strings.TrimSpace(text[currentPos:sentenceEnd])
		if chunk != "" {
			chunks = append(chunks, types.DocumentChunk{
				Content:  chunk,
				Page:     metadata.PageNum,
				Metadata: metadata,
			})
		}

		next := sentenceEnd - s.overlapSize
		if next <= currentPos {
			next = sentenceEnd
		}
		currentPos = next
	}

	return chunks, lastText
}

func (s *PDFService) extractWithPdftotext(path string, pageNum int) (string, error) {
	cmd := exec.Command("pdftotext",
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		"-enc", "UTF-8", "-nopgbrk",
		path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext page %d: %v", pageNum, err)
	}
	if trimmed := strings.TrimSpace(out.String()); trimmed != "" {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNum)
}

func (s *PDFService) extractWithTesseract(path string, pageNum int) (string, error) {
	tempFolder, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempFolder)

	convertCmd := exec.Command("pdftoppm",
		"-f", strconv.Itoa(pageNum), "-l", strconv.Itoa(pageNum),
		"-r", strconv.Itoa(previewDPI),
		"-png", path, filepath.Join(tempFolder, "page"))
	if err := convertCmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %v", pageNum, err)
	}
	files, err := filepath.Glob(filepath.Join(tempFolder, "page-*.png"))
	if err != nil || len(files) == 0 {
		return "", fmt.Errorf("failed to read rendered page image")
	}

	ocrCmd := exec.Command("tesseract",
		files[0], "stdout",
		"-l", "eng",
		"--oem", "3",
		"--psm", "3",
	)
	var out bytes.Buffer
	ocrCmd.Stdout = &out
	if err := ocrCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	if trimmed := strings.TrimSpace(out.String()); trimmed != "" {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNum)
}

func (s *PDFService) cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // Null character
		"\ufffd": "",   // Unicode replacement character
		"\u001b": "",   // Escape character
		"\r":     "",   // Carriage return
		"\f":     "\n", // Form feed to newline
		"  ":     " ",  // Multiple spaces to single space
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}
	return strings.TrimSpace(cleaned)
}
