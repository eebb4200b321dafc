package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/types"
)

// FileService orchestrates uploads. Question papers run the full
// pipeline: store the PDF, extract its text, ask the LLM for question
// records, normalize them and write them to Postgres. Study materials
// are chunked and pushed into the vector store instead.
type FileService struct {
	uploadDir  string
	pdfService *PDFService
	extractors map[string]QuestionExtractor
	normalizer *NormalizeService
	ingester   *IngestService
	uploads    repository.UploadRepo
	vectorDB   database.VectorDatabase
	logger     *logger.Logger
}

func NewFileService(
	uploadDir string,
	pdfService *PDFService,
	extractors map[string]QuestionExtractor,
	normalizer *NormalizeService,
	ingester *IngestService,
	uploads repository.UploadRepo,
	vectorDB database.VectorDatabase,
	log *logger.Logger,
) *FileService {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		panic(err)
	}
	return &FileService{
		uploadDir:  uploadDir,
		pdfService: pdfService,
		extractors: extractors,
		normalizer: normalizer,
		ingester:   ingester,
		uploads:    uploads,
		vectorDB:   vectorDB,
		logger:     log.With("service", "file"),
	}
}

// ProcessQuestionPaper ingests one uploaded question paper end to end,
// streaming progress on c. The uploaded_files row tracks the outcome
// either way.
func (s *FileService) ProcessQuestionPaper(ctx context.Context, req types.UploadRequest, file *multipart.FileHeader, c chan<- types.ProcessingDocumentStatus) (*types.UploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	storedPath, err := s.saveUpload(req.Title, ext, file)
	if err != nil {
		return nil, err
	}
	pages, err := s.pdfService.PageCount(storedPath)
	if err != nil {
		return nil, fmt.Errorf("unreadable pdf: %w", err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	record := &database.UploadedFile{
		FileName:   file.Filename,
		StoredPath: storedPath,
		Status:     "pending",
	}
	if err := s.uploads.Create(ctx, record); err != nil {
		return nil, err
	}

	resp, err := s.runPipeline(ctx, req, file.Filename, storedPath, c)
	if err != nil {
		if logErr := s.uploads.SetStatus(ctx, record.ID, "failed", err.Error()); logErr != nil {
			s.logger.Error("failed to record upload failure", "id", record.ID, "error", logErr)
		}
		return nil, err
	}

	logs := fmt.Sprintf("questions_parsed: %d, model_used: %s", resp.QuestionsParsed, resp.ModelUsed)
	if err := s.uploads.SetStatus(ctx, record.ID, "completed", logs); err != nil {
		s.logger.Error("failed to record upload completion", "id", record.ID, "error", err)
	}
	return resp, nil
}

func (s *FileService) runPipeline(ctx context.Context, req types.UploadRequest, originalName, storedPath string, c chan<- types.ProcessingDocumentStatus) (*types.UploadResponse, error) {
	text, err := s.pdfService.ExtractAllText(storedPath, func(page, total int) {
		c <- types.ProcessingDocumentStatus{
			Status:         "processing",
			Message:        "Extracting text",
			Progress:       float64(page) / float64(total) * 0.5,
			TotalPages:     total,
			ProcessedPages: page,
		}
	})
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = "gpt-4"
	}
	extractor, ok := s.extractors[model]
	if !ok {
		return nil, fmt.Errorf("unsupported model: %s", model)
	}

	c <- types.ProcessingDocumentStatus{Status: "processing", Message: "Extracting questions", Progress: 0.6}
	records, err := extractor.ExtractQuestions(ctx, text)
	if err != nil {
		return nil, err
	}

	c <- types.ProcessingDocumentStatus{Status: "processing", Message: "Normalizing records", Progress: 0.8}
	canonical, skipped := s.normalizer.NormalizeBatch(records, types.FormatLLM)

	c <- types.ProcessingDocumentStatus{Status: "processing", Message: "Storing questions", Progress: 0.9}
	stored, err := s.ingester.Ingest(ctx, canonical)
	if err != nil {
		return nil, err
	}
	skipped += len(canonical) - stored

	c <- types.ProcessingDocumentStatus{Status: "completed", Message: "Done processing question paper", Progress: 1}
	return &types.UploadResponse{
		OriginalName:    originalName,
		QuestionsParsed: stored,
		RecordsSkipped:  skipped,
		ModelUsed:       model,
	}, nil
}

// UploadMaterial stores a study-material PDF and pushes its chunks into
// the vector store, streaming per-page progress on c.
func (s *FileService) UploadMaterial(ctx context.Context, req types.UploadRequest, file *multipart.FileHeader, c chan<- types.ProcessingDocumentStatus) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return fmt.Errorf("unsupported file type: %s", ext)
	}

	storedPath, err := s.saveUpload(req.Title, ext, file)
	if err != nil {
		return err
	}

	chunkChan := make(chan types.DocumentChunk)
	go func() {
		if err := s.pdfService.ProcessPDF(storedPath, req, chunkChan); err != nil {
			s.logger.Error("material processing failed", "file", file.Filename, "error", err)
		}
	}()

	for chunk := range chunkChan {
		doc := database.Document{
			Content: chunk.Content,
			Metadata: database.Metadata{
				Title:  chunk.Metadata.Title,
				Source: chunk.Metadata.Source,
				Tags:   req.Tags,
				Custom: map[string]string{"page": fmt.Sprintf("%d", chunk.Page)},
			},
			CreatedAt: time.Now().Unix(),
		}
		if err := s.vectorDB.UpsertDocument(ctx, &doc); err != nil {
			return err
		}
		c <- types.ProcessingDocumentStatus{
			Status:         "processing",
			Message:        "Processing document",
			Progress:       float64(chunk.Metadata.PageNum) / float64(chunk.Metadata.TotalPages),
			TotalPages:     chunk.Metadata.TotalPages,
			ProcessedPages: chunk.Metadata.PageNum,
		}
	}
	c <- types.ProcessingDocumentStatus{Status: "completed", Message: "Done processing PDF", Progress: 1}
	return nil
}

// saveUpload writes the multipart file under the upload directory with a
// sanitized, timestamped name and returns the stored path.
func (s *FileService) saveUpload(title, ext string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	base := strings.TrimSuffix(title, ext)
	if base == "" {
		base = strings.TrimSuffix(file.Filename, ext)
	}
	filename := fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext)
	filename = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, filename)

	storedPath := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(storedPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return storedPath, nil
}

// StoredPath resolves a previously uploaded file by its original base
// name, ignoring the timestamp suffix. The newest match wins.
func (s *FileService) StoredPath(baseName string) (string, error) {
	pattern := filepath.Join(s.uploadDir, baseName+"_*.pdf")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no stored file for %q", baseName)
	}
	newest := matches[0]
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newestMod = info.ModTime()
			newest = m
		}
	}
	return newest, nil
}
