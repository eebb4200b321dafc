package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
)

const maxUploadSize = 20 << 20

// UploadHandler exposes the two upload flows: question papers into the
// relational pipeline and study materials into the vector store. Both
// stream progress as SSE and finish with a JSON result.
type UploadHandler struct {
	fileService *service.FileService
}

func NewUploadHandler(fileService *service.FileService) *UploadHandler {
	return &UploadHandler{fileService: fileService}
}

// UploadQuestionPaper handles POST /upload.
func (h *UploadHandler) UploadQuestionPaper(c *gin.Context) {
	req, header, ok := h.parseUpload(c)
	if !ok {
		return
	}

	statusChan := make(chan types.ProcessingDocumentStatus)
	resultChan := make(chan uploadResult, 1)
	go func() {
		resp, err := h.fileService.ProcessQuestionPaper(c.Request.Context(), req, header, statusChan)
		resultChan <- uploadResult{resp: resp, err: err}
	}()

	clientGone := c.Writer.CloseNotify()
	for {
		select {
		case <-clientGone:
			return
		case status := <-statusChan:
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		case result := <-resultChan:
			if result.err != nil {
				c.JSON(http.StatusInternalServerError, types.DataResponse{
					Status:  "error",
					Message: result.err.Error(),
				})
			} else {
				c.JSON(http.StatusOK, types.DataResponse{
					Status: "success",
					Data:   result.resp,
				})
			}
			return
		}
	}
}

// UploadMaterial handles POST /materials/upload.
func (h *UploadHandler) UploadMaterial(c *gin.Context) {
	req, header, ok := h.parseUpload(c)
	if !ok {
		return
	}

	statusChan := make(chan types.ProcessingDocumentStatus)
	errChan := make(chan error, 1)
	go func() {
		errChan <- h.fileService.UploadMaterial(c.Request.Context(), req, header, statusChan)
	}()

	clientGone := c.Writer.CloseNotify()
	for {
		select {
		case <-clientGone:
			return
		case status := <-statusChan:
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		case err := <-errChan:
			if err != nil {
				c.JSON(http.StatusInternalServerError, types.DataResponse{
					Status:  "error",
					Message: err.Error(),
				})
			} else {
				c.JSON(http.StatusOK, types.DataResponse{
					Status: "success",
					Data:   types.UploadResponse{OriginalName: req.Title},
				})
			}
			return
		}
	}
}

type uploadResult struct {
	resp *types.UploadResponse
	err  error
}

func (h *UploadHandler) parseUpload(c *gin.Context) (types.UploadRequest, *multipart.FileHeader, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid file",
		})
		return types.UploadRequest{}, nil, false
	}
	file.Close()

	var req types.UploadRequest
	if metadata := c.Request.FormValue("metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "Invalid metadata",
			})
			return types.UploadRequest{}, nil, false
		}
	}
	if req.Title == "" {
		req.Title = header.Filename
	}

	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "File too large",
		})
		return types.UploadRequest{}, nil, false
	}
	return req, header, true
}
