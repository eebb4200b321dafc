package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CorsHandler struct{}

func NewCorsHandler() *CorsHandler {
	return &CorsHandler{}
}

// CorsMiddleware opens the API to browser clients. The API is read/write
// over GET and POST only; Last-Event-ID lets SSE doubt streams reconnect,
// and Content-Disposition is exposed so downloads of extraction archives
// keep their filenames.
func (h *CorsHandler) CorsMiddleware(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Last-Event-ID")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
