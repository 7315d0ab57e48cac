package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat_relay/internal/service"
	"chat_relay/pkg/logger"
)

type UploadHandler struct {
	uploadService service.UploadService
	log           logger.Logger
}

func NewUploadHandler(uploadService service.UploadService, log logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		log:           log,
	}
}

// Upload stores a chat attachment and returns the metadata the client
// echoes back in a mssg_type "file" frame.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	result, err := h.uploadService.Upload(c.Request.Context(), fileHeader.Filename, content)
	if err != nil {
		h.log.Error("Upload failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
