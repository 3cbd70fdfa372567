package attachment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	storageservice "telecare-backend/internal/service/storage"
	"telecare-backend/pkg/response"
)

// Handler handles attachment HTTP requests
type Handler struct {
	storageService *storageservice.Service
}

// NewHandler creates a new attachment handler
func NewHandler(storageService *storageservice.Service) *Handler {
	return &Handler{storageService: storageService}
}

// Upload stores an attachment ahead of the message that will carry it.
// The returned id is later referenced from a chat_message frame, which
// claims the attachment for the new message.
// POST /v1/attachments  (multipart/form-data, field "file")
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ValidationError(c, "file field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ValidationError(c, "unreadable file")
		return
	}
	defer file.Close()

	attachment, err := h.storageService.Upload(c.Request.Context(), &storageservice.UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, attachment)
}

// DownloadURL returns a short-lived presigned URL for an attachment
// GET /v1/attachments/:attachmentID/url
func (h *Handler) DownloadURL(c *gin.Context) {
	attachmentID, err := strconv.ParseInt(c.Param("attachmentID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid attachment id")
		return
	}

	url, err := h.storageService.DownloadURL(c.Request.Context(), attachmentID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}
