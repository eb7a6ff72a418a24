package handler

import (
	"github.com/freightport/backend/internal/application/files"
	"github.com/gin-gonic/gin"
)

// UploadURLRequest asks for a presigned upload
type UploadURLRequest struct {
	Purpose     string `json:"purpose" binding:"required,oneof=license document ocr"`
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required,max=100" example:"image/jpeg"`
}

// FileHandler issues presigned storage URLs
type FileHandler struct {
	BaseHandler
	service *files.Service
}

// NewFileHandler creates a new file handler
func NewFileHandler(service *files.Service) *FileHandler {
	return &FileHandler{service: service}
}

// UploadURL godoc
// @ID           createUploadURL
// @Summary      Presigned upload URL
// @Description  PUT the file to the returned URL, then pass the key to the endpoint that needs it
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        request body UploadURLRequest true "File to upload"
// @Success      200 {object} APIResponse[common.PresignedURL]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /files/upload-url [post]
func (h *FileHandler) UploadURL(c *gin.Context) {
	var req UploadURLRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.service.UploadURL(c.Request.Context(), actor(c), files.UploadInput{
		Purpose:     req.Purpose,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, u)
}

// DownloadURL godoc
// @ID           createDownloadURL
// @Summary      Presigned download URL
// @Tags         files
// @Produce      json
// @Param        key query string true "Storage key"
// @Success      200 {object} APIResponse[common.PresignedURL]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /files/download-url [get]
func (h *FileHandler) DownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		h.BadRequest(c, "key is required")
		return
	}
	u, err := h.service.DownloadURL(c.Request.Context(), actor(c), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, u)
}
