package handler

import (
	"io"
	"net/http"

	"github.com/freightport/backend/internal/application/ocr"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// maxOCRFileSize caps a single uploaded scan
const maxOCRFileSize = 8 << 20

// OCRHandler runs document recognition
type OCRHandler struct {
	BaseHandler
	service *ocr.Service
}

// NewOCRHandler creates a new OCR handler
func NewOCRHandler(service *ocr.Service) *OCRHandler {
	return &OCRHandler{service: service}
}

// Recognize godoc
// @ID           recognizeDocument
// @Summary      Recognize a document
// @Description  Send either a multipart file or the key of a file already uploaded. Business licenses yield company_name, license_no, legal_person and address.
// @Tags         ocr
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_type formData string true  "BUSINESS_LICENSE, BILL_OF_LADING or ID_CARD"
// @Param        file          formData file   false "Scan (image)"
// @Param        file_key      formData string false "Key of an uploaded file"
// @Success      200 {object} APIResponse[ocr.ResultDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ocr/recognize [post]
func (h *OCRHandler) Recognize(c *gin.Context) {
	input := ocr.RecognizeInput{
		DocumentType: c.PostForm("document_type"),
		FileKey:      c.PostForm("file_key"),
	}
	if input.DocumentType == "" {
		h.BadRequest(c, "document_type is required")
		return
	}

	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxOCRFileSize {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "File exceeds the 8 MiB limit")
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.BadRequest(c, "Unable to read uploaded file")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxOCRFileSize))
		if err != nil {
			h.BadRequest(c, "Unable to read uploaded file")
			return
		}
		input.Data = data
		input.FileName = fh.Filename
		input.ContentType = fh.Header.Get("Content-Type")
	}

	result, err := h.service.Recognize(c.Request.Context(), actor(c), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
