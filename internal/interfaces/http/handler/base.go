// Package handler holds the gin handlers of the portal API. Handlers bind and
// validate the request, call one application service and render the
// standard response envelope.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// actor returns the authenticated caller
func actor(c *gin.Context) shared.Actor {
	return middleware.MustActor(c)
}

// parseID reads a UUID path parameter. On failure the 400 response is
// already written.
func (h *BaseHandler) parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes a JSON body and answers validation failures
func (h *BaseHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// listQuery carries the paging parameters every list endpoint accepts
type listQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,max=50"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	From     string `form:"from"`
	To       string `form:"to"`
}

// bindFilter builds a repository filter from the query string. keys names
// the extra string filters the endpoint supports; boolKeys are parsed as
// booleans and uuidKeys as UUIDs.
func (h *BaseHandler) bindFilter(c *gin.Context, keys, boolKeys, uuidKeys []string) (shared.Filter, bool) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return shared.Filter{}, false
	}

	filter := shared.Filter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
		Search:   strings.TrimSpace(q.Search),
		Filters:  make(map[string]interface{}),
	}

	var err error
	if filter.From, err = parseDate(q.From, false); err != nil {
		h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD or RFC3339")
		return shared.Filter{}, false
	}
	if filter.To, err = parseDate(q.To, true); err != nil {
		h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD or RFC3339")
		return shared.Filter{}, false
	}

	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			filter.Filters[k] = strings.ToUpper(v)
		}
	}
	for _, k := range boolKeys {
		v := c.Query(k)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "Invalid "+k+" value, expected true or false")
			return shared.Filter{}, false
		}
		filter.Filters[k] = b
	}
	for _, k := range uuidKeys {
		v := c.Query(k)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid "+k+" format")
			return shared.Filter{}, false
		}
		filter.Filters[k] = id
	}

	return filter.Normalize(), true
}

// parseDate accepts a date or an RFC3339 timestamp. A bare date used as an
// upper bound covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

// Page renders a paginated result as items plus meta
func Page[T any](h *BaseHandler, c *gin.Context, page *shared.Paginated[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// reply renders data with status, or err through HandleError
func (h *BaseHandler) reply(c *gin.Context, status int, data any, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(status, dto.OK(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment streams a generated file as a download
func (h *BaseHandler) Attachment(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.Fail(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.HTTPStatus(dto.NormalizeCode(code)), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps domain errors onto their HTTP status. Anything else is
// logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeCode(domainErr.Code)
		status := dto.HTTPStatus(code)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
			logger.L(c.Request.Context()).Error("Request failed", zap.String("code", code), zap.Error(err))
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
