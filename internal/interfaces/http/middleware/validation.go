package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

var setupOnce sync.Once

// SetupValidator installs the freight tags on gin's validator. Safe to call
// more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			RegisterValidations(v)
		}
	})
}

// RegisterValidations reports fields by their wire name and adds the
// container_no and unlocode tags.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(wireName)
	_ = v.RegisterValidation("container_no", upperTrimmed(shipment.IsValidContainerNumber))
	_ = v.RegisterValidation("unlocode", upperTrimmed(order.IsUNLocode))
}

func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

func upperTrimmed(check func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return check(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	}
}

// FormatValidationErrors turns a bind error into the VALIDATION_ERROR body.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dto.Invalid("Invalid request body", requestID, nil)
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{
			Field:   fe.Field(),
			Message: describe(fe),
			Tag:     fe.Tag(),
		})
	}
	return dto.Invalid("Request validation failed", requestID, details)
}

// HandleValidationError writes 413 for oversized bodies and 400 otherwise.
func HandleValidationError(c *gin.Context, err error) {
	reqID := GetRequestID(c)
	if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
			dto.Fail(dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size", reqID))
		return
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, reqID))
}

// GetRequestID extracts the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

var fixedMessages = map[string]string{
	"required":     "This field is required",
	"email":        "Invalid email format",
	"uuid":         "Invalid UUID format",
	"numeric":      "Must be numeric",
	"alphanum":     "Must be alphanumeric",
	"container_no": "Invalid container number (ISO 6346 check digit)",
	"unlocode":     "Must be a 5-letter UN/LOCODE such as CNSHA",
}

var boundMessages = map[string]string{
	"len":   "Must be exactly %s characters",
	"oneof": "Must be one of: %s",
	"gte":   "Must be greater than or equal to %s",
	"lte":   "Must be less than or equal to %s",
	"gt":    "Must be greater than %s",
	"lt":    "Must be less than %s",
}

func describe(fe validator.FieldError) string {
	tag := fe.Tag()
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	if format, ok := boundMessages[tag]; ok {
		return fmt.Sprintf(format, fe.Param())
	}
	switch tag {
	case "min", "max":
		word := map[string]string{"min": "least", "max": "most"}[tag]
		msg := fmt.Sprintf("Must be at %s %s", word, fe.Param())
		if fe.Kind() == reflect.String {
			msg += " characters"
		}
		return msg
	}
	return "Invalid value"
}
