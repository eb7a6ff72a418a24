package dto

import (
	"net/http"
	"strings"
)

// Error codes carried in ErrorInfo.Code. Every code has the ERR_ prefix.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON        = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge    = "ERR_PAYLOAD_TOO_LARGE"

	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked       = "ERR_TOKEN_REVOKED"
	ErrCodeTokenMaxRefresh    = "ERR_TOKEN_MAX_REFRESH"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeAccountLocked      = "ERR_ACCOUNT_LOCKED"
	ErrCodeAccountDisabled    = "ERR_ACCOUNT_DISABLED"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeWechatNotBound      = "ERR_WECHAT_NOT_BOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeAlreadyOnboarded    = "ERR_ALREADY_ONBOARDED"
	ErrCodeAlreadySubscribed   = "ERR_ALREADY_SUBSCRIBED"
	ErrCodeWechatAlreadyBound  = "ERR_WECHAT_ALREADY_BOUND"

	// Business rules refused by the domain, all 422
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"
	ErrCodeCreditLimitExceeded = "ERR_CREDIT_LIMIT_EXCEEDED"
	ErrCodeExceedsOutstanding  = "ERR_EXCEEDS_OUTSTANDING"
	ErrCodeCompanyNotApproved  = "ERR_COMPANY_NOT_APPROVED"
	ErrCodeNotSubscribed       = "ERR_NOT_SUBSCRIBED"
	ErrCodeNotLocked           = "ERR_NOT_LOCKED"
	ErrCodeCannotDisable       = "ERR_CANNOT_DISABLE"

	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"

	// ErrCodeUpstream is a failed call to the tracking, OCR or WeChat APIs
	ErrCodeUpstream           = "ERR_UPSTREAM"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

var statusByCode = func() map[string]int {
	groups := map[int][]string{
		http.StatusBadRequest: {
			ErrCodeValidation, ErrCodeValidationRequired, ErrCodeValidationFormat,
			ErrCodeValidationRange, ErrCodeValidationLength,
			ErrCodeBadRequest, ErrCodeInvalidInput, ErrCodeInvalidJSON,
		},
		http.StatusUnauthorized: {
			ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid,
			ErrCodeTokenRevoked, ErrCodeTokenMaxRefresh, ErrCodeInvalidCredentials,
		},
		http.StatusForbidden: {ErrCodeForbidden, ErrCodeAccountLocked, ErrCodeAccountDisabled},
		http.StatusNotFound:  {ErrCodeNotFound, ErrCodeWechatNotBound},
		http.StatusConflict: {
			ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeConcurrencyConflict,
			ErrCodeAlreadyOnboarded, ErrCodeAlreadySubscribed, ErrCodeWechatAlreadyBound,
		},
		http.StatusRequestEntityTooLarge: {ErrCodePayloadTooLarge},
		http.StatusUnprocessableEntity: {
			ErrCodeInvalidState, ErrCodeBusinessRule, ErrCodeCreditLimitExceeded,
			ErrCodeExceedsOutstanding, ErrCodeCompanyNotApproved, ErrCodeNotSubscribed,
			ErrCodeNotLocked, ErrCodeCannotDisable,
		},
		http.StatusTooManyRequests:     {ErrCodeRateLimited, ErrCodeTooManyRequests},
		http.StatusInternalServerError: {ErrCodeUnknown, ErrCodeInternal},
		http.StatusBadGateway:          {ErrCodeUpstream},
		http.StatusServiceUnavailable:  {ErrCodeServiceUnavailable},
	}
	m := make(map[string]int)
	for status, codes := range groups {
		for _, c := range codes {
			m[c] = status
		}
	}
	return m
}()

// HTTPStatus maps an error code to its response status. Unlisted
// ERR_INVALID_* codes are field-level input errors and get 400; anything
// else unlisted is a 500.
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// domain codes whose ERR_ form is not a plain prefix
var codeAliases = map[string]string{
	"VALIDATION_ERROR": ErrCodeValidation,
	"INTERNAL_ERROR":   ErrCodeInternal,
	"UPSTREAM_ERROR":   ErrCodeUpstream,
	"TOKEN_INVALID":    ErrCodeTokenInvalid,
	"INVALID_TOKEN":    ErrCodeTokenInvalid,
	"TOKEN_REVOKED":    ErrCodeTokenRevoked,
}

// NormalizeCode turns a domain error code into its ERR_ form
func NormalizeCode(code string) string {
	switch {
	case code == "":
		return ErrCodeUnknown
	case strings.HasPrefix(code, "ERR_"):
		return code
	}
	if alias, ok := codeAliases[code]; ok {
		return alias
	}
	return "ERR_" + code
}
