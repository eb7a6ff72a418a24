package handler

import "github.com/freightport/backend/internal/interfaces/http/dto"

// Swagger-only envelopes. They describe dto.Response with a concrete Data
// type so the generated schema shows each endpoint's payload.

// APIResponse is a success envelope carrying T
type APIResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorResponse is the body of every 4xx and 5xx reply
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

// CountData is the payload of the unread and mark-all counters
type CountData struct {
	Count int64 `json:"count" example:"3"`
}
