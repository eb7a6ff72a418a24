package testutil

import (
	"encoding/json"
	"testing"

	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/require"
)

// Envelope is the JSON body every API response is wrapped in
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

// Decode unmarshals the data member into v
func (e Envelope) Decode(t *testing.T, v any) {
	t.Helper()
	require.NotEmpty(t, e.Data, "response has no data")
	require.NoError(t, json.Unmarshal(e.Data, v))
}

// ErrorCode returns the error code, or "" for a success
func (e Envelope) ErrorCode() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

// DecodeAs unmarshals the data member of an envelope into a T
func DecodeAs[T any](t *testing.T, e Envelope) T {
	t.Helper()
	var out T
	e.Decode(t, &out)
	return out
}
