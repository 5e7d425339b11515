package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message == "":
		return fmt.Sprintf("tasktrack api: HTTP %d", e.Status)
	case e.Code == "":
		return e.Message
	default:
		return e.Code + ": " + e.Message
	}
}

// decodeError reads the envelope; a body that is not one falls back to the
// HTTP status line.
func decodeError(resp *http.Response) error {
	out := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var body ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return out
	}
	out.Code, out.ErrorCode = body.Code, body.ErrorCode
	if body.Error != "" {
		out.Message = body.Error
	}
	return out
}
