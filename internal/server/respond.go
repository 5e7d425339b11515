package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasktrack/internal/api"
	internalauth "tasktrack/internal/auth"
	"tasktrack/internal/fault"
)

// apiError carries the HTTP status and envelope codes for err. message, when
// set, replaces err's text in the response body.
type apiError struct {
	status  int
	code    string
	errCode int
	err     error
	message string
}

func (e apiError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error { return e.err }

// makeAPIError wraps err unless it already carries a status.
func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	var existing apiError
	if errors.As(err, &existing) && existing.status != 0 {
		return existing
	}
	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func forbiddenCode(err error, code int) error {
	return makeAPIError(http.StatusForbidden, "forbidden", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err)
}

// classifyFault maps a fault kind onto the HTTP envelope. notFoundErrCode is
// the numeric code for whatever the handler was looking up.
func classifyFault(err error, notFoundErrCode int) error {
	var existing apiError
	if errors.As(err, &existing) {
		return existing
	}

	out := apiError{err: err, message: fault.Message(err)}
	switch fault.KindOf(err) {
	case fault.NotFound:
		out.status, out.code, out.errCode = http.StatusNotFound, "not_found", notFoundErrCode
	case fault.ValidationFailure:
		out.status, out.code, out.errCode = http.StatusBadRequest, "invalid_argument", ErrCodeInvalidArgument
		if errors.Is(err, internalauth.ErrWeakPassword) {
			out.errCode = ErrCodeWeakPassword
		}
	case fault.UnsupportedMediaType:
		out.status, out.code, out.errCode = http.StatusUnsupportedMediaType, "unsupported_media_type", ErrCodeUnsupportedMediaType
	case fault.Conflict:
		out.status, out.code, out.errCode = http.StatusConflict, "conflict", ErrCodeConflict
	case fault.Forbidden:
		out.status, out.code, out.errCode = http.StatusForbidden, "forbidden", ErrCodeForbidden
	case fault.Unauthorized:
		out.status, out.code, out.errCode = http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized
	case fault.IOFailure:
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStorageFailure, err)
	case fault.TransactionFailure:
		return storeFailure(err)
	default:
		return internalError(err)
	}
	return out
}

// envelope resolves the body fields for err written with status.
func envelope(status int, err error) api.ErrorResponse {
	defaults := statusDefaults[status]
	resp := api.ErrorResponse{Error: err.Error(), Code: defaults.code, ErrorCode: defaults.errCode}
	var apiErr apiError
	if errors.As(err, &apiErr) {
		if apiErr.code != "" {
			resp.Code = apiErr.code
		}
		if apiErr.errCode > 0 {
			resp.ErrorCode = apiErr.errCode
		}
		if apiErr.message != "" {
			resp.Error = apiErr.message
		}
	}
	if status >= 500 {
		resp.Error = "internal error"
	}
	return resp
}

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	resp := envelope(status, err)

	fields := []any{"status", status, "code", resp.Code, "error_code", resp.ErrorCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}
	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundErrCode int) {
	err = classifyFault(err, notFoundErrCode)
	status := http.StatusInternalServerError
	var apiErr apiError
	if errors.As(err, &apiErr) {
		status = apiErr.status
	}
	s.writeErrorReq(w, r, status, err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}
