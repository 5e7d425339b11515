package server

import "net/http"

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument      = 1000
	ErrCodeInvalidJSON          = 1001
	ErrCodeRequestTooLarge      = 1002
	ErrCodeInvalidQuery         = 1003
	ErrCodeInvalidID            = 1004
	ErrCodeMissingRequired      = 1009
	ErrCodeInvalidDateFilter    = 1010
	ErrCodeUnsupportedMediaType = 1015
	ErrCodeWeakPassword         = 1016

	// Domain state (2xxx)
	ErrCodeTaskNotFound   = 2001
	ErrCodeFileNotFound   = 2003
	ErrCodeUserNotFound   = 2005
	ErrCodeLookupNotFound = 2006
	ErrCodeRouteNotFound  = 2007
	ErrCodeConflict       = 2102
	ErrCodeLookupInUse    = 2103

	// Auth & limits (3xxx)
	ErrCodeUnauthorized           = 3001
	ErrCodeForbidden              = 3002
	ErrCodeResourceExhausted      = 3003
	ErrCodePasswordChangeRequired = 3004

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeExportFailed   = 4003
	ErrCodeStorageFailure = 4006
)

// statusDefaults supplies the envelope code and numeric code for errors
// that were not built with an explicit apiError.
var statusDefaults = map[int]struct {
	code    string
	errCode int
}{
	http.StatusBadRequest:            {"invalid_argument", ErrCodeInvalidArgument},
	http.StatusUnauthorized:          {"unauthorized", ErrCodeUnauthorized},
	http.StatusForbidden:             {"forbidden", ErrCodeForbidden},
	http.StatusNotFound:              {"not_found", ErrCodeRouteNotFound},
	http.StatusMethodNotAllowed:      {"method_not_allowed", ErrCodeInvalidArgument},
	http.StatusConflict:              {"conflict", ErrCodeConflict},
	http.StatusRequestEntityTooLarge: {"request_too_large", ErrCodeRequestTooLarge},
	http.StatusUnsupportedMediaType:  {"unsupported_media_type", ErrCodeUnsupportedMediaType},
	http.StatusTooManyRequests:       {"resource_exhausted", ErrCodeResourceExhausted},
	http.StatusInternalServerError:   {"internal", ErrCodeInternal},
	http.StatusServiceUnavailable:    {"unavailable", ErrCodeInternal},
}
