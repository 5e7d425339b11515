package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tasktrack/internal/models"
)

// maxJSONBody caps request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// classifyDecodeJSONError turns a decoder failure into a 400 envelope.
func classifyDecodeJSONError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return badRequestCode(errors.New("request body too large"), ErrCodeRequestTooLarge)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return badRequestCode(errors.New("invalid JSON payload"), ErrCodeInvalidJSON)
	default:
		return badRequestCode(err, ErrCodeInvalidJSON)
	}
}

// decodeJSONReq decodes the body into dst, writing the error response and
// returning false on failure.
func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decodeJSON(w, r, dst)
	if err == nil {
		return true
	}
	s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
	return false
}

func (s *Server) pathIDOrBadRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := requirePathID(r)
	if err == nil {
		return id, true
	}
	s.writeErrorReq(w, r, http.StatusBadRequest, err)
	return 0, false
}

// requirePathID reads the positive {id} route parameter.
func requirePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequestCode(errors.New("invalid id"), ErrCodeInvalidID)
	}
	return id, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// queryInt returns zero for an absent parameter and rejects negatives.
func queryInt(r *http.Request, key string) (int, error) {
	n, err := queryInt64(r, key)
	if err != nil {
		return 0, err
	}
	if int64(int(n)) != n {
		return 0, badRequestCode(errors.New("invalid "+key), ErrCodeInvalidQuery)
	}
	return int(n), nil
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequestCode(errors.New("invalid "+key), ErrCodeInvalidQuery)
	}
	if n < 0 {
		return 0, badRequestCode(errors.New(key+" must be >= 0"), ErrCodeInvalidQuery)
	}
	return n, nil
}

// queryDate parses an optional YYYY-MM-DD filter.
func queryDate(r *http.Request, key string) (*models.Date, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, badRequestCode(errors.New(key+": expected YYYY-MM-DD"), ErrCodeInvalidDateFilter)
	}
	return &d, nil
}
