package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tasktrack/internal/fault"
	"tasktrack/internal/store"
)

// multipartOverhead is the room left for boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 64 << 10

// handleUploadTemp stages the multipart field "file" and returns its handle.
func (s *Server) handleUploadTemp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeErrorReq(w, r, http.StatusRequestEntityTooLarge, makeAPIError(http.StatusRequestEntityTooLarge,
				"invalid_argument", ErrCodeRequestTooLarge, fmt.Errorf("file exceeds %d bytes", s.maxUploadBytes)))
			return
		}
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid multipart form"), ErrCodeInvalidArgument))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("no file uploaded"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	staged, err := s.files.StageUpload(r.Context(), file, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeFileNotFound)
		return
	}
	s.log().Debug("upload staged", "name", staged.FileName, "size", staged.Size,
		"user", identityFromContext(r.Context()).Username)
	s.writeJSON(w, http.StatusOK, staged)
}

// handleGetFile streams a stored attachment inline.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	rec, err := store.Files{}.Get(r.Context(), s.store.DB(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if rec == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("file %d not found", id), ErrCodeFileNotFound))
		return
	}

	f, err := s.files.Open(rec.FilePath)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			s.log().Warn("attachment binary missing", "file_id", id, "path", rec.FilePath)
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("file %d not found", id), ErrCodeFileNotFound))
			return
		}
		s.writeServiceError(w, r, err, ErrCodeFileNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", s.files.MediaType())
	w.Header().Set("Content-Disposition", inlineDisposition(rec.Filename))
	if info, err := f.Stat(); err == nil {
		http.ServeContent(w, r, "", info.ModTime(), f)
		return
	}
	if _, err := io.Copy(w, f); err != nil {
		s.log().Debug("stream attachment", "file_id", id, "error", err)
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func inlineDisposition(name string) string {
	return `inline; filename="` + quoteEscaper.Replace(name) + `"`
}
