package server

import (
	"fmt"
	"net/http"

	"tasktrack/internal/api"
	"tasktrack/internal/fault"
	"tasktrack/internal/store"
)

func (s *Server) handleListLookups(kind store.LookupKind) http.HandlerFunc {
	repo := store.Lookups{Kind: kind}
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.List(r.Context(), s.store.DB())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleGetLookup(kind store.LookupKind) http.HandlerFunc {
	repo := store.Lookups{Kind: kind}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathIDOrBadRequest(w, r)
		if !ok {
			return
		}
		item, err := repo.Get(r.Context(), s.store.DB(), id)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if item == nil {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("%s %d not found", kind, id), ErrCodeLookupNotFound))
			return
		}
		s.writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handleCreateLookup(kind store.LookupKind) http.HandlerFunc {
	repo := store.Lookups{Kind: kind}
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LookupRequest
		if !s.decodeJSONReq(w, r, &req) {
			return
		}
		item, err := repo.Create(r.Context(), s.store.DB(), req.Name)
		if err != nil {
			s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
			return
		}
		s.log().Info("lookup created", "kind", kind, "id", item.ID, "by", identityFromContext(r.Context()).Username)
		s.writeJSON(w, http.StatusCreated, item)
	}
}

func (s *Server) handleUpdateLookup(kind store.LookupKind) http.HandlerFunc {
	repo := store.Lookups{Kind: kind}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathIDOrBadRequest(w, r)
		if !ok {
			return
		}
		var req api.LookupRequest
		if !s.decodeJSONReq(w, r, &req) {
			return
		}
		if err := repo.Update(r.Context(), s.store.DB(), id, req.Name); err != nil {
			s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
			return
		}
		item, err := repo.Get(r.Context(), s.store.DB(), id)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, item)
	}
}

// handleDeleteLookup applies the configured delete mode. A restricted
// delete of a referenced row is 409 with its own numeric code.
func (s *Server) handleDeleteLookup(kind store.LookupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathIDOrBadRequest(w, r)
		if !ok {
			return
		}
		result, err := s.tasks.DeleteLookup(r.Context(), kind, id)
		if err != nil {
			if fault.Is(err, fault.Conflict) {
				apiErr := apiError{status: http.StatusConflict, code: "conflict", errCode: ErrCodeLookupInUse,
					err: err, message: fault.Message(err)}
				s.writeErrorReq(w, r, http.StatusConflict, apiErr)
				return
			}
			s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}
