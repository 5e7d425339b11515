package server

import (
	"fmt"
	"net/http"

	"tasktrack/internal/api"
	"tasktrack/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := store.Users{}.List(r.Context(), s.store.DB())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	user, err := store.Users{}.Get(r.Context(), s.store.DB(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if user == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user %d not found", id), ErrCodeUserNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	user, err := s.auth.CreateUser(r.Context(), NewUserInput{
		Username:           req.Username,
		Password:           req.Password,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		DepartmentID:       req.DepartmentID,
		RoleID:             req.RoleID,
		MustChangePassword: req.MustChangePassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}
	s.log().Info("user created", "id", user.ID, "username", user.Username, "by", identityFromContext(r.Context()).Username)
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	var req api.UserUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ctx := r.Context()
	var updated bool
	err := s.store.WithTx(ctx, func(q store.Querier) error {
		user, err := store.Users{}.Get(ctx, q, id)
		if err != nil || user == nil {
			return err
		}
		if err := checkUserReferences(ctx, q, req.DepartmentID, req.RoleID); err != nil {
			return err
		}
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		user.DepartmentID = req.DepartmentID
		user.RoleID = req.RoleID
		updated = true
		return store.Users{}.Update(ctx, q, user)
	})
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}
	if !updated {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user %d not found", id), ErrCodeUserNotFound))
		return
	}

	user, err := store.Users{}.Get(ctx, s.store.DB(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if id == identityFromContext(r.Context()).UserID {
		s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("cannot delete your own account"), ErrCodeConflict))
		return
	}
	if err := (store.Users{}).Delete(r.Context(), s.store.DB(), id); err != nil {
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	var req api.PasswordResetRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := s.auth.ResetPassword(r.Context(), id, req.Password); err != nil {
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
