package server

import (
	"context"
	"fmt"
	"net/http"

	"tasktrack/internal/api"
	"tasktrack/internal/format"
	"tasktrack/internal/lifecycle"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTaskListQuery(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	total, err := store.Tasks{}.Count(ctx, s.store.DB(), q.Filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	items, err := store.Tasks{}.List(ctx, s.store.DB(), q.Filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, models.TaskPage{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: models.TotalPages(total, q.PageSize),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.loadTask(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeTaskNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req api.TaskRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ctx := r.Context()
	department, err := s.policy.Resolve(identityFromContext(ctx), req.DepartmentID)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
		return
	}
	task := taskFromRequest(req, 0, department)
	created, err := s.tasks.Create(ctx, lifecycle.CreateInput{Task: task, Uploads: req.Uploads})
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
		return
	}

	resp, err := s.loadTask(ctx, created.ID)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeTaskNotFound)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	var req api.TaskRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ctx := r.Context()
	identity := identityFromContext(ctx)
	if !s.authorizeTaskWrite(w, r, id) {
		return
	}
	department, err := s.policy.Resolve(identity, req.DepartmentID)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeLookupNotFound)
		return
	}

	task := taskFromRequest(req, id, department)
	_, err = s.tasks.Update(ctx, lifecycle.UpdateInput{Task: task, Uploads: req.Uploads, RemovedFileIDs: req.RemovedFileIDs})
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeTaskNotFound)
		return
	}

	resp, err := s.loadTask(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeTaskNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if !s.authorizeTaskWrite(w, r, id) {
		return
	}
	if err := s.tasks.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, ErrCodeTaskNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	tasks, err := store.Tasks{}.List(r.Context(), s.store.DB(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="tasks.xlsx"`)
	if err := format.WriteTasksXLSX(w, tasks); err != nil {
		// Headers are already out; the client sees a truncated body.
		s.log().Error("export tasks", "error_code", ErrCodeExportFailed, "error", err)
	}
}

// authorizeTaskWrite checks the caller may change task id, writing the
// error response when not.
func (s *Server) authorizeTaskWrite(w http.ResponseWriter, r *http.Request, id int64) bool {
	existing, err := store.Tasks{}.Get(r.Context(), s.store.DB(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return false
	}
	if existing == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("task %d not found", id), ErrCodeTaskNotFound))
		return false
	}
	if !s.policy.CanModify(identityFromContext(r.Context()), existing.DepartmentID) {
		s.writeErrorReq(w, r, http.StatusForbidden,
			forbiddenCode(fmt.Errorf("task %d belongs to another department", id), ErrCodeForbidden))
		return false
	}
	return true
}

func (s *Server) loadTask(ctx context.Context, id int64) (api.TaskResponse, error) {
	info, err := store.Tasks{}.Get(ctx, s.store.DB(), id)
	if err != nil {
		return api.TaskResponse{}, err
	}
	if info == nil {
		return api.TaskResponse{}, notFoundCode(fmt.Errorf("task %d not found", id), ErrCodeTaskNotFound)
	}
	files, err := store.Files{}.ListByTask(ctx, s.store.DB(), id)
	if err != nil {
		return api.TaskResponse{}, err
	}
	info.Files = files
	return api.TaskResponse{
		TaskInfo:  *info,
		CanModify: s.policy.CanModify(identityFromContext(ctx), info.DepartmentID),
	}, nil
}

func taskFromRequest(req api.TaskRequest, id, departmentID int64) models.Task {
	return models.Task{
		ID:            id,
		Subject:       req.Subject,
		Action:        req.Action,
		DueDate:       req.DueDate,
		CompletedDate: req.CompletedDate,
		Notes:         req.Notes,
		DepartmentID:  departmentID,
		TaskStatusID:  req.TaskStatusID,
	}
}
