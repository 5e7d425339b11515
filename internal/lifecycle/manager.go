// Package lifecycle writes a task together with its attachment graph as one
// unit: task row, File and TaskFile rows, and the binaries on disk.
//
// Row changes and promotions of staged uploads happen inside one transaction.
// A failure rolls the transaction back and moves promoted files back to
// staging. Binaries of removed attachments are deleted only after commit, so
// a crash in between leaves orphaned files rather than dangling rows.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tasktrack/internal/attachstore"
	"tasktrack/internal/fault"
	"tasktrack/internal/metrics"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

// Attachments is the file storage the manager promotes into and deletes from.
type Attachments interface {
	TaskDir(taskID int64) string
	ResolveStaged(tempPath string) (string, error)
	PromoteReversible(tempPath, destinationDirectory, destinationName string) (*attachstore.Promotion, error)
	DeletePermanent(path string) error
	RemoveTaskDir(taskID int64)
}

var _ Attachments = (*attachstore.Store)(nil)

// Options configures a Manager.
type Options struct {
	LookupDelete LookupDeleteMode
	Logger       *slog.Logger
}

// Manager runs task create, update and delete operations.
type Manager struct {
	store        store.Gateway
	files        Attachments
	lookupDelete LookupDeleteMode
	logger       *slog.Logger
}

// CreateInput is a new task plus the staged uploads to attach.
type CreateInput struct {
	Task    models.Task
	Uploads []models.TempUploadedFile
}

// UpdateInput is the new state of a task, uploads to add and attachment
// file ids to remove.
type UpdateInput struct {
	Task           models.Task
	Uploads        []models.TempUploadedFile
	RemovedFileIDs []int64
}

// New returns a Manager.
func New(gw store.Gateway, files Attachments, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.LookupDelete
	if mode == "" {
		mode = LookupDeleteOrphan
	}
	return &Manager{store: gw, files: files, lookupDelete: mode, logger: logger}
}

type stagedUpload struct {
	path string
	name string
}

// Create inserts a task and promotes its uploads.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*models.Task, error) {
	const op = "create task"
	ctx = context.WithoutCancel(ctx)

	task := in.Task
	task.ID = 0
	task.Files = nil
	if err := normalizeTask(&task); err != nil {
		return nil, m.finish(op, fault.E(fault.ValidationFailure, op, err))
	}
	uploads, err := m.prepareUploads(op, in.Uploads)
	if err != nil {
		return nil, m.finish(op, err)
	}

	var promos promotionSet
	err = m.store.WithTx(ctx, func(q store.Querier) error {
		if err := checkReferences(ctx, q, task); err != nil {
			return err
		}
		if err := (store.Tasks{}).Create(ctx, q, &task); err != nil {
			return err
		}
		attached, err := m.attach(ctx, q, task.ID, uploads, &promos)
		if err != nil {
			return err
		}
		task.Files = attached
		return nil
	})
	if err != nil {
		m.revert(op, &promos)
		if task.ID != 0 {
			m.files.RemoveTaskDir(task.ID)
		}
		return nil, m.finish(op, fault.Wrap(fault.TransactionFailure, op, err))
	}
	promos.commit()

	m.logger.Info("task created", "task_id", task.ID, "files", len(task.Files))
	return &task, m.finish(op, nil)
}

// Update rewrites a task, detaches removed files and promotes new uploads.
// A removed file id that is not attached to this task is skipped.
func (m *Manager) Update(ctx context.Context, in UpdateInput) (*models.Task, error) {
	const op = "update task"
	ctx = context.WithoutCancel(ctx)

	task := in.Task
	task.Files = nil
	if task.ID <= 0 {
		return nil, m.finish(op, fault.Errorf(fault.ValidationFailure, op, "task id is required"))
	}
	if err := normalizeTask(&task); err != nil {
		return nil, m.finish(op, fault.E(fault.ValidationFailure, op, err))
	}
	uploads, err := m.prepareUploads(op, in.Uploads)
	if err != nil {
		return nil, m.finish(op, err)
	}

	var (
		promos       promotionSet
		removedPaths []string
	)
	err = m.store.WithTx(ctx, func(q store.Querier) error {
		exists, err := store.Tasks{}.Exists(ctx, q, task.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fault.Errorf(fault.NotFound, op, "task %d not found", task.ID)
		}
		if err := checkReferences(ctx, q, task); err != nil {
			return err
		}
		if err := (store.Tasks{}).Update(ctx, q, &task); err != nil {
			return err
		}

		removedPaths, err = m.detach(ctx, q, task.ID, in.RemovedFileIDs)
		if err != nil {
			return err
		}
		if err := m.dropReplaced(ctx, q, task.ID, uploads); err != nil {
			return err
		}
		if _, err := m.attach(ctx, q, task.ID, uploads, &promos); err != nil {
			return err
		}
		task.Files, err = store.Files{}.ListByTask(ctx, q, task.ID)
		return err
	})
	if err != nil {
		m.revert(op, &promos)
		return nil, m.finish(op, fault.Wrap(fault.TransactionFailure, op, err))
	}
	promos.commit()

	// A removed file whose path was reused by an upload has already been
	// overwritten in place.
	m.deleteBinaries(op, task.ID, promos.without(removedPaths))

	m.logger.Info("task updated", "task_id", task.ID, "added", len(uploads), "removed", len(removedPaths))
	return &task, m.finish(op, nil)
}

// Delete removes a task, its links and file rows, then its binaries.
func (m *Manager) Delete(ctx context.Context, taskID int64) error {
	const op = "delete task"
	ctx = context.WithoutCancel(ctx)

	var paths []string
	err := m.store.WithTx(ctx, func(q store.Querier) error {
		var err error
		paths, err = deleteTaskRows(ctx, q, taskID)
		return err
	})
	if err != nil {
		return m.finish(op, fault.Wrap(fault.TransactionFailure, op, err))
	}

	m.deleteBinaries(op, taskID, paths)
	m.files.RemoveTaskDir(taskID)

	m.logger.Info("task deleted", "task_id", taskID, "files", len(paths))
	return m.finish(op, nil)
}

func (m *Manager) prepareUploads(op string, uploads []models.TempUploadedFile) ([]stagedUpload, error) {
	out := make([]stagedUpload, 0, len(uploads))
	seen := make(map[string]struct{}, len(uploads))
	for _, up := range uploads {
		path, err := m.files.ResolveStaged(up.TempFilePath)
		if err != nil {
			return nil, err
		}
		name, err := attachstore.SafeName(up.FileName)
		if err != nil {
			return nil, fault.E(fault.ValidationFailure, op, err)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fault.Errorf(fault.ValidationFailure, op, "duplicate attachment name %q", name)
		}
		seen[key] = struct{}{}
		out = append(out, stagedUpload{path: path, name: name})
	}
	return out, nil
}

// attach promotes each upload into the task directory and records it.
func (m *Manager) attach(ctx context.Context, q store.Querier, taskID int64, uploads []stagedUpload, promos *promotionSet) ([]models.File, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	dir := m.files.TaskDir(taskID)
	out := make([]models.File, 0, len(uploads))
	for _, up := range uploads {
		p, err := m.files.PromoteReversible(up.path, dir, up.name)
		if err != nil {
			return nil, err
		}
		promos.add(p)

		file := models.File{Filename: up.name, FilePath: p.Path}
		if err := (store.Files{}).Create(ctx, q, &file); err != nil {
			return nil, err
		}
		if err := (store.TaskFiles{}).Create(ctx, q, &models.TaskFile{TaskID: taskID, FileID: file.ID}); err != nil {
			return nil, err
		}
		out = append(out, file)
	}
	return out, nil
}

// detach removes the requested attachments of taskID and returns the paths
// of their binaries.
func (m *Manager) detach(ctx context.Context, q store.Querier, taskID int64, fileIDs []int64) ([]string, error) {
	var paths []string
	seen := make(map[int64]struct{}, len(fileIDs))
	for _, fileID := range fileIDs {
		if _, dup := seen[fileID]; dup {
			continue
		}
		seen[fileID] = struct{}{}

		link, err := store.TaskFiles{}.FindByTaskAndFile(ctx, q, taskID, fileID)
		if err != nil {
			return nil, err
		}
		if link == nil {
			m.logger.Debug("skip removal of unattached file", "task_id", taskID, "file_id", fileID)
			continue
		}
		file, err := store.Files{}.Get(ctx, q, fileID)
		if err != nil {
			return nil, err
		}
		if err := (store.TaskFiles{}).Delete(ctx, q, link.ID); err != nil {
			return nil, err
		}
		if err := (store.Files{}).Delete(ctx, q, fileID); err != nil {
			return nil, err
		}
		if file != nil {
			paths = append(paths, file.FilePath)
		}
	}
	return paths, nil
}

// dropReplaced removes rows of current attachments whose binary an upload is
// about to overwrite, so each path keeps exactly one File row.
func (m *Manager) dropReplaced(ctx context.Context, q store.Querier, taskID int64, uploads []stagedUpload) error {
	if len(uploads) == 0 {
		return nil
	}
	current, err := store.Files{}.ListByTask(ctx, q, taskID)
	if err != nil {
		return err
	}
	byPath := make(map[string]models.File, len(current))
	for _, f := range current {
		byPath[filepath.Clean(f.FilePath)] = f
	}

	dir := m.files.TaskDir(taskID)
	for _, up := range uploads {
		existing, ok := byPath[filepath.Join(dir, up.name)]
		if !ok {
			continue
		}
		link, err := store.TaskFiles{}.FindByTaskAndFile(ctx, q, taskID, existing.ID)
		if err != nil {
			return err
		}
		if link != nil {
			if err := (store.TaskFiles{}).Delete(ctx, q, link.ID); err != nil {
				return err
			}
		}
		if err := (store.Files{}).Delete(ctx, q, existing.ID); err != nil {
			return err
		}
		m.logger.Debug("replace attachment", "task_id", taskID, "file_id", existing.ID, "name", up.name)
	}
	return nil
}

// deleteTaskRows deletes links, files and the task row, in that order, and
// returns the binaries to remove after commit.
func deleteTaskRows(ctx context.Context, q store.Querier, taskID int64) ([]string, error) {
	exists, err := store.Tasks{}.Exists(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fault.Errorf(fault.NotFound, "delete task", "task %d not found", taskID)
	}

	links, err := store.TaskFiles{}.ListByTask(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := (store.TaskFiles{}).DeleteByTask(ctx, q, taskID); err != nil {
		return nil, err
	}

	fileIDs := make([]int64, 0, len(links))
	for _, link := range links {
		fileIDs = append(fileIDs, link.FileID)
	}
	files, err := store.Files{}.GetByIDs(ctx, q, fileIDs)
	if err != nil {
		return nil, err
	}
	if _, err := (store.Files{}).DeleteByIDs(ctx, q, fileIDs); err != nil {
		return nil, err
	}
	if err := (store.Tasks{}).Delete(ctx, q, taskID); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.FilePath)
	}
	return paths, nil
}

func checkReferences(ctx context.Context, q store.Querier, task models.Task) error {
	ok, err := store.Departments().Exists(ctx, q, task.DepartmentID)
	if err != nil {
		return err
	}
	if !ok {
		return fault.Errorf(fault.NotFound, "check task references", "department %d not found", task.DepartmentID)
	}
	ok, err = store.TaskStatuses().Exists(ctx, q, task.TaskStatusID)
	if err != nil {
		return err
	}
	if !ok {
		return fault.Errorf(fault.NotFound, "check task references", "status %d not found", task.TaskStatusID)
	}
	return nil
}

func normalizeTask(task *models.Task) error {
	task.Subject = strings.TrimSpace(task.Subject)
	task.Action = strings.TrimSpace(task.Action)
	task.Notes = strings.TrimSpace(task.Notes)

	switch {
	case task.Subject == "":
		return fmt.Errorf("subject is required")
	case len(task.Subject) > models.MaxSubjectLength:
		return fmt.Errorf("subject must be at most %d characters", models.MaxSubjectLength)
	case task.Action == "":
		return fmt.Errorf("action is required")
	case task.DueDate.IsZero():
		return fmt.Errorf("due date is required")
	case len(task.Notes) > models.MaxNotesLength:
		return fmt.Errorf("notes must be at most %d characters", models.MaxNotesLength)
	case task.DepartmentID <= 0:
		return fmt.Errorf("department is required")
	case task.TaskStatusID <= 0:
		return fmt.Errorf("status is required")
	}
	if task.CompletedDate != nil && task.CompletedDate.IsZero() {
		task.CompletedDate = nil
	}
	return nil
}

func (m *Manager) revert(op string, promos *promotionSet) {
	if err := promos.revert(); err != nil {
		m.logger.Error("revert promoted attachments", "op", op, "error", err)
	}
}

// deleteBinaries removes files after commit. Failures are logged only.
func (m *Manager) deleteBinaries(op string, taskID int64, paths []string) {
	for _, p := range paths {
		if err := m.files.DeletePermanent(p); err != nil {
			metrics.AttachmentCleanupFailures.Inc()
			m.logger.Warn("attachment left on disk after commit", "op", op, "task_id", taskID, "path", p, "error", err)
		}
	}
}

func (m *Manager) finish(op string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
		m.logger.Debug("lifecycle operation failed", "op", op, "kind", fault.KindOf(err).String(), "error", err)
	}
	metrics.LifecycleOperations.WithLabelValues(op, result).Inc()
	return err
}
