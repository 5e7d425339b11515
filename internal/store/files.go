package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

// Files is the attachment file repository.
type Files struct{}

// Create inserts file and fills its id.
func (Files) Create(ctx context.Context, q Querier, file *models.File) error {
	const op = "create file"
	if strings.TrimSpace(file.Filename) == "" {
		return fault.Errorf(fault.ValidationFailure, op, "filename is required")
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return fault.Errorf(fault.ValidationFailure, op, "file path is required")
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO files (filename, file_path, created_at) VALUES (?, ?, ?)
	`, file.Filename, file.FilePath, formatTime(time.Now()))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	file.ID = id
	return nil
}

// Get returns a file by id, or nil.
func (Files) Get(ctx context.Context, q Querier, id int64) (*models.File, error) {
	row := q.QueryRowContext(ctx, "SELECT id, filename, file_path FROM files WHERE id = ?", id)
	return scanFile(row)
}

// GetByIDs returns the files with the given ids, ordered by id.
func (Files) GetByIDs(ctx context.Context, q Querier, ids []int64) ([]models.File, error) {
	if len(ids) == 0 {
		return []models.File{}, nil
	}
	rows, err := q.QueryContext(ctx,
		"SELECT id, filename, file_path FROM files WHERE id IN ("+placeholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

// ListByTask returns files attached to taskID, ordered by id.
func (Files) ListByTask(ctx context.Context, q Querier, taskID int64) ([]models.File, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT f.id, f.filename, f.file_path
		FROM files f
		JOIN task_files tf ON tf.file_id = f.id
		WHERE tf.task_id = ?
		ORDER BY f.id
	`, taskID)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

// Delete removes one file row.
func (Files) Delete(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, "delete file", id)
}

// DeleteByIDs removes the given file rows and returns how many were deleted.
func (Files) DeleteByIDs(ctx context.Context, q Querier, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := q.ExecContext(ctx, "DELETE FROM files WHERE id IN ("+placeholders(len(ids))+")", int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count returns the number of file rows.
func (Files) Count(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&n)
	return n, err
}

func collectFiles(rows *sql.Rows) ([]models.File, error) {
	defer rows.Close()
	out := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *file)
	}
	return out, rows.Err()
}

func scanFile(row scanner) (*models.File, error) {
	var file models.File
	if err := row.Scan(&file.ID, &file.Filename, &file.FilePath); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// TaskFiles is the task-to-file association repository.
type TaskFiles struct{}

// Create inserts link and fills its id.
func (TaskFiles) Create(ctx context.Context, q Querier, link *models.TaskFile) error {
	result, err := q.ExecContext(ctx, "INSERT INTO task_files (task_id, file_id) VALUES (?, ?)", link.TaskID, link.FileID)
	if err != nil {
		if isUniqueConstraint(err) {
			return fault.Errorf(fault.Conflict, "link file", "file %d is already attached", link.FileID)
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

// ListByTask returns every link for taskID, ordered by id.
func (TaskFiles) ListByTask(ctx context.Context, q Querier, taskID int64) ([]models.TaskFile, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, task_id, file_id FROM task_files WHERE task_id = ? ORDER BY id", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TaskFile{}
	for rows.Next() {
		var link models.TaskFile
		if err := rows.Scan(&link.ID, &link.TaskID, &link.FileID); err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// FindByTaskAndFile returns the link between taskID and fileID, or nil.
func (TaskFiles) FindByTaskAndFile(ctx context.Context, q Querier, taskID, fileID int64) (*models.TaskFile, error) {
	var link models.TaskFile
	err := q.QueryRowContext(ctx,
		"SELECT id, task_id, file_id FROM task_files WHERE task_id = ? AND file_id = ?", taskID, fileID).
		Scan(&link.ID, &link.TaskID, &link.FileID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Delete removes one link by its own id.
func (TaskFiles) Delete(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM task_files WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, "delete task file", id)
}

// DeleteByTask removes every link for taskID.
func (TaskFiles) DeleteByTask(ctx context.Context, q Querier, taskID int64) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM task_files WHERE task_id = ?", taskID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByTask returns how many files are linked to taskID.
func (TaskFiles) CountByTask(ctx context.Context, q Querier, taskID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM task_files WHERE task_id = ?", taskID).Scan(&n)
	return n, err
}
