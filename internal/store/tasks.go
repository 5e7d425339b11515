package store

import (
	"context"
	"database/sql"
	"time"

	"tasktrack/internal/models"
)

// Tasks is the task repository.
type Tasks struct{}

// Create inserts task and fills its id.
func (Tasks) Create(ctx context.Context, q Querier, task *models.Task) error {
	now := formatTime(time.Now())
	result, err := q.ExecContext(ctx, `
		INSERT INTO tasks (subject, action, due_date, completed_date, notes, department_id, task_status_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.Subject, task.Action, task.DueDate.String(), nullDate(task.CompletedDate), nullIfEmpty(task.Notes),
		task.DepartmentID, task.TaskStatusID, now, now)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	task.ID = id
	return nil
}

// Update overwrites every editable column of task.
func (Tasks) Update(ctx context.Context, q Querier, task *models.Task) error {
	result, err := q.ExecContext(ctx, `
		UPDATE tasks
		SET subject = ?, action = ?, due_date = ?, completed_date = ?, notes = ?, department_id = ?, task_status_id = ?, updated_at = ?
		WHERE id = ?
	`, task.Subject, task.Action, task.DueDate.String(), nullDate(task.CompletedDate), nullIfEmpty(task.Notes),
		task.DepartmentID, task.TaskStatusID, formatTime(time.Now()), task.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, "update task", task.ID)
}

// Delete removes one task row. Links must be removed first.
func (Tasks) Delete(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, "delete task", id)
}

// Get returns a task with department and status names, or nil.
func (Tasks) Get(ctx context.Context, q Querier, id int64) (*models.TaskInfo, error) {
	row := q.QueryRowContext(ctx, taskInfoSelect+" WHERE t.id = ?", id)
	return scanTaskInfo(row)
}

// Exists reports whether a task row is present.
func (Tasks) Exists(ctx context.Context, q Querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns tasks matching filter, newest first.
func (Tasks) List(ctx context.Context, q Querier, filter models.TaskFilter) ([]models.TaskInfo, error) {
	query, args := buildListQuery(filter)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TaskInfo{}
	for rows.Next() {
		info, err := scanTaskInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, rows.Err()
}

// Count returns the number of tasks matching filter, ignoring pagination.
func (Tasks) Count(ctx context.Context, q Querier, filter models.TaskFilter) (int, error) {
	query, args := buildCountQuery(filter)
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanTaskInfo(row scanner) (*models.TaskInfo, error) {
	var (
		info      models.TaskInfo
		dueDate   string
		completed sql.NullString
		notes     sql.NullString
	)
	if err := row.Scan(&info.ID, &info.Subject, &info.Action, &dueDate, &completed, &notes,
		&info.DepartmentID, &info.TaskStatusID, &info.DepartmentName, &info.StatusName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var err error
	if info.DueDate, err = scanDate(dueDate); err != nil {
		return nil, err
	}
	if info.CompletedDate, err = scanNullDate(completed); err != nil {
		return nil, err
	}
	info.Notes = notes.String
	return &info, nil
}
