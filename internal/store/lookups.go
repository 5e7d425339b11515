package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

// LookupKind selects one of the named lookup tables.
type LookupKind string

const (
	KindDepartment LookupKind = "department"
	KindRole       LookupKind = "role"
	KindTaskStatus LookupKind = "status"
)

// ParseLookupKind accepts singular or plural names.
func ParseLookupKind(value string) (LookupKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "department", "departments":
		return KindDepartment, nil
	case "role", "roles":
		return KindRole, nil
	case "status", "statuses", "task_status", "task_statuses":
		return KindTaskStatus, nil
	default:
		return "", fault.Errorf(fault.ValidationFailure, "parse lookup kind", "unknown lookup kind %q", value)
	}
}

func (k LookupKind) table() string {
	switch k {
	case KindDepartment:
		return "departments"
	case KindRole:
		return "roles"
	case KindTaskStatus:
		return "task_statuses"
	default:
		return ""
	}
}

// taskColumn is the tasks column referencing this kind, if any.
func (k LookupKind) taskColumn() string {
	switch k {
	case KindDepartment:
		return "department_id"
	case KindTaskStatus:
		return "task_status_id"
	default:
		return ""
	}
}

// userColumn is the users column referencing this kind, if any.
func (k LookupKind) userColumn() string {
	switch k {
	case KindDepartment:
		return "department_id"
	case KindRole:
		return "role_id"
	default:
		return ""
	}
}

// LookupRefs counts rows that reference one lookup entry.
type LookupRefs struct {
	Tasks int `json:"tasks"`
	Users int `json:"users"`
}

// Total returns the sum of all references.
func (r LookupRefs) Total() int {
	return r.Tasks + r.Users
}

// Lookups is the repository for departments, roles and task statuses.
type Lookups struct {
	Kind LookupKind
}

// Departments returns the department repository.
func Departments() Lookups { return Lookups{Kind: KindDepartment} }

// Roles returns the role repository.
func Roles() Lookups { return Lookups{Kind: KindRole} }

// TaskStatuses returns the task status repository.
func TaskStatuses() Lookups { return Lookups{Kind: KindTaskStatus} }

func (l Lookups) validate() error {
	if l.Kind.table() == "" {
		return fmt.Errorf("unknown lookup kind %q", l.Kind)
	}
	return nil
}

// List returns all entries ordered by name.
func (l Lookups) List(ctx context.Context, q Querier) ([]models.Lookup, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT id, name FROM %s ORDER BY name COLLATE NOCASE, id", l.Kind.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Lookup{}
	for rows.Next() {
		var item models.Lookup
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Get returns one entry, or nil when it does not exist.
func (l Lookups) Get(ctx context.Context, q Querier, id int64) (*models.Lookup, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	row := q.QueryRowContext(ctx, fmt.Sprintf("SELECT id, name FROM %s WHERE id = ?", l.Kind.table()), id)
	return scanLookup(row)
}

// GetByName returns one entry by case-insensitive name, or nil.
func (l Lookups) GetByName(ctx context.Context, q Querier, name string) (*models.Lookup, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	row := q.QueryRowContext(ctx, fmt.Sprintf("SELECT id, name FROM %s WHERE name = ? COLLATE NOCASE", l.Kind.table()), strings.TrimSpace(name))
	return scanLookup(row)
}

// Exists reports whether id is present.
func (l Lookups) Exists(ctx context.Context, q Querier, id int64) (bool, error) {
	item, err := l.Get(ctx, q, id)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

// Create inserts a new entry. Duplicate names fail with fault.Conflict.
func (l Lookups) Create(ctx context.Context, q Querier, name string) (*models.Lookup, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, fault.E(fault.ValidationFailure, "create "+string(l.Kind), err)
	}
	result, err := q.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", l.Kind.table()), name)
	if err != nil {
		if isUniqueConstraint(err) {
			return nil, fault.Errorf(fault.Conflict, "create "+string(l.Kind), "%s %q already exists", l.Kind, name)
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Lookup{ID: id, Name: name}, nil
}

// Update renames an entry.
func (l Lookups) Update(ctx context.Context, q Querier, id int64, name string) error {
	if err := l.validate(); err != nil {
		return err
	}
	op := "update " + string(l.Kind)
	name, err := models.NormalizeName(name)
	if err != nil {
		return fault.E(fault.ValidationFailure, op, err)
	}
	result, err := q.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ?", l.Kind.table()), name, id)
	if err != nil {
		if isUniqueConstraint(err) {
			return fault.Errorf(fault.Conflict, op, "%s %q already exists", l.Kind, name)
		}
		return err
	}
	return requireAffected(result, op, id)
}

// Delete removes an entry. References are not checked here.
func (l Lookups) Delete(ctx context.Context, q Querier, id int64) error {
	if err := l.validate(); err != nil {
		return err
	}
	result, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", l.Kind.table()), id)
	if err != nil {
		return err
	}
	return requireAffected(result, "delete "+string(l.Kind), id)
}

// References counts tasks and users pointing at id.
func (l Lookups) References(ctx context.Context, q Querier, id int64) (LookupRefs, error) {
	var refs LookupRefs
	if err := l.validate(); err != nil {
		return refs, err
	}
	if col := l.Kind.taskColumn(); col != "" {
		if err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM tasks WHERE %s = ?", col), id).Scan(&refs.Tasks); err != nil {
			return refs, err
		}
	}
	if col := l.Kind.userColumn(); col != "" {
		if err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s = ?", col), id).Scan(&refs.Users); err != nil {
			return refs, err
		}
	}
	return refs, nil
}

// ReferencingTaskIDs lists ids of tasks pointing at id.
func (l Lookups) ReferencingTaskIDs(ctx context.Context, q Querier, id int64) ([]int64, error) {
	col := l.Kind.taskColumn()
	if col == "" {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT id FROM tasks WHERE %s = ? ORDER BY id", col), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var taskID int64
		if err := rows.Scan(&taskID); err != nil {
			return nil, err
		}
		ids = append(ids, taskID)
	}
	return ids, rows.Err()
}

// ClearUserReferences nulls the users column pointing at id.
func (l Lookups) ClearUserReferences(ctx context.Context, q Querier, id int64) (int64, error) {
	col := l.Kind.userColumn()
	if col == "" {
		return 0, nil
	}
	result, err := q.ExecContext(ctx, fmt.Sprintf("UPDATE users SET %s = NULL WHERE %s = ?", col, col), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanLookup(row scanner) (*models.Lookup, error) {
	var item models.Lookup
	if err := row.Scan(&item.ID, &item.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
