package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

const userSelectSQL = `
SELECT u.id, u.username, u.first_name, u.last_name, u.department_id, u.role_id,
       COALESCE(r.name, ''), u.password_hash, u.must_change_password, u.created_at, u.updated_at
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
`

// Users is the user repository.
type Users struct{}

// Count returns the number of user rows.
func (Users) Count(ctx context.Context, q Querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// List returns all users ordered by username.
func (Users) List(ctx context.Context, q Querier) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, userSelectSQL+" ORDER BY u.username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}

// Get returns a user by id, or nil.
func (Users) Get(ctx context.Context, q Querier, id int64) (*models.User, error) {
	return scanUser(q.QueryRowContext(ctx, userSelectSQL+" WHERE u.id = ?", id))
}

// GetByUsername returns a user by normalized username, or nil.
func (Users) GetByUsername(ctx context.Context, q Querier, username string) (*models.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	return scanUser(q.QueryRowContext(ctx, userSelectSQL+" WHERE u.username = ?", username))
}

// Create inserts user and fills its id and timestamps.
func (Users) Create(ctx context.Context, q Querier, user *models.User) error {
	const op = "create user"
	user.Username = normalizeUsername(user.Username)
	if user.Username == "" {
		return fault.Errorf(fault.ValidationFailure, op, "username is required")
	}
	if strings.TrimSpace(user.PasswordHash) == "" {
		return fault.Errorf(fault.ValidationFailure, op, "password hash is required")
	}

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO users (username, first_name, last_name, department_id, role_id, password_hash, must_change_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.Username, nullIfEmpty(strings.TrimSpace(user.FirstName)), nullIfEmpty(strings.TrimSpace(user.LastName)),
		nullInt64(user.DepartmentID), nullInt64(user.RoleID), user.PasswordHash, boolInt(user.MustChangePassword),
		formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraint(err) {
			return fault.Errorf(fault.Conflict, op, "username %q already exists", user.Username)
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Update writes profile fields. Passwords change through SetPassword.
func (Users) Update(ctx context.Context, q Querier, user *models.User) error {
	const op = "update user"
	user.Username = normalizeUsername(user.Username)
	if user.Username == "" {
		return fault.Errorf(fault.ValidationFailure, op, "username is required")
	}
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, department_id = ?, role_id = ?, must_change_password = ?, updated_at = ?
		WHERE id = ?
	`, user.Username, nullIfEmpty(strings.TrimSpace(user.FirstName)), nullIfEmpty(strings.TrimSpace(user.LastName)),
		nullInt64(user.DepartmentID), nullInt64(user.RoleID), boolInt(user.MustChangePassword), formatTime(now), user.ID)
	if err != nil {
		if isUniqueConstraint(err) {
			return fault.Errorf(fault.Conflict, op, "username %q already exists", user.Username)
		}
		return err
	}
	if err := requireAffected(result, op, user.ID); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// SetPassword stores a new hash and the must-change flag.
func (Users) SetPassword(ctx context.Context, q Querier, id int64, passwordHash string, mustChange bool) error {
	const op = "set password"
	if strings.TrimSpace(passwordHash) == "" {
		return fault.Errorf(fault.ValidationFailure, op, "password hash is required")
	}
	result, err := q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, must_change_password = ?, updated_at = ? WHERE id = ?
	`, passwordHash, boolInt(mustChange), formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	return requireAffected(result, op, id)
}

// Delete removes a user. Sessions cascade.
func (Users) Delete(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, "delete user", id)
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user       models.User
		firstName  sql.NullString
		lastName   sql.NullString
		department sql.NullInt64
		role       sql.NullInt64
		mustChange int
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&user.ID, &user.Username, &firstName, &lastName, &department, &role,
		&user.RoleName, &user.PasswordHash, &mustChange, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.DepartmentID = scanNullInt64(department)
	user.RoleID = scanNullInt64(role)
	user.MustChangePassword = mustChange != 0

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
