package store

import (
	"database/sql"
	"strings"
	"time"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func int64Args(values []int64) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt64(value *int64) any {
	if value == nil || *value == 0 {
		return nil
	}
	return *value
}

func nullDate(value *models.Date) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.String()
}

// storedTimeLayout is fixed width so stored timestamps compare lexically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func scanDate(raw string) (models.Date, error) {
	if raw == "" {
		return models.Date{}, nil
	}
	return models.ParseDate(raw)
}

func scanNullDate(raw sql.NullString) (*models.Date, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanNullInt64(raw sql.NullInt64) *int64 {
	if !raw.Valid {
		return nil
	}
	v := raw.Int64
	return &v
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireAffected turns a zero-row write into a NotFound error.
func requireAffected(result sql.Result, op string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fault.Errorf(fault.NotFound, op, "id %d not found", id)
	}
	return nil
}
