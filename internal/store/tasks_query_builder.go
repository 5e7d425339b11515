package store

import (
	"strings"

	"tasktrack/internal/models"
)

const taskInfoSelect = `
SELECT t.id, t.subject, t.action, t.due_date, t.completed_date, t.notes, t.department_id, t.task_status_id,
       COALESCE(d.name, ''), COALESCE(s.name, '')
FROM tasks t
LEFT JOIN departments d ON d.id = t.department_id
LEFT JOIN task_statuses s ON s.id = t.task_status_id`

type listQueryBuilder struct {
	filter models.TaskFilter
	query  string
	args   []any
	where  []string
}

func buildListQuery(filter models.TaskFilter) (string, []any) {
	b := &listQueryBuilder{filter: filter, query: taskInfoSelect}
	b.buildWhere()
	b.query += " ORDER BY t.id DESC"
	b.buildPagination()
	return b.query, b.args
}

func buildCountQuery(filter models.TaskFilter) (string, []any) {
	b := &listQueryBuilder{filter: filter, query: "SELECT COUNT(*) FROM tasks t"}
	b.buildWhere()
	return b.query, b.args
}

func (b *listQueryBuilder) buildWhere() {
	b.appendSubject()
	b.appendReferences()
	b.appendDateRanges()

	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

func (b *listQueryBuilder) appendSubject() {
	subject := strings.TrimSpace(b.filter.Subject)
	if subject == "" {
		return
	}
	b.where = append(b.where, "LOWER(t.subject) LIKE ? ESCAPE '\\'")
	b.args = append(b.args, "%"+escapeLike(strings.ToLower(subject))+"%")
}

func (b *listQueryBuilder) appendReferences() {
	if b.filter.DepartmentID > 0 {
		b.where = append(b.where, "t.department_id = ?")
		b.args = append(b.args, b.filter.DepartmentID)
	}
	if b.filter.StatusID > 0 {
		b.where = append(b.where, "t.task_status_id = ?")
		b.args = append(b.args, b.filter.StatusID)
	}
}

func (b *listQueryBuilder) appendDateRanges() {
	b.appendDate("t.due_date >= ?", b.filter.DueFrom)
	b.appendDate("t.due_date <= ?", b.filter.DueTo)
	b.appendDate("t.completed_date >= ?", b.filter.CompletedFrom)
	b.appendDate("t.completed_date <= ?", b.filter.CompletedTo)
}

func (b *listQueryBuilder) appendDate(clause string, value *models.Date) {
	if value == nil || value.IsZero() {
		return
	}
	b.where = append(b.where, clause)
	b.args = append(b.args, value.String())
}

func (b *listQueryBuilder) buildPagination() {
	hasLimit := false
	if b.filter.Limit > 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, b.filter.Limit)
		hasLimit = true
	}
	if b.filter.Offset > 0 {
		if !hasLimit {
			b.query += " LIMIT -1"
		}
		b.query += " OFFSET ?"
		b.args = append(b.args, b.filter.Offset)
	}
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
