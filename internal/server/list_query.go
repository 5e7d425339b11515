package server

import (
	"fmt"
	"net/http"
	"strings"

	"tasktrack/internal/models"
)

type taskListQuery struct {
	Filter   models.TaskFilter
	Page     int
	PageSize int
}

// parseTaskFilter reads the search filters shared by listing and export.
func parseTaskFilter(r *http.Request) (models.TaskFilter, error) {
	var (
		filter models.TaskFilter
		err    error
	)
	filter.Subject = strings.TrimSpace(r.URL.Query().Get("subject"))
	if filter.DepartmentID, err = queryInt64(r, "department_id"); err != nil {
		return filter, err
	}
	if filter.StatusID, err = queryInt64(r, "status_id"); err != nil {
		return filter, err
	}

	dates := []struct {
		key string
		dst **models.Date
	}{
		{"due_from", &filter.DueFrom},
		{"due_to", &filter.DueTo},
		{"completed_from", &filter.CompletedFrom},
		{"completed_to", &filter.CompletedTo},
	}
	for _, d := range dates {
		if *d.dst, err = queryDate(r, d.key); err != nil {
			return filter, err
		}
	}
	if err := checkRange("due", filter.DueFrom, filter.DueTo); err != nil {
		return filter, err
	}
	if err := checkRange("completed", filter.CompletedFrom, filter.CompletedTo); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseTaskListQuery adds 1-based paging on top of the filters.
func (s *Server) parseTaskListQuery(r *http.Request) (taskListQuery, error) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		return taskListQuery{}, err
	}
	page, err := queryInt(r, "page")
	if err != nil {
		return taskListQuery{}, err
	}
	if page == 0 {
		page = 1
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		return taskListQuery{}, err
	}
	if pageSize == 0 {
		pageSize = s.pageSize
	}
	if pageSize > maxPageSize {
		return taskListQuery{}, badRequestCode(fmt.Errorf("page_size must be <= %d", maxPageSize), ErrCodeInvalidQuery)
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return taskListQuery{Filter: filter, Page: page, PageSize: pageSize}, nil
}

func checkRange(name string, from, to *models.Date) error {
	if from != nil && to != nil && to.Before(*from) {
		return badRequestCode(fmt.Errorf("%s_to must not precede %s_from", name, name), ErrCodeInvalidDateFilter)
	}
	return nil
}
