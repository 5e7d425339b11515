package models

// Task is a tracked unit of work owned by a department and carrying a status.
type Task struct {
	ID            int64  `json:"id"`
	Subject       string `json:"subject"`
	Action        string `json:"action"`
	DueDate       Date   `json:"due_date"`
	CompletedDate *Date  `json:"completed_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
	DepartmentID  int64  `json:"department_id"`
	TaskStatusID  int64  `json:"task_status_id"`
	Files         []File `json:"files,omitempty"`
}

// TaskInfo is a task row joined with its department and status names.
type TaskInfo struct {
	Task
	DepartmentName string `json:"department_name,omitempty"`
	StatusName     string `json:"status_name,omitempty"`
}

// TaskFilter narrows task listings. Zero values mean "no constraint".
type TaskFilter struct {
	Subject       string
	DepartmentID  int64
	StatusID      int64
	DueFrom       *Date
	DueTo         *Date
	CompletedFrom *Date
	CompletedTo   *Date
	Limit         int
	Offset        int
}

// TaskPage is one page of a filtered listing.
type TaskPage struct {
	Items      []TaskInfo `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// TotalPages returns how many pages of size pageSize hold total rows.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
