package models

// Lookup is a uniquely named reference row.
type Lookup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type (
	// Department owns tasks and groups users.
	Department = Lookup
	// Role is a named permission group assigned to users.
	Role = Lookup
	// TaskStatus is a named workflow state.
	TaskStatus = Lookup
)
