package api

import "tasktrack/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// IdentityResponse wraps the signed-in identity.
type IdentityResponse struct {
	Identity  models.Identity `json:"identity"`
	ExpiresAt string          `json:"expires_at,omitempty"`
}

// LookupRequest creates or renames a department, role or status.
type LookupRequest struct {
	Name string `json:"name"`
}

// UserCreateRequest provisions an account.
type UserCreateRequest struct {
	Username           string `json:"username"`
	Password           string `json:"password"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	DepartmentID       *int64 `json:"department_id,omitempty"`
	RoleID             *int64 `json:"role_id,omitempty"`
	MustChangePassword bool   `json:"must_change_password"`
}

// UserUpdateRequest rewrites an account's profile.
type UserUpdateRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DepartmentID *int64 `json:"department_id"`
	RoleID       *int64 `json:"role_id"`
}

// PasswordResetRequest sets a new password that must be changed on next use.
type PasswordResetRequest struct {
	Password string `json:"password"`
}

// TaskRequest is the body of task create and update calls. RemovedFileIDs is
// only honored on update.
type TaskRequest struct {
	Subject        string                    `json:"subject"`
	Action         string                    `json:"action"`
	DueDate        models.Date               `json:"due_date"`
	CompletedDate  *models.Date              `json:"completed_date,omitempty"`
	Notes          string                    `json:"notes,omitempty"`
	DepartmentID   int64                     `json:"department_id,omitempty"`
	TaskStatusID   int64                     `json:"task_status_id"`
	Uploads        []models.TempUploadedFile `json:"uploads,omitempty"`
	RemovedFileIDs []int64                   `json:"removed_file_ids,omitempty"`
}

// TaskResponse is one task with its files and the caller's write permission.
type TaskResponse struct {
	models.TaskInfo
	CanModify bool `json:"can_modify"`
}
