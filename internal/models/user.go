package models

import (
	"strings"
	"time"
)

// User is an account able to sign in.
type User struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	FirstName          string    `json:"first_name,omitempty"`
	LastName           string    `json:"last_name,omitempty"`
	DepartmentID       *int64    `json:"department_id,omitempty"`
	RoleID             *int64    `json:"role_id,omitempty"`
	RoleName           string    `json:"role_name,omitempty"`
	PasswordHash       string    `json:"-"`
	MustChangePassword bool      `json:"must_change_password"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ScreenName is "First Last" when either name is set, else the username.
func (u User) ScreenName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// Department returns the user's department id, or 0 when unset.
func (u User) Department() int64 {
	if u.DepartmentID == nil {
		return 0
	}
	return *u.DepartmentID
}

// Identity is the claim set for an authenticated caller.
type Identity struct {
	UserID             int64  `json:"user_id"`
	Username           string `json:"username"`
	ScreenName         string `json:"screen_name"`
	RoleName           string `json:"role,omitempty"`
	IsAdmin            bool   `json:"is_admin"`
	DepartmentID       int64  `json:"department_id,omitempty"`
	MustChangePassword bool   `json:"must_change_password"`
}

// IdentityFor builds the claim set for u. adminRole names the elevated role.
func IdentityFor(u User, adminRole string) Identity {
	return Identity{
		UserID:             u.ID,
		Username:           u.Username,
		ScreenName:         u.ScreenName(),
		RoleName:           u.RoleName,
		IsAdmin:            adminRole != "" && strings.EqualFold(u.RoleName, adminRole),
		DepartmentID:       u.Department(),
		MustChangePassword: u.MustChangePassword,
	}
}
