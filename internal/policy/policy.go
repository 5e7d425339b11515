// Package policy decides which department a caller may file a task under
// and whether they may change an existing task.
package policy

import (
	"fmt"
	"strings"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

// ForeignDepartmentMode controls whether a non-admin may explicitly pick a
// department other than their own.
type ForeignDepartmentMode string

const (
	ForeignDepartmentAllow  ForeignDepartmentMode = "allow"
	ForeignDepartmentReject ForeignDepartmentMode = "reject"
)

// ParseForeignDepartmentMode parses a configured mode. Empty means allow.
func ParseForeignDepartmentMode(value string) (ForeignDepartmentMode, error) {
	switch mode := ForeignDepartmentMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return ForeignDepartmentAllow, nil
	case ForeignDepartmentAllow, ForeignDepartmentReject:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid foreign department mode %q (allowed: allow, reject)", value)
	}
}

// ResolveEffectiveDepartment returns the department a task is written under.
// Admin requests pass through unchanged. For everyone else a missing request
// falls back to the caller's own department.
func ResolveEffectiveDepartment(isAdmin bool, callerDepartmentID, requestedDepartmentID int64) int64 {
	if isAdmin {
		return requestedDepartmentID
	}
	if requestedDepartmentID <= 0 {
		return callerDepartmentID
	}
	return requestedDepartmentID
}

// IsSameDepartment is true only when both ids are set and equal.
func IsSameDepartment(callerDepartmentID, taskDepartmentID int64) bool {
	return callerDepartmentID != 0 && taskDepartmentID != 0 && callerDepartmentID == taskDepartmentID
}

// Policy applies the configured department rules to an identity.
type Policy struct {
	ForeignDepartment ForeignDepartmentMode
}

// Resolve returns the effective department for a write by id.
func (p Policy) Resolve(id models.Identity, requestedDepartmentID int64) (int64, error) {
	effective := ResolveEffectiveDepartment(id.IsAdmin, id.DepartmentID, requestedDepartmentID)
	if id.IsAdmin || p.ForeignDepartment != ForeignDepartmentReject {
		return effective, nil
	}
	if requestedDepartmentID > 0 && requestedDepartmentID != id.DepartmentID {
		return 0, fault.Errorf(fault.Forbidden, "resolve department",
			"department %d is not your department", requestedDepartmentID)
	}
	return effective, nil
}

// CanModify reports whether id may update or delete a task filed under
// taskDepartmentID.
func (p Policy) CanModify(id models.Identity, taskDepartmentID int64) bool {
	return id.IsAdmin || IsSameDepartment(id.DepartmentID, taskDepartmentID)
}
