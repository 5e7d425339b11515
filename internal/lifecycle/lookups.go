package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"tasktrack/internal/fault"
	"tasktrack/internal/store"
)

// LookupDeleteMode decides what happens to rows referencing a deleted
// department, role or status.
type LookupDeleteMode string

const (
	// LookupDeleteOrphan deletes the entry and leaves references dangling.
	LookupDeleteOrphan LookupDeleteMode = "orphan"
	// LookupDeleteRestrict refuses to delete a referenced entry.
	LookupDeleteRestrict LookupDeleteMode = "restrict"
	// LookupDeleteCascade deletes referencing tasks and clears user columns.
	LookupDeleteCascade LookupDeleteMode = "cascade"
)

// ParseLookupDeleteMode parses a configured mode. Empty means orphan.
func ParseLookupDeleteMode(value string) (LookupDeleteMode, error) {
	switch mode := LookupDeleteMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return LookupDeleteOrphan, nil
	case LookupDeleteOrphan, LookupDeleteRestrict, LookupDeleteCascade:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid lookup delete mode %q (allowed: orphan, restrict, cascade)", value)
	}
}

// LookupDeleteResult summarizes a lookup deletion.
type LookupDeleteResult struct {
	Mode          LookupDeleteMode `json:"mode"`
	DeletedTasks  []int64          `json:"deleted_tasks,omitempty"`
	ClearedUsers  int64            `json:"cleared_users,omitempty"`
	OrphanedTasks int              `json:"orphaned_tasks,omitempty"`
	OrphanedUsers int              `json:"orphaned_users,omitempty"`
}

// DeleteLookup deletes a department, role or status under the configured mode.
// Cascaded task deletions follow the same row order and post-commit binary
// cleanup as Delete.
func (m *Manager) DeleteLookup(ctx context.Context, kind store.LookupKind, id int64) (*LookupDeleteResult, error) {
	op := "delete " + string(kind)
	ctx = context.WithoutCancel(ctx)
	repo := store.Lookups{Kind: kind}
	result := &LookupDeleteResult{Mode: m.lookupDelete}

	taskPaths := map[int64][]string{}
	err := m.store.WithTx(ctx, func(q store.Querier) error {
		existing, err := repo.Get(ctx, q, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fault.Errorf(fault.NotFound, op, "%s %d not found", kind, id)
		}

		refs, err := repo.References(ctx, q, id)
		if err != nil {
			return err
		}

		switch m.lookupDelete {
		case LookupDeleteRestrict:
			if refs.Total() > 0 {
				return fault.Errorf(fault.Conflict, op, "%s %q is referenced by %d task(s) and %d user(s)",
					kind, existing.Name, refs.Tasks, refs.Users)
			}
		case LookupDeleteCascade:
			taskIDs, err := repo.ReferencingTaskIDs(ctx, q, id)
			if err != nil {
				return err
			}
			for _, taskID := range taskIDs {
				paths, err := deleteTaskRows(ctx, q, taskID)
				if err != nil {
					return err
				}
				taskPaths[taskID] = paths
			}
			result.DeletedTasks = taskIDs
			if result.ClearedUsers, err = repo.ClearUserReferences(ctx, q, id); err != nil {
				return err
			}
		default:
			result.OrphanedTasks = refs.Tasks
			result.OrphanedUsers = refs.Users
		}

		return repo.Delete(ctx, q, id)
	})
	if err != nil {
		return nil, fault.Wrap(fault.TransactionFailure, op, err)
	}

	for taskID, paths := range taskPaths {
		m.deleteBinaries(op, taskID, paths)
		m.files.RemoveTaskDir(taskID)
	}
	m.logger.Info("lookup deleted", "kind", kind, "id", id, "mode", m.lookupDelete,
		"deleted_tasks", len(result.DeletedTasks), "cleared_users", result.ClearedUsers)
	return result, nil
}
