package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects a mutation before any write is attempted. No ledger
// entry is produced for a rejected mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing entity or ledger entry.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// PersistenceError wraps a failure of the durable storage layer. When it is
// returned, the in-memory state has already been re-synchronized from the
// last durable snapshot.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// CycleKind names the graph in which a cycle was detected.
type CycleKind string

// Graphs guarded against cyclic input at resolution time.
const (
	// CycleRoleInheritance marks a cycle in the role inheritance chain.
	CycleRoleInheritance CycleKind = "role_inheritance"
	// CycleSubCategoryTree marks a cycle in subcategory parent pointers.
	CycleSubCategoryTree CycleKind = "subcategory_tree"
)

// CycleError reports a cycle found while walking role inheritance or the
// subcategory tree. Resolution degrades gracefully (no target / partial
// closure) instead of failing the surrounding aggregation; the error is
// surfaced as a diagnostic only.
type CycleError struct {
	Kind    CycleKind
	StartID string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("cycle detected in %s starting at %s", e.Kind, e.StartID)
}

// UndoError reports a failed undo request. Undo never partially applies: the
// ledger entry stays in its prior state when an UndoError is returned.
type UndoError struct {
	EntryID string
	Reason  string
}

func (e UndoError) Error() string {
	return fmt.Sprintf("undo %s: %s", e.EntryID, e.Reason)
}
