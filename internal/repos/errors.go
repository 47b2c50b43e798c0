package repos

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates that no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrIllegalTransition indicates a job state change the lifecycle
	// graph does not allow, including writes against a terminal job.
	ErrIllegalTransition = errors.New("illegal job state transition")
)

// isDuplicate matches unique violations across the postgres and sqlite
// drivers without binding to either error type.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
