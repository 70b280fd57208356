package shared

import "errors"

// Domain error kinds shared across modules. Services wrap these with
// fmt.Errorf so callers can match the kind with errors.Is while the
// message still names what was rejected.
var (
	// ErrValidation indicates input rejected before any mutation.
	ErrValidation = errors.New("validation error")
	// ErrConflict indicates a duplicate run or a repeated terminal action.
	ErrConflict = errors.New("conflict")
	// ErrOwnership indicates cross-organization access to an entity.
	ErrOwnership = errors.New("ownership violation")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)
