package preview

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds, usable with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError rejects bad operation input. No state was changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown row or account. No state was changed.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvariantError is returned by Validate when the preview cannot be committed.
type InvariantError struct {
	Message string
	RowIDs  []string
}

func (e *InvariantError) Error() string {
	if len(e.RowIDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.RowIDs, ", "))
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }
