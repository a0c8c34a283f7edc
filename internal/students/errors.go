package students

import "errors"

var (
	// ErrStudentNotFound is returned when no student matches the identity or id.
	ErrStudentNotFound = errors.New("student not found")

	// ErrIdentityRequired is returned when an empty messaging identity is supplied.
	ErrIdentityRequired = errors.New("identity is required")
)
