package route

import "github.com/cockroachdb/errors"

var (
	// ErrDuplicateRoute is returned when a method and path are registered twice.
	ErrDuplicateRoute = errors.New("route: duplicate route")

	// ErrInvalidRoute is returned for an empty method or path, or a nil handler.
	ErrInvalidRoute = errors.New("route: invalid route")

	// ErrConflictingPattern is returned when a path pattern names a parameter
	// differently from an already registered pattern at the same position.
	ErrConflictingPattern = errors.New("route: conflicting path pattern")
)
