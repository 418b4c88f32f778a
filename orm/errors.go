package orm

import (
	"errors"
	"fmt"
)

// Error categories for builder and lifecycle operations.
var (
	// ErrSchemaViolation is returned when a write names an unknown column or a
	// table has no usable primary key.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrTypeConflict is returned when a call implies a statement kind other
	// than the one already fixed on the query.
	ErrTypeConflict = errors.New("query type conflict")

	// ErrGuard is returned for an unconditional delete without force.
	ErrGuard = errors.New("unguarded delete")

	// ErrValidation is returned for invalid limits, directions or empty writes.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when zero rows come back where one was expected.
	ErrNotFound = errors.New("not found")

	// ErrConsistency is returned when a primary key filter matches more than one row.
	ErrConsistency = errors.New("consistency error")

	// ErrDetached is returned when a deleted resource is used again.
	ErrDetached = errors.New("resource detached")
)

// QueryError carries the operation, table and statement a failure belongs to.
type QueryError struct {
	Op        string
	Table     string
	Statement string
	Args      []any
	Err       error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means a missing row or table.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSchemaViolation reports whether err is a schema violation.
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}
