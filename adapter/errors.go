package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation needs a connection.
	ErrNotConnected = errors.New("adapter not connected")

	// ErrUnsupported is returned when a backend cannot express a statement.
	ErrUnsupported = errors.New("operation not supported by adapter")
)

// UnknownAdapterError is returned when an unknown adapter name is requested.
type UnknownAdapterError struct {
	Name      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter %q (available: %v)", e.Name, e.Available)
}
