// Package status declares error codes returned by the objects package
package status

import (
	"github.com/oneconcern/scope/pkg/errors"
)

var (
	// ErrHashNotFound is returned when an object is required but absent from the repository
	ErrHashNotFound = errors.New("hash not found")

	// ErrInvalidIndexJSON is returned when index.json cannot be parsed. Rebuilding the index fixes it.
	ErrInvalidIndexJSON = errors.New("invalid index.json")

	// ErrIndexNotFound is returned when a scope has no index.json
	ErrIndexNotFound = errors.New("index.json not found")

	// ErrObjectCorrupted is returned when a blob cannot be inflated or parsed
	ErrObjectCorrupted = errors.New("corrupted object")

	// ErrWriteObject is returned when an object cannot be written to the storage backend
	ErrWriteObject = errors.New("cannot write object")
)
