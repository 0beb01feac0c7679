package objects

import (
	"fmt"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects/status"
)

// HashNotFoundError is returned when a required object is missing
type HashNotFoundError struct {
	Ref model.Ref
}

func (e *HashNotFoundError) Error() string {
	return fmt.Sprintf("hash %q not found", e.Ref)
}

// Unwrap yields status.ErrHashNotFound
func (e *HashNotFoundError) Unwrap() error {
	return status.ErrHashNotFound
}

// InvalidIndexJSONError is returned when the index file is not valid json
type InvalidIndexJSONError struct {
	Path string
	Err  error
}

func (e *InvalidIndexJSONError) Error() string {
	return fmt.Sprintf("fatal: %s is not a valid JSON file: %v.\nconsider running scope index rebuild to recreate it", e.Path, e.Err)
}

// Unwrap yields the parsing error
func (e *InvalidIndexJSONError) Unwrap() error {
	return e.Err
}

// Is status.ErrInvalidIndexJSON
func (e *InvalidIndexJSONError) Is(target error) bool {
	return target == status.ErrInvalidIndexJSON
}

// CorruptedObjectError is returned when a blob cannot be inflated
type CorruptedObjectError struct {
	Path string
	Err  error
}

func (e *CorruptedObjectError) Error() string {
	return fmt.Sprintf("fatal: zlib.inflate of %q has failed with an error: %q\n"+
		"try running scope import --all-history to fix the corrupted objects", e.Path, e.Err.Error())
}

// Unwrap yields the inflate error
func (e *CorruptedObjectError) Unwrap() error {
	return e.Err
}

// Is status.ErrObjectCorrupted
func (e *CorruptedObjectError) Is(target error) bool {
	return target == status.ErrObjectCorrupted
}
