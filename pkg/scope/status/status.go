// Package status declares error codes returned by the scope package
package status

import (
	"github.com/oneconcern/scope/pkg/errors"
)

var (
	// ErrScopeNotFound is returned when a directory does not hold a scope
	ErrScopeNotFound = errors.New("scope not found")

	// ErrScopeExists is returned when initializing a scope over an existing one
	ErrScopeExists = errors.New("scope already exists")

	// ErrComponentNotFound is returned when a component is absent from the local scope
	ErrComponentNotFound = errors.New("component not found")

	// ErrLaneExists is returned when creating a lane with the name of an existing one
	ErrLaneExists = errors.New("lane already exists")

	// ErrLaneNotEmpty is returned when removing a lane with components, without force
	ErrLaneNotEmpty = errors.New("lane is not empty")

	// ErrNothingToExport is returned when no component has local changes
	ErrNothingToExport = errors.New("nothing to export")

	// ErrReadOnly is returned when a write is attempted on a read-only scope
	ErrReadOnly = errors.New("scope is read-only")

	// ErrSnapNotFound is returned when the version object of a snap is missing
	ErrSnapNotFound = errors.New("snap not found")

	// ErrPendingExport is returned when the pending objects of an export cannot be read or written
	ErrPendingExport = errors.New("invalid pending export")
)
