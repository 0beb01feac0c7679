package model

import (
	"fmt"

	"github.com/oneconcern/scope/pkg/errors"
)

var (
	// ErrInvalidComponentID is returned when a component id string cannot be parsed
	ErrInvalidComponentID = errors.New("invalid component id")

	// ErrInvalidLaneID is returned when a lane id string cannot be parsed
	ErrInvalidLaneID = errors.New("invalid lane id")

	// ErrInvalidTag is returned for tags that are not valid semver
	ErrInvalidTag = errors.New("invalid tag")

	// ErrTagExists is returned when a tag already points to another version
	ErrTagExists = errors.New("tag already exists")

	// ErrUnknownObjectType is returned when a blob header carries an unsupported type
	ErrUnknownObjectType = errors.New("unknown object type")

	// ErrInvalidObject is returned when a blob does not have a valid header
	ErrInvalidObject = errors.New("invalid object")

	// ErrInflate is returned when a blob cannot be decompressed
	ErrInflate = errors.New("zlib inflate failed")

	// ErrNoCommonSnap is set on diverge data when two histories share no version
	ErrNoCommonSnap = errors.New("there is no common snap between the local and remote histories")

	// ErrInvalidComponent is returned by ModelComponent validation
	ErrInvalidComponent = errors.New("invalid component")

	// ErrUnexpectedType is returned when a ref resolves to an object of the wrong type
	ErrUnexpectedType = errors.New("unexpected object type")
)

// VersionNotFoundError is returned when a component does not know some version
type VersionNotFoundError struct {
	Version string
	ID      string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q of component %q was not found", e.Version, e.ID)
}

// VersionNotFoundOnFSError is returned when the object of a known version is missing from the repository
type VersionNotFoundOnFSError struct {
	Ref Ref
	ID  string
}

func (e *VersionNotFoundOnFSError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("version object %q was not found on the filesystem", e.Ref)
	}
	return fmt.Sprintf("version object %q of %q was not found on the filesystem", e.Ref, e.ID)
}

// OriginMismatchError is returned when a version is loaded for a component it does not belong to
type OriginMismatchError struct {
	Version string
	Origin  string
	ID      string
}

func (e *OriginMismatchError) Error() string {
	return fmt.Sprintf("version %q seem to be originated from %q, not from %q", e.Version, e.Origin, e.ID)
}
