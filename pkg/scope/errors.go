package scope

import (
	"fmt"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// SnapNotFoundError is returned when the version object of a snap is absent from the repository
type SnapNotFoundError struct {
	Hash model.Ref
	ID   model.ComponentID
}

func (e *SnapNotFoundError) Error() string {
	return fmt.Sprintf("fatal: snap %q file for component %q was not found in the filesystem", e.Hash.String(), e.ID.String())
}

// Unwrap to the sentinel
func (e *SnapNotFoundError) Unwrap() error {
	return status.ErrSnapNotFound
}
