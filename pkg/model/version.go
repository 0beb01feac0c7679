package model

import (
	"time"
)

// Log describes who produced a version and why
type Log struct {
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
	Message  string    `json:"message,omitempty"`
	Date     time.Time `json:"date"`
}

// FileRef points to the Source of a file of a version
type FileRef struct {
	RelativePath string `json:"relativePath"`
	File         Ref    `json:"file"`
}

// Version is one immutable point of a component history
type Version struct {
	Parents               []Ref                  `json:"parents,omitempty"`
	Log                   Log                    `json:"log"`
	Files                 []FileRef              `json:"files,omitempty"`
	FlattenedDependencies []ComponentID          `json:"flattenedDependencies,omitempty"`
	Extensions            map[string]interface{} `json:"extensions,omitempty"`
	OriginID              *ComponentID           `json:"originId,omitempty"`
}

// Hash of the serialized version
func (v *Version) Hash() Ref {
	b, err := v.Serialize()
	if err != nil {
		// a version only holds json-friendly values, except for arbitrary extension data
		return HashBytes([]byte(err.Error()))
	}
	return HashBytes(b)
}

// Type of object
func (v *Version) Type() ObjectType {
	return TypeVersion
}

// Refs to the files and parents of the version
func (v *Version) Refs() []Ref {
	refs := make([]Ref, 0, len(v.Files)+len(v.Parents))
	for _, f := range v.Files {
		refs = append(refs, f.File)
	}
	refs = append(refs, v.Parents...)
	return UniqueRefs(refs)
}

// FileRefs only returns the refs to sources
func (v *Version) FileRefs() []Ref {
	refs := make([]Ref, 0, len(v.Files))
	for _, f := range v.Files {
		refs = append(refs, f.File)
	}
	return UniqueRefs(refs)
}

// Serialize the version
func (v *Version) Serialize() ([]byte, error) {
	return json.Marshal(v)
}

// AddParent records a parent, once
func (v *Version) AddParent(ref Ref) {
	for _, p := range v.Parents {
		if p == ref {
			return
		}
	}
	v.Parents = append(v.Parents, ref)
}

// ValidateVersionOrigin checks that a version belongs to the component it is loaded for
func ValidateVersionOrigin(id ComponentID, v *Version) error {
	if v == nil || v.OriginID == nil {
		return nil
	}
	if v.OriginID.IsEqualWithoutVersion(id) {
		return nil
	}
	// components tagged before their first export carry no scope in their origin
	if !v.OriginID.HasScope() && v.OriginID.IsEqualWithoutScopeAndVersion(id) {
		return nil
	}
	return &OriginMismatchError{
		Version: id.Version,
		Origin:  v.OriginID.StringWithoutVersion(),
		ID:      id.StringWithoutVersion(),
	}
}
