package model

import (
	"strings"
)

const (
	// VersionZero is the version of a component which was never tagged nor snapped
	VersionZero = "0.0.0"

	// VersionLatest resolves to the latest tag of a component
	VersionLatest = "latest"

	versionSep = "@"
	scopeSep   = "/"
)

// ComponentID identifies a component, and optionally one of its versions
type ComponentID struct {
	Scope   string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ParseComponentID parses an id of the form [scope/]name[@version].
//
// When hasScope is true, the first path segment is the scope: "org.ui/forms/input@1.0.0"
// has scope "org.ui" and name "forms/input".
func ParseComponentID(id string, hasScope bool) (ComponentID, error) {
	var res ComponentID
	if id == "" {
		return res, ErrInvalidComponentID.Wrapf("empty id")
	}
	if at := strings.LastIndex(id, versionSep); at >= 0 {
		res.Version = id[at+1:]
		id = id[:at]
		if res.Version == "" {
			return res, ErrInvalidComponentID.Wrapf("empty version in %q", id)
		}
	}
	if hasScope {
		slash := strings.Index(id, scopeSep)
		if slash <= 0 || slash == len(id)-1 {
			return res, ErrInvalidComponentID.Wrapf("%q does not have a scope", id)
		}
		res.Scope = id[:slash]
		id = id[slash+1:]
	}
	if id == "" || strings.HasPrefix(id, scopeSep) || strings.HasSuffix(id, scopeSep) {
		return res, ErrInvalidComponentID.Wrapf("invalid name %q", id)
	}
	res.Name = id
	return res, nil
}

// MustParseComponentID is like ParseComponentID but panics on error
func MustParseComponentID(id string, hasScope bool) ComponentID {
	res, err := ParseComponentID(id, hasScope)
	if err != nil {
		panic(err)
	}
	return res
}

func (id ComponentID) String() string {
	if id.Version == "" {
		return id.StringWithoutVersion()
	}
	return id.StringWithoutVersion() + versionSep + id.Version
}

// StringWithoutVersion returns scope/name
func (id ComponentID) StringWithoutVersion() string {
	if id.Scope == "" {
		return id.Name
	}
	return id.Scope + scopeSep + id.Name
}

// HasScope is true once the component has been exported
func (id ComponentID) HasScope() bool {
	return id.Scope != ""
}

// HasVersion is true when the id points to a specific version
func (id ComponentID) HasVersion() bool {
	return id.Version != "" && id.Version != VersionLatest
}

// ChangeScope returns a copy of the id with another scope
func (id ComponentID) ChangeScope(scope string) ComponentID {
	id.Scope = scope
	return id
}

// ChangeVersion returns a copy of the id with another version
func (id ComponentID) ChangeVersion(version string) ComponentID {
	id.Version = version
	return id
}

// IsEqual compares the full identity, including scope and version
func (id ComponentID) IsEqual(other ComponentID) bool {
	return id == other
}

// IsEqualWithoutVersion compares scope and name only
func (id ComponentID) IsEqualWithoutVersion(other ComponentID) bool {
	return id.Scope == other.Scope && id.Name == other.Name
}

// IsEqualWithoutScopeAndVersion compares names only
func (id ComponentID) IsEqualWithoutScopeAndVersion(other ComponentID) bool {
	return id.Name == other.Name
}

// ComponentIDs is a list of ids
type ComponentIDs []ComponentID

// Search looks for an id, including its version
func (ids ComponentIDs) Search(id ComponentID) (ComponentID, bool) {
	for _, candidate := range ids {
		if candidate.IsEqual(id) {
			return candidate, true
		}
	}
	return ComponentID{}, false
}

// SearchWithoutVersion looks for an id regardless of versions
func (ids ComponentIDs) SearchWithoutVersion(id ComponentID) (ComponentID, bool) {
	for _, candidate := range ids {
		if candidate.IsEqualWithoutVersion(id) {
			return candidate, true
		}
	}
	return ComponentID{}, false
}

// Strings formats all ids
func (ids ComponentIDs) Strings() []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, id.String())
	}
	return res
}
