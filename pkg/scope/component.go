package scope

import (
	"sort"
	"time"

	"github.com/blang/semver"

	"github.com/oneconcern/scope/pkg/model"
)

// ComponentKind tells where a loaded component comes from
type ComponentKind int

// Component kinds
const (
	// InMemory components were fetched from a remote and are not persisted in the local scope
	InMemory ComponentKind = iota

	// PersistedWithHead components are stored locally and have a head snap
	PersistedWithHead

	// PersistedHeadless components are stored locally but their head is unknown or missing
	PersistedHeadless
)

func (k ComponentKind) String() string {
	switch k {
	case InMemory:
		return "in-memory"
	case PersistedWithHead:
		return "persisted"
	case PersistedHeadless:
		return "persisted-headless"
	default:
		return "unknown"
	}
}

// Author of a snap
type Author struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Snap is one point of the history of a component
type Snap struct {
	Hash      model.Ref   `json:"hash"`
	Timestamp time.Time   `json:"timestamp"`
	Parents   []model.Ref `json:"parents,omitempty"`
	Author    Author      `json:"author"`
	Message   string      `json:"message,omitempty"`
}

func snapFromVersion(v *model.Version) *Snap {
	author := Author{DisplayName: v.Log.Username, Email: v.Log.Email}
	if author.DisplayName == "" {
		author.DisplayName = "unknown"
	}
	if author.Email == "" {
		author.Email = "unknown@anywhere"
	}
	return &Snap{
		Hash:      v.Hash(),
		Timestamp: v.Log.Date,
		Parents:   append([]model.Ref(nil), v.Parents...),
		Author:    author,
		Message:   v.Log.Message,
	}
}

// File of a component state
type File struct {
	RelativePath string    `json:"relativePath"`
	Ref          model.Ref `json:"ref"`
	Contents     []byte    `json:"contents,omitempty"`
}

// State is the content of a component at a given version
type State struct {
	Version      *model.Version         `json:"-"`
	Files        []File                 `json:"files"`
	Dependencies []model.ComponentID    `json:"dependencies,omitempty"`
	Extensions   map[string]interface{} `json:"extensions,omitempty"`
}

// File returns a file of the state by relative path
func (s *State) File(relativePath string) (File, bool) {
	for _, f := range s.Files {
		if f.RelativePath == relativePath {
			return f, true
		}
	}
	return File{}, false
}

// Tag is a semver label pointing to a snap
type Tag struct {
	Version semver.Version `json:"version"`
	Hash    model.Ref      `json:"hash"`
}

// TagMap indexes the tags of a component by version string
type TagMap map[string]Tag

func tagMapOf(mc *model.ModelComponent) TagMap {
	tags := make(TagMap, len(mc.Versions)+len(mc.Orphaned))
	add := func(versions map[string]model.Ref) {
		for tag, ref := range versions {
			v, err := semver.Parse(tag)
			if err != nil {
				continue
			}
			tags[v.String()] = Tag{Version: v, Hash: ref}
		}
	}
	add(mc.Versions)
	add(mc.Orphaned)
	return tags
}

// Sorted tags, lowest version first
func (t TagMap) Sorted() []Tag {
	res := make([]Tag, 0, len(t))
	for _, tag := range t {
		res = append(res, tag)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Version.LT(res[j].Version)
	})
	return res
}

// ByHash returns the tag pointing to a snap
func (t TagMap) ByHash(ref model.Ref) (Tag, bool) {
	for _, tag := range t {
		if tag.Hash == ref {
			return tag, true
		}
	}
	return Tag{}, false
}

// Component is a loaded component: its identity, head snap, state at the requested version and tags
type Component struct {
	ID    model.ComponentID
	Kind  ComponentKind
	Head  *Snap
	State *State
	Tags  TagMap

	// HandlerErr aggregates the errors of the on-load handlers which failed for this component
	HandlerErr error

	model *model.ModelComponent
}

// Model is the persisted record of the component
func (c *Component) Model() *model.ModelComponent {
	return c.model
}

// IsRemoved tells if the component was soft-removed
func (c *Component) IsRemoved() bool {
	return c.model != nil && c.model.Removed
}

// LatestTag of the component, or an empty string
func (c *Component) LatestTag() string {
	sorted := c.Tags.Sorted()
	if len(sorted) == 0 {
		return ""
	}
	return sorted[len(sorted)-1].Version.String()
}

// matches tells if the component was loaded for id. Scopes must be equal; an id without version matches any.
func (c *Component) matches(id model.ComponentID) bool {
	if !c.ID.IsEqualWithoutVersion(id) {
		return false
	}
	return !id.HasVersion() || c.ID.Version == id.Version
}
