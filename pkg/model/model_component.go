package model

import (
	"context"
	"sort"

	"github.com/blang/semver"
)

// ModelComponent is the persisted identity of a component with its tag history
type ModelComponent struct {
	Scope    string         `json:"scope,omitempty"`
	Name     string         `json:"name"`
	Versions map[string]Ref `json:"versions"`
	Orphaned map[string]Ref `json:"orphanedVersions,omitempty"`
	Head     Ref            `json:"head,omitempty"`

	// RemoteHead is the head of the component on its remote scope, as of the last import or export
	RemoteHead Ref  `json:"remoteHead,omitempty"`
	Removed    bool `json:"removed,omitempty"`

	laneHeadLocal Ref
	divergeData   *DivergeData
}

// NewModelComponent builds an empty component
func NewModelComponent(id ComponentID) *ModelComponent {
	return &ModelComponent{
		Scope:    id.Scope,
		Name:     id.Name,
		Versions: make(map[string]Ref),
	}
}

// ID of the component, without version
func (c *ModelComponent) ID() ComponentID {
	return ComponentID{Scope: c.Scope, Name: c.Name}
}

// ToComponentID returns the id of the component at its head, as a tag if possible
func (c *ModelComponent) ToComponentID() ComponentID {
	return c.ID().ChangeVersion(c.GetHeadAsTagIfExist())
}

// Hash of a component is derived from its identity: a new revision overwrites the previous one.
// The identity is prefixed so that it never collides with a source holding the same bytes.
func (c *ModelComponent) Hash() Ref {
	return HashBytes([]byte("component:" + c.ID().StringWithoutVersion()))
}

// Type of object
func (c *ModelComponent) Type() ObjectType {
	return TypeComponent
}

// Refs to every tagged version and to the head
func (c *ModelComponent) Refs() []Ref {
	refs := make([]Ref, 0, len(c.Versions)+len(c.Orphaned)+2)
	for _, r := range c.Versions {
		refs = append(refs, r)
	}
	for _, r := range c.Orphaned {
		refs = append(refs, r)
	}
	refs = append(refs, c.Head, c.RemoteHead)
	return UniqueRefs(refs)
}

// Serialize the component
func (c *ModelComponent) Serialize() ([]byte, error) {
	if c.Versions == nil {
		c.Versions = make(map[string]Ref)
	}
	return json.Marshal(c)
}

// Validate the component
func (c *ModelComponent) Validate() error {
	if c.Name == "" {
		return ErrInvalidComponent.Wrapf("missing name")
	}
	for tag := range c.Versions {
		if _, err := semver.Parse(tag); err != nil {
			return ErrInvalidComponent.Wrapf("%s: tag %q is not a valid semver", c.ID(), tag)
		}
	}
	if c.Scope != "" && len(c.Versions) == 0 && c.Head.IsEmpty() {
		return ErrInvalidComponent.Wrapf("%s has a scope but does not have any version", c.ID())
	}
	return nil
}

// IsExported tells if the component has been exported to a remote scope
func (c *ModelComponent) IsExported() bool {
	return c.Scope != ""
}

// HasHead is true once the component has been snapped at least once
func (c *ModelComponent) HasHead() bool {
	return !c.Head.IsEmpty()
}

// HasTag tells if the tag exists
func (c *ModelComponent) HasTag(tag string) bool {
	_, ok := c.Versions[tag]
	return ok
}

// Tag a version. Re-tagging the same ref is a no-op.
func (c *ModelComponent) Tag(tag string, ref Ref) error {
	if _, err := semver.Parse(tag); err != nil {
		return ErrInvalidTag.Wrapf("%q: %v", tag, err)
	}
	if c.Versions == nil {
		c.Versions = make(map[string]Ref)
	}
	if existing, ok := c.Versions[tag]; ok {
		if existing == ref {
			return nil
		}
		return ErrTagExists.Wrapf("%s@%s points to %s", c.ID(), tag, existing.Short())
	}
	c.Versions[tag] = ref
	c.Head = ref
	c.Removed = false
	return nil
}

// Snap moves the head to a new, untagged version
func (c *ModelComponent) Snap(ref Ref) {
	c.Head = ref
	c.Removed = false
}

// ListTags returns all tags, in semver order
func (c *ModelComponent) ListTags() []string {
	versions := make(semver.Versions, 0, len(c.Versions))
	for tag := range c.Versions {
		v, err := semver.Parse(tag)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Sort(versions)
	res := make([]string, 0, len(versions))
	for _, v := range versions {
		res = append(res, v.String())
	}
	return res
}

// LatestTag returns the greatest tag, or an empty string
func (c *ModelComponent) LatestTag() string {
	tags := c.ListTags()
	if len(tags) == 0 {
		return ""
	}
	return tags[len(tags)-1]
}

// GetTagOfRefIfExists returns the tag of a ref, or an empty string
func (c *ModelComponent) GetTagOfRefIfExists(ref Ref) string {
	if ref.IsEmpty() {
		return ""
	}
	for _, tag := range c.ListTags() {
		if c.Versions[tag] == ref {
			return tag
		}
	}
	return ""
}

// GetRef resolves a version string to a ref: a tag, a snap hash or "latest"
func (c *ModelComponent) GetRef(version string) (Ref, bool) {
	switch {
	case version == "" || version == VersionLatest:
		if head := c.GetHead(); !head.IsEmpty() {
			return head, true
		}
		if latest := c.LatestTag(); latest != "" {
			return c.Versions[latest], true
		}
		return "", false
	case IsHash(version):
		return Ref(version), true
	default:
		ref, ok := c.Versions[version]
		if !ok {
			ref, ok = c.Orphaned[version]
		}
		return ref, ok
	}
}

// LoadVersion resolves a tag or a snap hash to its Version object
func (c *ModelComponent) LoadVersion(ctx context.Context, version string, loader ObjectLoader, throwIfMissing bool) (*Version, error) {
	ref, ok := c.GetRef(version)
	if !ok {
		if throwIfMissing {
			return nil, &VersionNotFoundError{Version: version, ID: c.ID().String()}
		}
		return nil, nil
	}
	obj, err := loader.Load(ctx, ref, throwIfMissing)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	v, ok := obj.(*Version)
	if !ok {
		return nil, ErrUnexpectedType.Wrapf("%s is a %s, not a version", ref.Short(), obj.Type())
	}
	return v, nil
}

// GetHead is the lane-aware head
func (c *ModelComponent) GetHead() Ref {
	if !c.laneHeadLocal.IsEmpty() {
		return c.laneHeadLocal
	}
	return c.Head
}

// SetLaneHeadLocal overrides the head with the one of the current lane
func (c *ModelComponent) SetLaneHeadLocal(ref Ref) {
	c.laneHeadLocal = ref
	c.divergeData = nil
}

// GetHeadRegardlessOfLane is the head on main
func (c *ModelComponent) GetHeadRegardlessOfLane() Ref {
	return c.Head
}

// GetHeadRegardlessOfLaneAsTagOrHash is the tag of the head on main, or its hash when the head is not tagged
func (c *ModelComponent) GetHeadRegardlessOfLaneAsTagOrHash() string {
	return c.asTagOrHash(c.Head)
}

// GetHeadAsTagIfExist is the tag of the lane-aware head, or its hash when the head is not tagged
func (c *ModelComponent) GetHeadAsTagIfExist() string {
	return c.asTagOrHash(c.GetHead())
}

func (c *ModelComponent) asTagOrHash(head Ref) string {
	if head.IsEmpty() {
		return c.LatestTag()
	}
	if tag := c.GetTagOfRefIfExists(head); tag != "" {
		return tag
	}
	return head.String()
}

// Merge adds the tags of an incoming revision of the same component (e.g. from a remote).
//
// Tags pointing to different versions on both sides are returned as conflicts and left untouched.
// The incoming head becomes the remote head, and the local head when there is none.
func (c *ModelComponent) Merge(incoming *ModelComponent) (added []string, conflicts []string) {
	if c.Versions == nil {
		c.Versions = make(map[string]Ref)
	}
	for _, tag := range incoming.ListTags() {
		ref := incoming.Versions[tag]
		existing, ok := c.Versions[tag]
		switch {
		case !ok:
			c.Versions[tag] = ref
			added = append(added, tag)
		case existing != ref:
			conflicts = append(conflicts, tag)
		}
	}
	if c.Scope == "" {
		c.Scope = incoming.Scope
	}
	if !incoming.Head.IsEmpty() {
		c.RemoteHead = incoming.Head
		if c.Head.IsEmpty() {
			c.Head = incoming.Head
		}
	}
	c.divergeData = nil
	return added, conflicts
}

// SetDivergeData computes the relationship between the local and the remote heads.
//
// The result is kept on the in-memory component until the head changes.
func (c *ModelComponent) SetDivergeData(ctx context.Context, loader ObjectLoader) *DivergeData {
	c.divergeData = GetDivergeData(ctx, loader, c.GetHead(), c.RemoteHead)
	if c.divergeData.Err != nil {
		if notFound, ok := c.divergeData.Err.(*VersionNotFoundOnFSError); ok && notFound.ID == "" {
			notFound.ID = c.ID().String()
		}
	}
	return c.divergeData
}

// DivergeData returns the last computed diverge data, or nil
func (c *ModelComponent) DivergeData() *DivergeData {
	return c.divergeData
}

// Clone returns a deep copy of the persisted fields
func (c *ModelComponent) Clone() *ModelComponent {
	clone := *c
	clone.Versions = make(map[string]Ref, len(c.Versions))
	for k, v := range c.Versions {
		clone.Versions[k] = v
	}
	if c.Orphaned != nil {
		clone.Orphaned = make(map[string]Ref, len(c.Orphaned))
		for k, v := range c.Orphaned {
			clone.Orphaned[k] = v
		}
	}
	clone.divergeData = nil
	return &clone
}
