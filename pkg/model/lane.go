package model

import (
	"sort"

	"github.com/segmentio/ksuid"
)

// LaneComponent is the head of a component on a lane
type LaneComponent struct {
	ID   ComponentID `json:"id"`
	Head Ref         `json:"head"`
}

// Lane is a named set of component heads, diverging from main
type Lane struct {
	Name       string          `json:"name"`
	Scope      string          `json:"scope"`
	Components []LaneComponent `json:"components"`
	ForkedFrom *LaneID         `json:"forkedFrom,omitempty"`
	Log        Log             `json:"log"`

	// LaneHash is assigned at creation and survives any rename or update
	LaneHash Ref `json:"hash"`
}

// NewLane creates an empty lane with a new unique hash
func NewLane(id LaneID, forkedFrom *LaneID) *Lane {
	uid := ksuid.New()
	return &Lane{
		Name:       id.Name,
		Scope:      id.Scope,
		Components: []LaneComponent{},
		ForkedFrom: forkedFrom,
		LaneHash:   HashBytes(uid.Bytes()),
	}
}

// ID of the lane
func (l *Lane) ID() LaneID {
	return LaneID{Scope: l.Scope, Name: l.Name}
}

// Hash of the lane
func (l *Lane) Hash() Ref {
	return l.LaneHash
}

// Type of object
func (l *Lane) Type() ObjectType {
	return TypeLane
}

// Refs to the component heads
func (l *Lane) Refs() []Ref {
	refs := make([]Ref, 0, len(l.Components))
	for _, c := range l.Components {
		refs = append(refs, c.Head)
	}
	return UniqueRefs(refs)
}

// Serialize the lane
func (l *Lane) Serialize() ([]byte, error) {
	return json.Marshal(l)
}

// IsEmpty is true when no component was snapped on the lane
func (l *Lane) IsEmpty() bool {
	return len(l.Components) == 0
}

// GetComponent returns the lane head of a component
func (l *Lane) GetComponent(id ComponentID) (LaneComponent, bool) {
	for _, c := range l.Components {
		if c.ID.IsEqualWithoutVersion(id) {
			return c, true
		}
	}
	return LaneComponent{}, false
}

// AddComponent sets the head of a component on the lane
func (l *Lane) AddComponent(id ComponentID, head Ref) {
	id = id.ChangeVersion(head.String())
	for i, c := range l.Components {
		if c.ID.IsEqualWithoutVersion(id) {
			l.Components[i] = LaneComponent{ID: id, Head: head}
			return
		}
	}
	l.Components = append(l.Components, LaneComponent{ID: id, Head: head})
	sort.Slice(l.Components, func(i, j int) bool {
		return l.Components[i].ID.StringWithoutVersion() < l.Components[j].ID.StringWithoutVersion()
	})
}

// RemoveComponent drops a component from the lane
func (l *Lane) RemoveComponent(id ComponentID) bool {
	for i, c := range l.Components {
		if c.ID.IsEqualWithoutVersion(id) {
			l.Components = append(l.Components[:i], l.Components[i+1:]...)
			return true
		}
	}
	return false
}

// ComponentIDs lists the components of the lane, at their lane head
func (l *Lane) ComponentIDs() ComponentIDs {
	ids := make(ComponentIDs, 0, len(l.Components))
	for _, c := range l.Components {
		ids = append(ids, c.ID)
	}
	return ids
}
