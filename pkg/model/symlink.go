package model

// Symlink points a component id without scope to its scoped identity
type Symlink struct {
	Scope     string `json:"scope,omitempty"`
	Name      string `json:"name"`
	RealScope string `json:"realScope"`
}

// ID of the symlink itself
func (s *Symlink) ID() ComponentID {
	return ComponentID{Scope: s.Scope, Name: s.Name}
}

// RealID of the component it points to
func (s *Symlink) RealID() ComponentID {
	return ComponentID{Scope: s.RealScope, Name: s.Name}
}

// Hash is derived from the identity, prefixed to never collide with the component itself
func (s *Symlink) Hash() Ref {
	return HashBytes([]byte("symlink:" + s.ID().StringWithoutVersion()))
}

// Type of object
func (s *Symlink) Type() ObjectType {
	return TypeSymlink
}

// Refs of a symlink is always empty
func (s *Symlink) Refs() []Ref {
	return nil
}

// Serialize the symlink
func (s *Symlink) Serialize() ([]byte, error) {
	return json.Marshal(s)
}
