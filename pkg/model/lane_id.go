package model

import "strings"

// DefaultLane is the name of the main history
const DefaultLane = "main"

// LaneID identifies a lane within a scope
type LaneID struct {
	Scope string `json:"scope" yaml:"scope"`
	Name  string `json:"name" yaml:"name"`
}

// ParseLaneID parses scope/name
func ParseLaneID(id string) (LaneID, error) {
	slash := strings.Index(id, scopeSep)
	if slash <= 0 || slash == len(id)-1 {
		return LaneID{}, ErrInvalidLaneID.Wrapf("%q should be scope/name", id)
	}
	return LaneID{Scope: id[:slash], Name: id[slash+1:]}, nil
}

func (l LaneID) String() string {
	return l.Scope + scopeSep + l.Name
}

// IsDefault tells if the lane is the main history
func (l LaneID) IsDefault() bool {
	return l.Name == DefaultLane
}
