package model

// Source is the raw content of a file
type Source struct {
	Contents []byte
}

// NewSource wraps some file content
func NewSource(contents []byte) *Source {
	return &Source{Contents: contents}
}

// Hash of the content
func (s *Source) Hash() Ref {
	return HashBytes(s.Contents)
}

// Type of object
func (s *Source) Type() ObjectType {
	return TypeSource
}

// Refs of a source is always empty
func (s *Source) Refs() []Ref {
	return nil
}

// Serialize returns the raw content
func (s *Source) Serialize() ([]byte, error) {
	return s.Contents, nil
}
