package model

import (
	"context"
	"fmt"
	"time"
)

// memLoader is an in-memory object loader
type memLoader map[Ref]BitObject

func (m memLoader) Load(_ context.Context, ref Ref, throwIfMissing bool) (BitObject, error) {
	obj, ok := m[ref]
	if !ok {
		if throwIfMissing {
			return nil, fmt.Errorf("hash %s not found", ref)
		}
		return nil, nil
	}
	return obj, nil
}

func (m memLoader) add(objs ...BitObject) {
	for _, o := range objs {
		m[o.Hash()] = o
	}
}

// chain appends n snaps on top of parent, returning their refs in order
func (m memLoader) chain(parent Ref, n int, label string) []Ref {
	refs := make([]Ref, 0, n)
	for i := 0; i < n; i++ {
		v := &Version{
			Log: Log{
				Message: fmt.Sprintf("%s-%d", label, i),
				Date:    time.Unix(1600000000+int64(i), 0).UTC(),
			},
		}
		if !parent.IsEmpty() {
			v.Parents = []Ref{parent}
		}
		m.add(v)
		parent = v.Hash()
		refs = append(refs, parent)
	}
	return refs
}

func reversed(refs []Ref) []Ref {
	res := make([]Ref, len(refs))
	for i, r := range refs {
		res[len(refs)-1-i] = r
	}
	return res
}
