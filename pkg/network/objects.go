package network

import (
	"github.com/oneconcern/scope/pkg/model"
)

// ObjectItem is one compressed object sent over the wire
type ObjectItem struct {
	Ref  model.Ref        `json:"ref"`
	Type model.ObjectType `json:"type"`
	Blob []byte           `json:"buffer"`
}

// ObjectList is a batch of objects exchanged with a remote
type ObjectList []ObjectItem

// NewObjectList compresses objects for the wire
func NewObjectList(objs ...model.BitObject) (ObjectList, error) {
	list := make(ObjectList, 0, len(objs))
	for _, obj := range objs {
		blob, err := model.Compress(obj)
		if err != nil {
			return nil, err
		}
		list = append(list, ObjectItem{Ref: obj.Hash(), Type: obj.Type(), Blob: blob})
	}
	return list, nil
}

// ToObjects parses all objects of the list
func (l ObjectList) ToObjects() ([]model.BitObject, error) {
	objs := make([]model.BitObject, 0, len(l))
	for _, item := range l {
		obj, err := model.ParseObject(item.Blob)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Refs of the objects of the list
func (l ObjectList) Refs() []model.Ref {
	refs := make([]model.Ref, 0, len(l))
	for _, item := range l {
		refs = append(refs, item.Ref)
	}
	return refs
}

// Filter keeps the objects for which keep returns true
func (l ObjectList) Filter(keep func(ObjectItem) bool) ObjectList {
	res := make(ObjectList, 0, len(l))
	for _, item := range l {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res
}
