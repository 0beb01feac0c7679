package model

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// json encoder with sorted map keys, so that serialization is deterministic
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ObjectType discriminates persisted objects
type ObjectType string

// Object types, as written in blob headers
const (
	TypeComponent ObjectType = "Component"
	TypeVersion   ObjectType = "Version"
	TypeSource    ObjectType = "Source"
	TypeLane      ObjectType = "Lane"
	TypeSymlink   ObjectType = "Symlink"
)

func (t ObjectType) String() string {
	return string(t)
}

// IsIndexed tells if objects of this type have an entry in the scope index
func (t ObjectType) IsIndexed() bool {
	return t == TypeComponent || t == TypeSymlink || t == TypeLane
}

// BitObject is any object persisted in a scope
type BitObject interface {
	Hash() Ref
	Type() ObjectType
	Refs() []Ref
	Serialize() ([]byte, error)
}

// ObjectLoader knows how to retrieve objects by ref.
//
// When throwIfMissing is false, a missing object yields (nil, nil).
type ObjectLoader interface {
	Load(context.Context, Ref, bool) (BitObject, error)
}

// Compress serializes an object to its blob format: a zlib stream of "<type> <length>\x00<body>"
func Compress(obj BitObject) ([]byte, error) {
	body, err := obj.Serialize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	header := string(obj.Type()) + " " + strconv.Itoa(len(body)) + "\x00"
	if _, err = zw.Write([]byte(header)); err != nil {
		return nil, err
	}
	if _, err = zw.Write(body); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a blob and splits its header from its body
func Inflate(blob []byte) (ObjectType, []byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return "", nil, ErrInflate.Wrap(err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, ErrInflate.Wrap(err)
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, ErrInvalidObject.Wrapf("missing header terminator")
	}
	header, body := raw[:nul], raw[nul+1:]
	space := bytes.LastIndexByte(header, ' ')
	if space < 0 {
		return "", nil, ErrInvalidObject.Wrapf("malformed header %q", header)
	}
	size, err := strconv.Atoi(string(header[space+1:]))
	if err != nil || size != len(body) {
		return "", nil, ErrInvalidObject.Wrapf("header announces %q bytes, got %d", header[space+1:], len(body))
	}
	return ObjectType(header[:space]), body, nil
}

// ParseObject rebuilds an object from its blob
func ParseObject(blob []byte) (BitObject, error) {
	typ, body, err := Inflate(blob)
	if err != nil {
		return nil, err
	}
	return Unmarshal(typ, body)
}

// Unmarshal rebuilds an object of a known type from its serialized body
func Unmarshal(typ ObjectType, body []byte) (BitObject, error) {
	switch typ {
	case TypeSource:
		return NewSource(body), nil
	case TypeComponent:
		var c ModelComponent
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, ErrInvalidObject.Wrap(err)
		}
		return &c, nil
	case TypeVersion:
		var v Version
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, ErrInvalidObject.Wrap(err)
		}
		return &v, nil
	case TypeLane:
		var l Lane
		if err := json.Unmarshal(body, &l); err != nil {
			return nil, ErrInvalidObject.Wrap(err)
		}
		return &l, nil
	case TypeSymlink:
		var s Symlink
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, ErrInvalidObject.Wrap(err)
		}
		return &s, nil
	default:
		return nil, ErrUnknownObjectType.Wrapf("%q", typ)
	}
}
