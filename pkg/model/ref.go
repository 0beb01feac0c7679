package model

import (
	"encoding/hex"
	"sort"

	"github.com/minio/blake2b-simd"
)

// RefLength is the length of the hex representation of a blake2b-256 hash
const RefLength = 2 * 32

// Ref is the hex-encoded hash of an object
type Ref string

// HashBytes computes the ref of some content
func HashBytes(b []byte) Ref {
	sum := blake2b.Sum256(b)
	return Ref(hex.EncodeToString(sum[:]))
}

func (r Ref) String() string {
	return string(r)
}

// IsEmpty is true for the zero ref
func (r Ref) IsEmpty() bool {
	return r == ""
}

// Short returns an abbreviated hash, for display
func (r Ref) Short() string {
	if len(r) <= 9 {
		return string(r)
	}
	return string(r[:9])
}

// Path is the storage key for the object: the first two characters of the hash
// are used as a directory, the rest as a file name.
func (r Ref) Path() string {
	if len(r) < 3 {
		return string(r)
	}
	return string(r[:2]) + "/" + string(r[2:])
}

// RefFromPath reverses Path
func RefFromPath(key string) (Ref, bool) {
	if len(key) != RefLength+1 || key[2] != '/' {
		return "", false
	}
	ref := Ref(key[:2] + key[3:])
	return ref, IsHash(string(ref))
}

// IsHash tells if a version string is a snap hash rather than a tag
func IsHash(s string) bool {
	if len(s) != RefLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// UniqueRefs sorts and removes duplicate or empty refs
func UniqueRefs(refs []Ref) []Ref {
	seen := make(map[Ref]struct{}, len(refs))
	res := make([]Ref, 0, len(refs))
	for _, r := range refs {
		if r.IsEmpty() {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
