// Package workspace maps components to the files of a working directory.
//
// The mapping is recorded in a ".bitmap" file at the root of the workspace: a JSON object keyed
// by component id, preceded by an optional comment header.
package workspace

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BitmapFile is the name of the bitmap file in a workspace
const BitmapFile = ".bitmap"

const bitmapHeader = `/**
 * The Bitmap file is an auto generated file used to track components in the workspace.
 * Do not edit it by hand.
 */

`

var (
	// ErrBitmapNotFound is returned when the workspace has no bitmap file
	ErrBitmapNotFound = errors.New("bitmap file not found")

	// ErrInvalidBitmap is returned for a bitmap file which cannot be parsed
	ErrInvalidBitmap = errors.New("invalid bitmap file")

	// ErrNotTracked is returned for components absent from the bitmap
	ErrNotTracked = errors.New("component not tracked by the workspace")
)

// InvalidBitmapEntryError is returned for an entry with a scope but without version: an exported
// component is always recorded at a version.
type InvalidBitmapEntryError struct {
	ID    string
	Scope string
}

func (e *InvalidBitmapEntryError) Error() string {
	return fmt.Sprintf(".bitmap entry of %q is invalid, it has a scope-name %q, however, it does not have any version", e.ID, e.Scope)
}

// DuplicateRootDirError is returned when two components share a root directory
type DuplicateRootDirError struct {
	RootDir string
	IDs     []string
}

func (e *DuplicateRootDirError) Error() string {
	return fmt.Sprintf(".bitmap has the same rootDir %q for multiple components: %s", e.RootDir, strings.Join(e.IDs, ", "))
}

// ComponentMap is one entry of the bitmap
type ComponentMap struct {
	Scope    string `json:"scope"`
	Version  string `json:"version"`
	MainFile string `json:"mainFile"`
	RootDir  string `json:"rootDir"`
	Exported bool   `json:"exported,omitempty"`

	// id is resolved when the bitmap is loaded
	id model.ComponentID
}

// ID of the component tracked by the entry
func (m *ComponentMap) ID() model.ComponentID {
	return m.id
}

// Bitmap tracks the components of a workspace
type Bitmap struct {
	defaultScope string
	components   map[string]*ComponentMap
}

// NewBitmap builds an empty bitmap
func NewBitmap(defaultScope string) *Bitmap {
	return &Bitmap{
		defaultScope: defaultScope,
		components:   make(map[string]*ComponentMap),
	}
}

// LoadBitmap reads the bitmap file at the root of a workspace
func LoadBitmap(fs afero.Fs, dir, defaultScope string) (*Bitmap, error) {
	data, err := afero.ReadFile(fs, filepath.Join(dir, BitmapFile))
	if err != nil {
		if exists, _ := afero.Exists(fs, filepath.Join(dir, BitmapFile)); !exists {
			return nil, ErrBitmapNotFound.Wrapf("%s", dir)
		}
		return nil, err
	}
	return ParseBitmap(data, defaultScope)
}

// ParseBitmap parses the content of a bitmap file
func ParseBitmap(data []byte, defaultScope string) (*Bitmap, error) {
	var raw map[string]*ComponentMap
	if err := json.Unmarshal(stripHeader(data), &raw); err != nil {
		return nil, ErrInvalidBitmap.Wrap(err)
	}
	b := NewBitmap(defaultScope)
	if err := b.loadComponents(raw); err != nil {
		return nil, err
	}
	return b, nil
}

// loadComponents validates the entries and resolves their ids
func (b *Bitmap) loadComponents(raw map[string]*ComponentMap) error {
	rootDirs := make(map[string][]string)
	for _, key := range sortedKeys(raw) {
		entry := raw[key]
		if entry == nil {
			return ErrInvalidBitmap.Wrapf("empty entry for %q", key)
		}
		if entry.Scope != "" && entry.Version == "" {
			return &InvalidBitmapEntryError{ID: key, Scope: entry.Scope}
		}

		id, err := b.resolveID(key, entry)
		if err != nil {
			return err
		}
		entry.id = id
		if entry.RootDir != "" {
			entry.RootDir = path.Clean(filepath.ToSlash(entry.RootDir))
			rootDirs[entry.RootDir] = append(rootDirs[entry.RootDir], key)
		}
		b.components[id.StringWithoutVersion()] = entry
	}
	for dir, keys := range rootDirs {
		if len(keys) > 1 {
			return &DuplicateRootDirError{RootDir: dir, IDs: keys}
		}
	}
	return nil
}

// resolveID tells the id of an entry. Exported entries carry their scope, the key being either the
// full id or the bare name. Other entries are local components, without scope.
func (b *Bitmap) resolveID(key string, entry *ComponentMap) (model.ComponentID, error) {
	name := key
	if entry.Scope != "" {
		name = strings.TrimPrefix(key, entry.Scope+"/")
	}
	id, err := model.ParseComponentID(name, false)
	if err != nil {
		return id, ErrInvalidBitmap.Wrap(err)
	}
	if id.HasVersion() {
		return id, ErrInvalidBitmap.Wrapf("the key %q should not carry a version", key)
	}
	return model.ComponentID{Scope: entry.Scope, Name: id.Name, Version: entry.Version}, nil
}

// DefaultScope of the workspace, where local components are exported to
func (b *Bitmap) DefaultScope() string {
	return b.defaultScope
}

// AddComponent tracks a component in the bitmap, replacing any previous entry for the same id
func (b *Bitmap) AddComponent(id model.ComponentID, rootDir, mainFile string) error {
	rootDir = path.Clean(filepath.ToSlash(rootDir))
	key := id.StringWithoutVersion()
	previous, _, found := b.lookup(id)
	for other, entry := range b.components {
		if entry.RootDir == rootDir && other != key && other != previous {
			return &DuplicateRootDirError{RootDir: rootDir, IDs: []string{other, key}}
		}
	}
	if found {
		delete(b.components, previous)
	}
	b.components[key] = &ComponentMap{
		Scope:    id.Scope,
		Version:  id.Version,
		MainFile: mainFile,
		RootDir:  rootDir,
		id:       id,
	}
	return nil
}

// MarkExported records that a component was exported to a scope at a version
func (b *Bitmap) MarkExported(id model.ComponentID) error {
	if !id.HasVersion() {
		return &InvalidBitmapEntryError{ID: id.StringWithoutVersion(), Scope: id.Scope}
	}
	key, entry, ok := b.lookup(id)
	if !ok {
		return ErrNotTracked.Wrapf("%s", id.StringWithoutVersion())
	}
	entry.Scope = id.Scope
	entry.Version = id.Version
	entry.Exported = true
	entry.id = id
	delete(b.components, key)
	b.components[id.StringWithoutVersion()] = entry
	return nil
}

// Get the entry of a component. An id without scope matches a component exported to any scope.
func (b *Bitmap) Get(id model.ComponentID) (*ComponentMap, bool) {
	_, entry, ok := b.lookup(id)
	return entry, ok
}

func (b *Bitmap) lookup(id model.ComponentID) (string, *ComponentMap, bool) {
	if entry, ok := b.components[id.StringWithoutVersion()]; ok {
		return id.StringWithoutVersion(), entry, true
	}
	if id.HasScope() {
		// a local component is later exported under a scope
		local := id.Name
		if entry, ok := b.components[local]; ok && entry.Scope == "" {
			return local, entry, true
		}
		return "", nil, false
	}
	for _, key := range sortedKeys(b.components) {
		if entry := b.components[key]; entry.id.Name == id.Name {
			return key, entry, true
		}
	}
	return "", nil, false
}

// IDs of the tracked components, sorted
func (b *Bitmap) IDs() []model.ComponentID {
	res := make([]model.ComponentID, 0, len(b.components))
	for _, key := range sortedKeys(b.components) {
		res = append(res, b.components[key].id)
	}
	return res
}

// ToObjects returns the entries keyed as in the bitmap file: exported components by their full id,
// others by their name.
func (b *Bitmap) ToObjects() map[string]*ComponentMap {
	res := make(map[string]*ComponentMap, len(b.components))
	for _, entry := range b.components {
		key := entry.id.Name
		if entry.Scope != "" {
			key = entry.Scope + "/" + entry.id.Name
		}
		res[key] = entry
	}
	return res
}

// Marshal the bitmap with its header. Entries are sorted by key.
func (b *Bitmap) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(b.ToObjects(), "", "  ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(bitmapHeader)
	buf.Write(data)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write the bitmap file at the root of a workspace
func (b *Bitmap) Write(fs afero.Fs, dir string) error {
	data, err := b.Marshal()
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, filepath.Join(dir, BitmapFile), data, 0o644)
}

// stripHeader removes a leading /* */ comment
func stripHeader(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("/*")) {
		return trimmed
	}
	end := bytes.Index(trimmed, []byte("*/"))
	if end < 0 {
		return trimmed
	}
	return bytes.TrimSpace(trimmed[end+2:])
}

func sortedKeys(m map[string]*ComponentMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
