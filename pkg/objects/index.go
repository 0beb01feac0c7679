package objects

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects/status"
)

// IndexFile is the name of the index in a scope directory
const IndexFile = "index.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ItemID is the identity of an indexed component. Scope is null until the component is exported.
type ItemID struct {
	Scope *string `json:"scope"`
	Name  string  `json:"name"`
}

func (i ItemID) String() string {
	if i.Scope == nil || *i.Scope == "" {
		return i.Name
	}
	return *i.Scope + "/" + i.Name
}

// IndexItem is an entry of the scope index
type IndexItem interface {
	ToIdentifierString() string
	ItemHash() model.Ref
}

// ComponentItem indexes a ModelComponent or a Symlink
type ComponentItem struct {
	ID        ItemID    `json:"id"`
	IsSymlink bool      `json:"isSymlink"`
	Hash      model.Ref `json:"hash"`
}

// ToIdentifierString formats the entry as `component "scope/name"`
func (c *ComponentItem) ToIdentifierString() string {
	return fmt.Sprintf("component %q", c.ID.String())
}

// ItemHash is the hash of the indexed object
func (c *ComponentItem) ItemHash() model.Ref {
	return c.Hash
}

// ToComponentID converts the entry into a component id, without version
func (c *ComponentItem) ToComponentID() model.ComponentID {
	id := model.ComponentID{Name: c.ID.Name}
	if c.ID.Scope != nil {
		id.Scope = *c.ID.Scope
	}
	return id
}

// LaneItem indexes a Lane
type LaneItem struct {
	ID   model.LaneID `json:"id"`
	Hash model.Ref    `json:"hash"`
}

// ToIdentifierString formats the entry as `lane "scope/name"`
func (l *LaneItem) ToIdentifierString() string {
	return fmt.Sprintf("lane %q", l.ID.String())
}

// ItemHash is the hash of the indexed object
func (l *LaneItem) ItemHash() model.Ref {
	return l.Hash
}

type indexFile struct {
	Components []*ComponentItem `json:"components"`
	Lanes      []*LaneItem      `json:"lanes"`
}

// IndexOption configures a ScopeIndex
type IndexOption func(*ScopeIndex)

// IndexLogger sets the logger of the index
func IndexLogger(l *zap.Logger) IndexOption {
	return func(i *ScopeIndex) {
		if l != nil {
			i.l = l
		}
	}
}

// IndexMetrics sets the metrics collectors of the index
func IndexMetrics(m *metrics.M) IndexOption {
	return func(i *ScopeIndex) {
		if m != nil {
			i.m = m
		}
	}
}

// ScopeIndex maps object hashes to the identity of components and lanes.
//
// Readers and writers of the in-memory entries are protected by a RW lock.
// Writes to disk are serialized: concurrent callers of Write wait for each other.
type ScopeIndex struct {
	fs       afero.Fs
	basePath string

	mx         sync.RWMutex
	components []*ComponentItem
	lanes      []*LaneItem

	writeMx sync.Mutex

	l *zap.Logger
	m *metrics.M
}

func newIndex(fs afero.Fs, basePath string, opts ...IndexOption) *ScopeIndex {
	i := &ScopeIndex{
		fs:         fs,
		basePath:   basePath,
		components: []*ComponentItem{},
		lanes:      []*LaneItem{},
		l:          dlogger.MustGetLogger(dlogger.LogLevelNone),
	}
	for _, apply := range opts {
		apply(i)
	}
	return i
}

// CreateIndex builds an empty index, not yet written to disk
func CreateIndex(fs afero.Fs, basePath string, opts ...IndexOption) *ScopeIndex {
	return newIndex(fs, basePath, opts...)
}

// LoadIndex reads index.json from the scope directory.
//
// A legacy index is a bare array of component entries. Invalid JSON yields an *InvalidIndexJSONError.
func LoadIndex(fs afero.Fs, basePath string, opts ...IndexOption) (*ScopeIndex, error) {
	i := newIndex(fs, basePath, opts...)
	content, err := afero.ReadFile(fs, i.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrIndexNotFound.Wrapf("%s", i.Path())
		}
		return nil, err
	}

	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var legacy []*ComponentItem
		if err = json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, &InvalidIndexJSONError{Path: i.Path(), Err: err}
		}
		i.components = compact(legacy)
		return i, nil
	}

	var f indexFile
	if err = json.Unmarshal(trimmed, &f); err != nil {
		return nil, &InvalidIndexJSONError{Path: i.Path(), Err: err}
	}
	i.components = compact(f.Components)
	for _, lane := range f.Lanes {
		if lane != nil {
			i.lanes = append(i.lanes, lane)
		}
	}
	return i, nil
}

// ResetIndex deletes the index file and returns an empty index
func ResetIndex(fs afero.Fs, basePath string, opts ...IndexOption) (*ScopeIndex, error) {
	i := newIndex(fs, basePath, opts...)
	if err := i.DeleteFile(); err != nil {
		return nil, err
	}
	return i, nil
}

func compact(items []*ComponentItem) []*ComponentItem {
	res := make([]*ComponentItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			res = append(res, item)
		}
	}
	return res
}

// Path to index.json
func (i *ScopeIndex) Path() string {
	return filepath.Join(i.basePath, IndexFile)
}

// DeleteFile removes index.json, if present
func (i *ScopeIndex) DeleteFile() error {
	if err := i.fs.Remove(i.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Write the index to disk.
//
// The file is first written to a unique temporary file, then renamed.
func (i *ScopeIndex) Write(ctx context.Context) error {
	i.writeMx.Lock()
	defer i.writeMx.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	i.mx.RLock()
	content, err := json.MarshalIndent(indexFile{Components: i.components, Lanes: i.lanes}, "", "  ")
	components, lanes := len(i.components), len(i.lanes)
	i.mx.RUnlock()
	if err != nil {
		return err
	}

	if err = i.fs.MkdirAll(i.basePath, 0o755); err != nil {
		return err
	}
	tmp := i.Path() + "." + ksuid.New().String() + ".tmp"
	if err = afero.WriteFile(i.fs, tmp, content, 0o644); err != nil {
		return err
	}
	if err = i.fs.Rename(tmp, i.Path()); err != nil {
		_ = i.fs.Remove(tmp)
		return err
	}

	if i.m != nil {
		i.m.IndexWrites.Inc()
	}
	i.l.Debug("index written", zap.String("path", i.Path()), zap.Int("components", components), zap.Int("lanes", lanes))
	return nil
}

// AddOne indexes a component, a symlink or a lane. It returns true when a new entry is added.
//
// An existing lane entry is updated in place.
func (i *ScopeIndex) AddOne(obj model.BitObject) bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	return i.addOne(obj)
}

// AddMany indexes several objects. It returns true when at least one entry is added.
func (i *ScopeIndex) AddMany(objs []model.BitObject) bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	var added bool
	for _, obj := range objs {
		if i.addOne(obj) {
			added = true
		}
	}
	return added
}

func (i *ScopeIndex) addOne(obj model.BitObject) bool {
	switch o := obj.(type) {
	case *model.ModelComponent:
		return i.addComponent(o.Hash(), o.Scope, o.Name, false)
	case *model.Symlink:
		return i.addComponent(o.Hash(), o.Scope, o.Name, true)
	case *model.Lane:
		hash := o.Hash()
		for _, lane := range i.lanes {
			if lane.Hash == hash || lane.ID == o.ID() {
				lane.ID = o.ID()
				lane.Hash = hash
				return false
			}
		}
		i.lanes = append(i.lanes, &LaneItem{ID: o.ID(), Hash: hash})
		return true
	default:
		return false
	}
}

func (i *ScopeIndex) addComponent(hash model.Ref, scope, name string, isSymlink bool) bool {
	if i.findComponent(hash) != nil {
		return false
	}
	item := &ComponentItem{ID: ItemID{Name: name}, IsSymlink: isSymlink, Hash: hash}
	if scope != "" {
		s := scope
		item.ID.Scope = &s
	}
	i.components = append(i.components, item)
	return true
}

// RemoveOne removes the entry of a hash. It returns true when an entry was removed.
func (i *ScopeIndex) RemoveOne(hash model.Ref) bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	return i.removeOne(hash)
}

// RemoveMany removes the entries of several hashes. It returns true when at least one entry was removed.
func (i *ScopeIndex) RemoveMany(refs []model.Ref) bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	var removed bool
	for _, ref := range refs {
		if i.removeOne(ref) {
			removed = true
		}
	}
	return removed
}

func (i *ScopeIndex) removeOne(hash model.Ref) bool {
	for idx, item := range i.components {
		if item.Hash == hash {
			i.components = append(i.components[:idx], i.components[idx+1:]...)
			return true
		}
	}
	for idx, item := range i.lanes {
		if item.Hash == hash {
			i.lanes = append(i.lanes[:idx], i.lanes[idx+1:]...)
			return true
		}
	}
	return false
}

// Find the entry of a hash, or nil
func (i *ScopeIndex) Find(hash model.Ref) IndexItem {
	i.mx.RLock()
	defer i.mx.RUnlock()
	if item := i.findComponent(hash); item != nil {
		return item
	}
	for _, lane := range i.lanes {
		if lane.Hash == hash {
			return lane
		}
	}
	return nil
}

func (i *ScopeIndex) findComponent(hash model.Ref) *ComponentItem {
	for _, item := range i.components {
		if item.Hash == hash {
			return item
		}
	}
	return nil
}

// GetAll returns all entries, components first
func (i *ScopeIndex) GetAll() []IndexItem {
	i.mx.RLock()
	defer i.mx.RUnlock()
	res := make([]IndexItem, 0, len(i.components)+len(i.lanes))
	for _, item := range i.components {
		res = append(res, item)
	}
	for _, item := range i.lanes {
		res = append(res, item)
	}
	return res
}

// GetHashes returns the hashes of all entries of a type: components, symlinks or lanes
func (i *ScopeIndex) GetHashes(typ model.ObjectType) []model.Ref {
	return i.GetHashesByQuery(typ, func(IndexItem) bool { return true })
}

// GetHashesByQuery returns the hashes of the entries of a type matching a predicate
func (i *ScopeIndex) GetHashesByQuery(typ model.ObjectType, filter func(IndexItem) bool) []model.Ref {
	i.mx.RLock()
	defer i.mx.RUnlock()
	var res []model.Ref
	switch typ {
	case model.TypeComponent, model.TypeSymlink:
		wantSymlink := typ == model.TypeSymlink
		for _, item := range i.components {
			if item.IsSymlink == wantSymlink && filter(item) {
				res = append(res, item.Hash)
			}
		}
	case model.TypeLane:
		for _, item := range i.lanes {
			if filter(item) {
				res = append(res, item.Hash)
			}
		}
	}
	return res
}

// GetHashesIncludeSymlinks returns the hashes of components and symlinks
func (i *ScopeIndex) GetHashesIncludeSymlinks() []model.Ref {
	i.mx.RLock()
	defer i.mx.RUnlock()
	res := make([]model.Ref, 0, len(i.components))
	for _, item := range i.components {
		res = append(res, item.Hash)
	}
	return res
}
