// Copyright © 2018 One Concern

// Package scope orchestrates a component scope: loading components with on-demand
// imports from remotes, snapping and tagging, exports, lanes and status.
package scope

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/objects"
	"github.com/oneconcern/scope/pkg/remotes"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// Scope is a named collection of components, stored in an object repository
type Scope struct {
	name string
	path string
	fs   afero.Fs
	repo *objects.Repository

	remoteHosts    map[string]string
	remotes        remotes.Remotes
	dialer         *network.Dialer
	maxMessageSize int64

	loader   *ComponentLoader
	importer *Importer

	componentCacheSize int
	importTTL          time.Duration
	concurrency        int
	readOnly           bool
	rebuildIndex       bool

	// exports serializes access to pending exports
	exports   sync.Mutex
	persists  map[string]struct{}
	closers   []func() error
	closeOnce sync.Once

	l *zap.Logger
	m *metrics.M
}

func newScope(name string, fs afero.Fs, scopePath string, opts ...Option) *Scope {
	s := &Scope{
		name:               name,
		path:               scopePath,
		fs:                 fs,
		componentCacheSize: DefaultComponentCacheSize,
		importTTL:          DefaultImportTTL,
		concurrency:        DefaultConcurrency,
		persists:           make(map[string]struct{}),
		l:                  dlogger.MustGetLogger(dlogger.LogLevelNone),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// New builds a scope on top of an opened repository
func New(name string, fs afero.Fs, scopePath string, repo *objects.Repository, opts ...Option) (*Scope, error) {
	s := newScope(name, fs, scopePath, opts...)
	s.repo = repo
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scope) init() error {
	s.l = s.l.With(zap.String("scope", s.name))
	if s.dialer == nil {
		s.dialer = network.NewDialer(
			network.WithLocalOpener(LocalOpener(s.fs, Logger(s.l), Metrics(s.m))),
			network.WithMaxMessageSize(s.maxMessageSize),
			network.WithLogger(s.l),
			network.WithMetrics(s.m),
		)
	}
	s.remotes = remotes.FromConfig(s.remoteHosts,
		remotes.WithDialer(s.dialer),
		remotes.WithLocalScope(s.name),
		remotes.WithLogger(s.l),
	)

	var err error
	s.importer = newImporter(s)
	s.loader, err = newComponentLoader(s, s.componentCacheSize, s.importTTL)
	return err
}

// Init creates a new scope at scopePath, with its configuration and an empty index
func Init(ctx context.Context, fs afero.Fs, scopePath string, cfg *config.Config, opts ...Option) (*Scope, error) {
	exists, err := config.Exists(fs, scopePath)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, status.ErrScopeExists.Wrapf("%s", scopePath)
	}
	if err = cfg.Write(fs, scopePath); err != nil {
		return nil, err
	}

	s := newScope(cfg.Name, fs, scopePath, append(configOptions(cfg), opts...)...)
	store, closer, err := cfg.OpenStore(ctx, fs, scopePath, s.l)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closer)

	s.repo, err = objects.Create(ctx, store, fs, scopePath, s.repositoryOptions(cfg)...)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	if err = s.init(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	s.l.Info("scope initialized", zap.String("path", scopePath))
	return s, nil
}

// Open the scope at scopePath.
//
// A corrupted index yields an *objects.InvalidIndexJSONError, unless the scope is opened
// with the RebuildIndex option.
func Open(ctx context.Context, fs afero.Fs, scopePath string, opts ...Option) (*Scope, error) {
	cfg, err := config.Load(fs, scopePath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, status.ErrScopeNotFound.Wrap(err)
		}
		return nil, err
	}

	s := newScope(cfg.Name, fs, scopePath, append(configOptions(cfg), opts...)...)
	store, closer, err := cfg.OpenStore(ctx, fs, scopePath, s.l)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closer)

	openRepository := objects.Open
	if s.rebuildIndex {
		s.l.Info("rebuilding index", zap.String("path", scopePath))
		openRepository = objects.OpenAndReindex
	}
	s.repo, err = openRepository(ctx, store, fs, scopePath, s.repositoryOptions(cfg)...)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	if err = s.init(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

func configOptions(cfg *config.Config) []Option {
	opts := []Option{
		RemoteHosts(cfg.Remotes),
		ComponentCacheSize(cfg.Cache.Components),
		ImportTTL(cfg.Cache.ImportTTL),
		ReadOnly(cfg.ReadOnly),
	}
	if size, err := cfg.MaxMessageSize(); err == nil {
		opts = append(opts, MaxMessageSize(size))
	}
	if l, err := dlogger.GetLogger(cfg.LogLevel); err == nil {
		opts = append(opts, Logger(l))
	}
	return opts
}

func (s *Scope) repositoryOptions(cfg *config.Config) []objects.Option {
	return []objects.Option{
		objects.Logger(s.l),
		objects.Metrics(s.m),
		objects.CacheSize(cfg.Cache.Objects),
		objects.Concurrency(s.concurrency),
	}
}

// LocalOpener opens scopes on fs for file:// remotes
func LocalOpener(fs afero.Fs, opts ...Option) network.LocalOpener {
	return func(ctx context.Context, scopePath string) (network.Handler, func() error, error) {
		s, err := Open(ctx, fs, scopePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return NewRemoteHandler(s), s.Close, nil
	}
}

// Close releases the storage backend
func (s *Scope) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, closer := range s.closers {
			err = multierr.Append(err, closer())
		}
	})
	return err
}

// Name of the scope
func (s *Scope) Name() string {
	return s.name
}

// Path of the scope
func (s *Scope) Path() string {
	return s.path
}

// Objects is the object repository of the scope
func (s *Scope) Objects() *objects.Repository {
	return s.repo
}

// Remotes configured for the scope
func (s *Scope) Remotes() remotes.Remotes {
	return s.remotes
}

// Loader of components
func (s *Scope) Loader() *ComponentLoader {
	return s.loader
}

// Importer of components from remotes
func (s *Scope) Importer() *Importer {
	return s.importer
}

// IsReadOnly tells if remote clients may write to the scope
func (s *Scope) IsReadOnly() bool {
	return s.readOnly
}

// IsExported tells if an id belongs to another scope, from which it may be imported
func (s *Scope) IsExported(id model.ComponentID) bool {
	return id.HasScope() && id.Scope != s.name
}

// Get loads a component, importing it when missing
func (s *Scope) Get(ctx context.Context, id model.ComponentID) (*Component, error) {
	return s.loader.Get(ctx, id, true, true)
}

// resolveRemote returns the remote named name, or the primary remote when name is empty
func (s *Scope) resolveRemote(name string) (*remotes.Remote, error) {
	if name != "" {
		return s.remotes.Resolve(name)
	}
	if primary := s.remotes.Primary(); primary != nil {
		return primary, nil
	}
	return nil, remotes.ErrRemoteNotFound.Wrapf("no primary remote configured for scope %q", s.name)
}

// loadModelComponent finds a component. Ids without scope follow the symlink left by
// their first export, then fall back to the name of this scope.
func (s *Scope) loadModelComponent(ctx context.Context, id model.ComponentID) (*model.ModelComponent, error) {
	mc, err := s.repo.LoadModelComponent(ctx, id)
	if err != nil || mc != nil || id.HasScope() {
		return mc, err
	}
	scoped, err := s.scopedID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.LoadModelComponent(ctx, scoped)
}

// scopedID resolves an id without scope to its scoped identity
func (s *Scope) scopedID(ctx context.Context, id model.ComponentID) (model.ComponentID, error) {
	link, err := s.repo.LoadSymlink(ctx, id.ChangeScope(""))
	if err != nil {
		return id, err
	}
	if link != nil {
		return link.RealID().ChangeVersion(id.Version), nil
	}
	return id.ChangeScope(s.name), nil
}

func (s *Scope) mustLoadModelComponent(ctx context.Context, id model.ComponentID) (*model.ModelComponent, error) {
	mc, err := s.loadModelComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	if mc == nil {
		return nil, status.ErrComponentNotFound.Wrapf("%s", id.StringWithoutVersion())
	}
	return mc, nil
}
