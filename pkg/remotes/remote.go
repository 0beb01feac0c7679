// Package remotes resolves remote scopes and runs protocol actions against them.
package remotes

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
)

const primaryMarker = "!"

var (
	// ErrInvalidRemote is returned when the host of a remote is not a valid url
	ErrInvalidRemote = errors.New("invalid remote")

	// ErrRemoteNotFound is returned when no remote is configured for a scope
	ErrRemoteNotFound = errors.New("remote not found")
)

// Option configures a Remote
type Option func(*Remote)

// WithDialer sets how connections are opened
func WithDialer(d *network.Dialer) Option {
	return func(r *Remote) {
		if d != nil {
			r.dialer = d
		}
	}
}

// WithLocalScope tells the remote the name of the scope issuing requests
func WithLocalScope(name string) Option {
	return func(r *Remote) {
		r.localScopeName = name
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Remote) {
		if l != nil {
			r.l = l
		}
	}
}

// Remote is a scope reachable through the network protocol
type Remote struct {
	Name    string
	Host    string
	Primary bool

	localScopeName string
	dialer         *network.Dialer
	l              *zap.Logger
}

// Load a remote from its alias. An alias ending with "!" denotes the primary remote.
func Load(alias, host string, opts ...Option) *Remote {
	primary := strings.Contains(alias, primaryMarker)
	return New(strings.ReplaceAll(alias, primaryMarker, ""), host, primary, opts...)
}

// New remote
func New(name, host string, primary bool, opts ...Option) *Remote {
	r := &Remote{
		Name:    name,
		Host:    host,
		Primary: primary,
		l:       dlogger.MustGetLogger(dlogger.LogLevelNone),
	}
	for _, apply := range opts {
		apply(r)
	}
	if r.dialer == nil {
		r.dialer = network.NewDialer(network.WithLogger(r.l))
	}
	return r
}

func (r *Remote) String() string {
	return r.Name + " (" + r.Host + ")"
}

// Validate the host of the remote
func (r *Remote) Validate() error {
	if err := network.ValidateHost(r.Host); err != nil {
		return ErrInvalidRemote.Wrapf("%s: %v", r.Name, err)
	}
	return nil
}

// Connect opens a session with the remote scope
func (r *Remote) Connect(ctx context.Context) (network.Network, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r.dialer.Connect(ctx, r.Host, r.Name)
}

func (r *Remote) withNetwork(ctx context.Context, action string, fn func(network.Network) error) error {
	n, err := r.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := n.Close(); cerr != nil {
			r.l.Debug("closing remote connection", zap.String("remote", r.Name), zap.Error(cerr))
		}
	}()
	r.l.Debug("running action on remote", zap.String("action", action), zap.String("remote", r.Name))
	return fn(n)
}

// Scope describes the remote scope
func (r *Remote) Scope(ctx context.Context) (network.ScopeDescriptor, error) {
	var res network.ScopeDescriptor
	err := r.withNetwork(ctx, network.ActionDescribe, func(n network.Network) (err error) {
		res, err = n.DescribeScope(ctx)
		return
	})
	return res, err
}

// List the components of the remote scope
func (r *Remote) List(ctx context.Context, namespacesUsingWildcards string, includeDeleted bool) ([]network.ListScopeResult, error) {
	var res []network.ListScopeResult
	err := r.withNetwork(ctx, network.ActionList, func(n network.Network) (err error) {
		res, err = n.List(ctx, namespacesUsingWildcards, includeDeleted)
		return
	})
	return res, err
}

// Fetch objects from the remote. The fetch schema of the options is always set to the current one.
func (r *Remote) Fetch(ctx context.Context, ids []string, opts *network.FetchOptions, reqContext map[string]interface{}) (network.ObjectList, error) {
	if opts == nil {
		opts = &network.FetchOptions{Type: network.FetchComponents}
	}
	opts.FetchSchema = network.CurrentFetchSchema
	var res network.ObjectList
	err := r.withNetwork(ctx, network.ActionFetch, func(n network.Network) (err error) {
		res, err = n.Fetch(ctx, ids, *opts, r.withLocalScope(reqContext))
		return
	})
	return res, err
}

// LatestVersions returns the latest versions of components on the remote
func (r *Remote) LatestVersions(ctx context.Context, ids []model.ComponentID) ([]string, error) {
	var res []string
	err := r.withNetwork(ctx, network.ActionLatestVersions, func(n network.Network) (err error) {
		res, err = n.LatestVersions(ctx, ids)
		return
	})
	return res, err
}

// PushMany uploads objects. The caller builds the list of objects missing on the remote.
func (r *Remote) PushMany(ctx context.Context, objs network.ObjectList, opts network.PushOptions, reqContext map[string]interface{}) ([]string, error) {
	var res []string
	err := r.withNetwork(ctx, network.ActionPushMany, func(n network.Network) (err error) {
		r.l.Debug("pushing objects", zap.String("remote", r.Name), zap.Int("objects", len(objs)), zap.String("clientId", opts.ClientID))
		res, err = n.PushMany(ctx, objs, opts, r.withLocalScope(reqContext))
		return
	})
	return res, err
}

// DeleteMany removes components, or lanes when idsAreLanes is set
func (r *Remote) DeleteMany(ctx context.Context, ids []string, force bool, reqContext map[string]interface{}, idsAreLanes bool) (*network.RemovedObjects, error) {
	var res *network.RemovedObjects
	err := r.withNetwork(ctx, network.ActionDeleteMany, func(n network.Network) (err error) {
		res, err = n.DeleteMany(ctx, ids, force, r.withLocalScope(reqContext), idsAreLanes)
		return
	})
	return res, err
}

// Log returns the history of a component
func (r *Remote) Log(ctx context.Context, id model.ComponentID) ([]network.ComponentLog, error) {
	var res []network.ComponentLog
	err := r.withNetwork(ctx, network.ActionLog, func(n network.Network) (err error) {
		res, err = n.Log(ctx, id)
		return
	})
	return res, err
}

// ListLanes lists the lanes of the remote, or a single one by name
func (r *Remote) ListLanes(ctx context.Context, name string, mergeData bool) ([]network.LaneData, error) {
	var res []network.LaneData
	err := r.withNetwork(ctx, network.ActionListLanes, func(n network.Network) (err error) {
		res, err = n.ListLanes(ctx, name, mergeData)
		return
	})
	return res, err
}

// HasObjects returns the subset of hashes present on the remote
func (r *Remote) HasObjects(ctx context.Context, hashes []model.Ref) ([]model.Ref, error) {
	var res []model.Ref
	err := r.withNetwork(ctx, network.ActionHasObjects, func(n network.Network) (err error) {
		res, err = n.HasObjects(ctx, hashes)
		return
	})
	return res, err
}

// Action runs a named action registered on the remote
func (r *Remote) Action(ctx context.Context, name string, options interface{}, result interface{}) error {
	return r.withNetwork(ctx, name, func(n network.Network) error {
		return n.Action(ctx, name, options, result)
	})
}

func (r *Remote) withLocalScope(reqContext map[string]interface{}) map[string]interface{} {
	if r.localScopeName == "" {
		return reqContext
	}
	res := make(map[string]interface{}, len(reqContext)+1)
	for k, v := range reqContext {
		res[k] = v
	}
	res["localScope"] = r.localScopeName
	return res
}

// Remotes is a set of remotes indexed by name
type Remotes map[string]*Remote

// FromConfig loads remotes from a map of alias to host
func FromConfig(hosts map[string]string, opts ...Option) Remotes {
	res := make(Remotes, len(hosts))
	for alias, host := range hosts {
		r := Load(alias, host, opts...)
		res[r.Name] = r
	}
	return res
}

// Resolve the remote of a scope
func (rs Remotes) Resolve(scopeName string) (*Remote, error) {
	if r, ok := rs[scopeName]; ok {
		return r, nil
	}
	return nil, ErrRemoteNotFound.Wrapf("no remote configured for scope %q", scopeName)
}

// Primary returns the remote marked as primary, if any
func (rs Remotes) Primary() *Remote {
	for _, name := range rs.Names() {
		if rs[name].Primary {
			return rs[name]
		}
	}
	return nil
}

// Names of the remotes, sorted
func (rs Remotes) Names() []string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate all remotes
func (rs Remotes) Validate() error {
	for _, name := range rs.Names() {
		if err := rs[name].Validate(); err != nil {
			return err
		}
	}
	return nil
}
