package scope

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestGetLocalComponent(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)

	tagged := snapTagged(t, s, "ui/button", "1.0.0", "export const button = 1;")
	assert.Equal(t, "ui/button@1.0.0", tagged.String())

	c, err := s.Get(ctx, cid("ui/button"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, PersistedWithHead, c.Kind)
	assert.Equal(t, "1.0.0", c.ID.Version)
	assert.Equal(t, "bob", c.Head.Author.DisplayName)
	assert.Equal(t, "tag 1.0.0", c.Head.Message)
	assert.Equal(t, "export const button = 1;", contentsOf(t, c.State))
	assert.Equal(t, "1.0.0", c.LatestTag())
	assert.False(t, c.IsRemoved())

	again, err := s.Get(ctx, cid("ui/button"))
	require.NoError(t, err)
	assert.Same(t, c, again, "loaded components are cached")

	s.Loader().ClearCache()
	reloaded, err := s.Get(ctx, cid("ui/button"))
	require.NoError(t, err)
	assert.NotSame(t, c, reloaded)
	assert.Equal(t, c.Head.Hash, reloaded.Head.Hash)
}

func TestGetUnknownAuthor(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	_, err := s.Snap(ctx, cid("foo"), files("foo"), SnapOptions{Message: "anonymous"})
	require.NoError(t, err)

	c, err := s.Get(ctx, cid("foo"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "unknown", c.Head.Author.DisplayName)
	assert.Equal(t, "unknown@anywhere", c.Head.Author.Email)
	assert.Equal(t, c.Head.Hash.String(), c.ID.Version, "an untagged head is addressed by its hash")
}

func TestGetMissingOrVersionZero(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)

	c, err := s.Get(ctx, cid("nope"))
	require.NoError(t, err)
	assert.Nil(t, c)

	snapTagged(t, s, "foo", "0.0.1", "foo")
	c, err = s.Get(ctx, cid("foo@"+model.VersionZero))
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = s.Get(ctx, cid("foo@9.9.9"))
	var notFound *model.VersionNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestGetOriginMismatch(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "foo")

	foo, err := s.Objects().LoadModelComponent(ctx, cid("foo"))
	require.NoError(t, err)
	bar := model.NewModelComponent(cid("bar"))
	require.NoError(t, bar.Tag("0.0.1", foo.Versions["0.0.1"]))
	require.NoError(t, s.Objects().Write(ctx, bar))

	_, err = s.Get(ctx, cid("bar"))
	require.Error(t, err)
	assert.Equal(t, `version "0.0.1" seem to be originated from "foo", not from "bar"`, err.Error())
}

func TestGetSnapNotFound(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	missing := model.HashBytes([]byte("missing"))

	_, err := s.Loader().GetSnap(ctx, cid("foo"), missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrSnapNotFound))
	assert.Equal(t,
		fmt.Sprintf(`fatal: snap %q file for component "foo" was not found in the filesystem`, missing.String()),
		err.Error(),
	)

	ref := snapTagged(t, s, "foo", "0.0.1", "foo")
	c, err := s.Get(ctx, ref)
	require.NoError(t, err)
	snap, err := s.Loader().GetSnap(ctx, ref, c.Head.Hash)
	require.NoError(t, err)
	assert.Equal(t, c.Head, snap)

	state, err := s.Loader().GetState(ctx, ref, c.Head.Hash)
	require.NoError(t, err)
	assert.Equal(t, "foo", contentsOf(t, state))
}

func TestOnLoadHooks(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "foo")

	var calls []string
	s.Loader().RegisterOnLoad(func(_ context.Context, c *Component) error {
		calls = append(calls, "first:"+c.ID.Name)
		return fmt.Errorf("first handler fails")
	})
	s.Loader().RegisterOnLoad(func(_ context.Context, c *Component) error {
		calls = append(calls, "second:"+c.ID.Name)
		return nil
	})

	s.Loader().RegisterOnLoad(func(_ context.Context, c *Component) error {
		calls = append(calls, "third:"+c.ID.Name)
		return fmt.Errorf("third handler fails")
	})

	c, err := s.Get(ctx, cid("foo"))
	require.NoError(t, err, "a failing handler does not fail the load")
	require.NotNil(t, c)
	assert.Equal(t, []string{"first:foo", "second:foo", "third:foo"}, calls)

	require.Error(t, c.HandlerErr)
	handlerErrs := multierr.Errors(c.HandlerErr)
	require.Len(t, handlerErrs, 2)
	assert.EqualError(t, handlerErrs[0], "first handler fails")
	assert.EqualError(t, handlerErrs[1], "third handler fails")

	_, err = s.Get(ctx, cid("foo"))
	require.NoError(t, err)
	assert.Len(t, calls, 3, "handlers do not run for cached components")
}

func TestImportOnDemand(t *testing.T) {
	ctx := context.Background()
	fs, _, remote := linkedScopes(t)
	snapTagged(t, remote, "foo", "0.0.1", "remote foo")
	// components snapped on the remote itself are unscoped until they are exported: scope them
	exportInPlace(t, remote, "foo")

	other := initScope(t, fs, "other", map[string]string{remoteName: "file://" + remotePath})
	inv := NewInvocation("show")
	ictx := WithInvocation(ctx, inv)

	c, err := other.Get(ictx, scid("remote/foo"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, PersistedWithHead, c.Kind)
	assert.Equal(t, "remote foo", contentsOf(t, c.State))
	assert.Equal(t, 1, inv.Count(EventImport))

	other.Loader().ClearCache()
	_, err = other.Get(ictx, scid("remote/foo"))
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Count(EventImport), "the component is stored locally now")

	_, err = other.Get(ictx, scid("remote/missing"))
	var notFound *network.ComponentNotFoundError
	require.True(t, errors.As(err, &notFound), "unexpected error: %v", err)

	c, err = other.Get(ictx, scid("remote/missing"))
	require.NoError(t, err, "the import is not attempted twice")
	assert.Nil(t, c)
	assert.Equal(t, 1, inv.Count(EventImport))
	assert.Equal(t, 1, inv.Count(EventFetch), "failed fetches are not recorded")
}

func TestImportAttemptExpires(t *testing.T) {
	ctx := context.Background()
	fs, _, _ := linkedScopes(t)
	other := initScope(t, fs, "other", map[string]string{remoteName: "file://" + remotePath}, ImportTTL(50*time.Millisecond))

	_, err := other.Get(ctx, scid("remote/missing"))
	require.Error(t, err)
	_, err = other.Get(ctx, scid("remote/missing"))
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_, err = other.Get(ctx, scid("remote/missing"))
	assert.Error(t, err, "the import is attempted again once expired")
}

func TestGetRemoteComponent(t *testing.T) {
	ctx := context.Background()
	_, local, remote := linkedScopes(t)
	snapTagged(t, remote, "foo", "0.0.1", "v1")
	exportInPlace(t, remote, "foo")

	c, err := local.Loader().GetRemoteComponent(ctx, scid("remote/foo"), true)
	require.NoError(t, err)
	assert.Equal(t, InMemory, c.Kind)
	assert.Equal(t, "0.0.1", c.ID.Version)
	assert.Equal(t, "v1", contentsOf(t, c.State))

	list, err := local.List(ctx, "", true)
	require.NoError(t, err)
	assert.Empty(t, list, "remote components are not persisted")

	many, err := local.Loader().GetManyRemoteComponents(ctx, []model.ComponentID{scid("remote/foo@0.0.1")})
	require.NoError(t, err)
	require.Len(t, many, 1)
	assert.Equal(t, "remote/foo@0.0.1", many[0].ID.String())
}

// exportInPlace scopes a component snapped directly in a scope, as an export to itself would
func exportInPlace(t testing.TB, s *Scope, name string) {
	t.Helper()
	ctx := context.Background()
	mc, err := s.Objects().LoadModelComponent(ctx, cid(name))
	require.NoError(t, err)
	require.NotNil(t, mc)
	scoped := mc.Clone()
	scoped.Scope = s.Name()
	require.NoError(t, s.Objects().Write(ctx, scoped))
	require.NoError(t, s.Objects().Remove(ctx, mc.Hash()))
	s.Loader().ClearCache()
}
