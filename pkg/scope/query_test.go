package scope

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestListAndLatestVersions(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "ui/button", "1.0.0", "button")
	snapTagged(t, s, "ui/input", "0.1.0", "input")
	snapTagged(t, s, "utils/string", "2.0.0", "string")
	_, err := s.Snap(ctx, cid("utils/string"), files("string, untagged"), SnapOptions{})
	require.NoError(t, err)

	list, err := s.List(ctx, "ui/*", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ui/button@1.0.0", list[0].ID.String())
	assert.Equal(t, "ui/input@0.1.0", list[1].ID.String())

	_, err = s.List(ctx, "[", false)
	assert.Error(t, err)

	latest, err := s.LatestVersions(ctx, []model.ComponentID{cid("ui/button"), cid("utils/string")})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "ui/button@1.0.0", latest[0])
	head, err := model.ParseComponentID(latest[1], false)
	require.NoError(t, err)
	assert.True(t, model.IsHash(head.Version), "an untagged head is reported by its hash")

	_, err = s.LatestVersions(ctx, []model.ComponentID{cid("nope")})
	assert.True(t, errors.Is(err, status.ErrComponentNotFound))
}

func TestTag(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapped, err := s.Snap(ctx, cid("foo"), files("foo"), SnapOptions{})
	require.NoError(t, err)

	tagged, err := s.Tag(ctx, cid("foo"), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "foo@1.0.0", tagged.String())

	c, err := s.Get(ctx, cid("foo"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", c.ID.Version)
	assert.Equal(t, snapped.Version, c.Head.Hash.String())

	_, err = s.Tag(ctx, cid("foo"), "not-semver")
	assert.True(t, errors.Is(err, model.ErrInvalidTag))

	_, err = s.Snap(ctx, cid("foo"), files("foo v2"), SnapOptions{})
	require.NoError(t, err)
	_, err = s.Tag(ctx, cid("foo"), "1.0.0")
	assert.True(t, errors.Is(err, model.ErrTagExists))

	_, err = s.Tag(ctx, cid("nope"), "1.0.0")
	assert.True(t, errors.Is(err, status.ErrComponentNotFound))
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "v1")
	_, err := s.Snap(ctx, cid("foo"), files("v2"), SnapOptions{Message: "second", Username: "alice"})
	require.NoError(t, err)

	logs, err := s.Log(ctx, cid("foo"))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Message)
	assert.Equal(t, "alice", logs[0].Username)
	assert.Empty(t, logs[0].Tag)
	assert.Equal(t, []model.Ref{logs[1].Hash}, logs[0].Parents)
	assert.Equal(t, "0.0.1", logs[1].Tag)

	logs, err = s.Log(ctx, cid("foo@0.0.1"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = s.Log(ctx, cid("foo@9.9.9"))
	var notFound *model.VersionNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRemoveMany(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "local-only", "0.0.1", "local")
	snapTagged(t, s, "shared", "0.0.1", "shared")
	exportInPlace(t, s, "shared")

	res, err := s.RemoveMany(ctx, []model.ComponentID{cid("local-only"), scid("my-scope/shared"), cid("nope")}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"local-only", "my-scope/shared"}, res.RemovedComponentIDs)
	assert.Equal(t, []string{"nope"}, res.MissingComponents)

	list, err := s.List(ctx, "", false)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.List(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, list, 1, "exported components are soft-removed")
	assert.Equal(t, "my-scope/shared@0.0.1", list[0].ID.String())
	assert.True(t, list[0].Removed)

	c, err := s.Get(ctx, scid("my-scope/shared"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsRemoved())

	_, err = s.RemoveMany(ctx, []model.ComponentID{scid("my-scope/shared")}, true)
	require.NoError(t, err)
	list, err = s.List(ctx, "", true)
	require.NoError(t, err)
	assert.Empty(t, list)
}
