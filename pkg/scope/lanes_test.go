package scope

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestLanes(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)

	dev, err := s.CreateLane(ctx, "dev", "")
	require.NoError(t, err)
	assert.Equal(t, "my-scope/dev", dev.ID().String())
	assert.True(t, dev.IsEmpty())

	_, err = s.CreateLane(ctx, "dev", "")
	assert.True(t, errors.Is(err, status.ErrLaneExists))
	_, err = s.CreateLane(ctx, model.DefaultLane, "")
	assert.True(t, errors.Is(err, status.ErrLaneExists))

	snapped, err := s.SnapToLane(ctx, "dev", cid("foo"), files("on dev"), SnapOptions{Message: "wip", Tag: "1.0.0"})
	require.NoError(t, err)
	assert.True(t, model.IsHash(snapped.Version), "snaps on lanes are not tagged")

	c, err := s.Get(ctx, cid("foo"))
	require.NoError(t, err)
	assert.Nil(t, c, "main does not have any version of foo")

	feature, err := s.CreateLane(ctx, "feature", "dev")
	require.NoError(t, err)
	require.Len(t, feature.Components, 1)
	assert.Equal(t, snapped.Version, feature.Components[0].Head.String())
	require.NotNil(t, feature.ForkedFrom)
	assert.Equal(t, "my-scope/dev", feature.ForkedFrom.String())

	lanes, err := s.ListLanes(ctx, "")
	require.NoError(t, err)
	require.Len(t, lanes, 2)
	assert.Equal(t, "my-scope/dev", lanes[0].ID().String())
	assert.Equal(t, "my-scope/feature", lanes[1].ID().String())

	merged, err := s.IsLaneMerged(ctx, lanes[0])
	require.NoError(t, err)
	assert.False(t, merged)

	_, err = s.RemoveLanes(ctx, []string{"dev"}, false)
	assert.True(t, errors.Is(err, status.ErrLaneNotEmpty))

	removed, err := s.RemoveLanes(ctx, []string{"dev"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-scope/dev"}, removed)

	_, err = s.ListLanes(ctx, "dev")
	var notFound *network.LaneNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "dev", notFound.LaneName)
}

func TestSnapOnLaneDescendsFromMain(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	onMain := snapTagged(t, s, "foo", "0.0.1", "v1")
	c, err := s.Get(ctx, onMain)
	require.NoError(t, err)

	_, err = s.CreateLane(ctx, "fix", "")
	require.NoError(t, err)
	onLane, err := s.SnapToLane(ctx, "fix", cid("foo"), files("fixed"), SnapOptions{})
	require.NoError(t, err)

	snap, err := s.Loader().GetSnap(ctx, onLane, model.Ref(onLane.Version))
	require.NoError(t, err)
	assert.Equal(t, []model.Ref{c.Head.Hash}, snap.Parents)

	again, err := s.SnapToLane(ctx, "fix", cid("foo"), files("fixed again"), SnapOptions{})
	require.NoError(t, err)
	snap, err = s.Loader().GetSnap(ctx, again, model.Ref(again.Version))
	require.NoError(t, err)
	assert.Equal(t, []model.Ref{model.Ref(onLane.Version)}, snap.Parents, "the head on the lane is the parent")

	current, err := s.Get(ctx, cid("foo"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", current.ID.Version, "main is left untouched")

	empty, err := s.CreateLane(ctx, "empty", "")
	require.NoError(t, err)
	merged, err := s.IsLaneMerged(ctx, empty)
	require.NoError(t, err)
	assert.True(t, merged)
}
