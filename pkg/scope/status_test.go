package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestStatus(t *testing.T) {
	ctx := context.Background()
	_, local, _ := linkedScopes(t)
	snapTagged(t, local, "foo", "0.0.1", "foo")
	snapTagged(t, local, "bar", "0.0.1", "bar")

	st, err := local.Status(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar@0.0.1", "foo@0.0.1"}, model.ComponentIDs(st.Staged).Strings())
	assert.False(t, st.IsClean())

	_, err = local.Export(ctx, []model.ComponentID{cid("bar")}, ExportOptions{})
	require.NoError(t, err)

	st, err = local.Status(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/bar@0.0.1"}, model.ComponentIDs(st.UpToDate).Strings())
	assert.Equal(t, []string{"foo@0.0.1"}, model.ComponentIDs(st.Staged).Strings())

	// the remote moved ahead: a snap descending from the local head
	bar, err := local.Objects().LoadModelComponent(ctx, scid("remote/bar"))
	require.NoError(t, err)
	ahead := &model.Version{
		Log:     model.Log{Message: "remote snap", Date: time.Now().UTC()},
		Parents: []model.Ref{bar.Head},
	}
	behind := bar.Clone()
	behind.RemoteHead = ahead.Hash()
	require.NoError(t, local.Objects().Write(ctx, ahead, behind))

	st, err = local.Status(ctx, []model.ComponentID{scid("remote/bar"), cid("nope")})
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/bar@0.0.1"}, model.ComponentIDs(st.PendingUpdates).Strings())
	require.Len(t, st.Invalid, 1)
	assert.Equal(t, "nope", st.Invalid[0].ID.String())
	assert.True(t, errors.Is(st.Invalid[0].Err, status.ErrComponentNotFound))

	// the remote history shares nothing with the local one
	stranger := &model.Version{
		Log: model.Log{Message: "unrelated snap", Date: time.Now().UTC()},
	}
	unrelated := bar.Clone()
	unrelated.RemoteHead = stranger.Hash()
	require.NoError(t, local.Objects().Write(ctx, stranger, unrelated))
	st, err = local.Status(ctx, []model.ComponentID{scid("remote/bar")})
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/bar@0.0.1"}, model.ComponentIDs(st.Unrelated).Strings())
	assert.Empty(t, st.MergePending)
	assert.Empty(t, st.Invalid)
	assert.False(t, st.IsClean())

	// the remote head is unknown locally
	broken := bar.Clone()
	broken.RemoteHead = model.HashBytes([]byte("missing"))
	require.NoError(t, local.Objects().Write(ctx, broken))
	st, err = local.Status(ctx, []model.ComponentID{scid("remote/bar")})
	require.NoError(t, err)
	require.Len(t, st.Invalid, 1)
	assert.Error(t, st.Invalid[0].Err)
}
