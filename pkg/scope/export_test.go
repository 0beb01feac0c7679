package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	fs, local, remote := linkedScopes(t)
	snapTagged(t, local, "foo", "0.0.1", "v1")

	res, err := local.Export(ctx, nil, ExportOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ExportID)
	assert.Equal(t, []string{remoteName}, res.Remotes)
	assert.Equal(t, []string{"remote/foo@0.0.1"}, model.ComponentIDs(res.Exported).Strings())

	// the component now belongs to the remote scope, and is still found by its name
	c, err := local.Get(ctx, cid("foo"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "remote/foo@0.0.1", c.ID.String())

	exported, err := reopen(t, fs, remote).Get(ctx, scid("remote/foo"))
	require.NoError(t, err)
	require.NotNil(t, exported)
	assert.Equal(t, "v1", contentsOf(t, exported.State))
	assert.Empty(t, exported.Model().RemoteHead)

	pending, err := remote.pendingExports()
	require.NoError(t, err)
	assert.Empty(t, pending, "the export was persisted")

	_, err = local.Export(ctx, nil, ExportOptions{})
	assert.True(t, errors.Is(err, status.ErrNothingToExport))

	next := snapTagged(t, local, "foo", "0.0.2", "v2")
	assert.Equal(t, "remote/foo@0.0.2", next.String())
	res, err = local.Export(ctx, nil, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/foo@0.0.2"}, model.ComponentIDs(res.Exported).Strings())

	logs, err := reopen(t, fs, remote).Log(ctx, scid("remote/foo"))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "0.0.2", logs[0].Tag)
	assert.Equal(t, "0.0.1", logs[1].Tag)
}

func TestGetAfterExport(t *testing.T) {
	ctx := context.Background()
	_, local, _ := linkedScopes(t)
	snapTagged(t, local, "foo", "0.0.1", "v1")

	for _, id := range []string{"foo@0.0.1", "foo"} {
		before, err := local.Get(ctx, cid(id))
		require.NoError(t, err)
		require.NotNil(t, before)
		assert.Equal(t, "foo@0.0.1", before.ID.String())
	}

	_, err := local.Export(ctx, nil, ExportOptions{})
	require.NoError(t, err)

	for _, id := range []model.ComponentID{cid("foo@0.0.1"), cid("foo"), scid("remote/foo@0.0.1")} {
		after, err := local.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, after, id.String())
		assert.Equal(t, "remote/foo@0.0.1", after.ID.String(), id.String())
	}

	again, err := local.Get(ctx, cid("foo@0.0.1"))
	require.NoError(t, err)
	scoped, err := local.Get(ctx, scid("remote/foo@0.0.1"))
	require.NoError(t, err)
	assert.Same(t, scoped, again, "scoped lookups of a resolved id hit the cache")
}

func TestExportConflict(t *testing.T) {
	ctx := context.Background()
	fs, local, _ := linkedScopes(t)
	snapTagged(t, local, "foo", "0.0.1", "v1")
	_, err := local.Export(ctx, nil, ExportOptions{})
	require.NoError(t, err)

	other := initScope(t, fs, "other", map[string]string{remoteName: "file://" + remotePath})
	_, err = other.Get(ctx, scid("remote/foo"))
	require.NoError(t, err)
	_, err = other.Snap(ctx, scid("remote/foo"), files("v2 from other"), SnapOptions{Tag: "0.0.2"})
	require.NoError(t, err)
	_, err = other.Export(ctx, nil, ExportOptions{})
	require.NoError(t, err)

	snapTagged(t, local, "foo", "0.0.2", "v2 from local")
	res, err := local.Export(ctx, nil, ExportOptions{})
	var conflict *network.MergeConflictOnRemoteError
	require.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
	assert.NotEmpty(t, res.ExportID, "the export id is reported along the failure")
	require.Len(t, conflict.IdsNeedUpdate, 1)
	assert.Equal(t, "remote/foo", conflict.IdsNeedUpdate[0].ID)
	require.Len(t, conflict.IdsAndVersionsWithConflicts, 1)
	assert.Equal(t, []string{"0.0.2"}, conflict.IdsAndVersionsWithConflicts[0].Versions)

	imported, err := local.Importer().Import(ctx, []model.ComponentID{scid("remote/foo")}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.2"}, imported.Conflicts["remote/foo"])

	st, err := local.Status(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/foo@0.0.2"}, model.ComponentIDs(st.MergePending).Strings())
}

func TestReceivePushBusy(t *testing.T) {
	ctx := context.Background()
	_, _, remote := linkedScopes(t)

	_, err := remote.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "first"})
	require.NoError(t, err)
	_, err = remote.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "first"})
	require.NoError(t, err, "a client may push several times to the same export")

	_, err = remote.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "second"})
	var busy *network.ServerIsBusyError
	require.True(t, errors.As(err, &busy), "unexpected error: %v", err)
	assert.Equal(t, 1, busy.QueueSize)
	assert.Equal(t, "first", busy.CurrentExportID)
	code, _ := network.CodeFromError(err)
	assert.Equal(t, network.CodeServerIsBusy, code)

	_, err = remote.PersistExport(ctx, "first")
	require.NoError(t, err)
	_, err = remote.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "second"})
	require.NoError(t, err)

	persisted, err := remote.PersistExport(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, persisted)

	_, err = remote.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "../escape"})
	assert.True(t, errors.Is(err, status.ErrPendingExport))
}

func TestReceivePushReadOnly(t *testing.T) {
	ctx := context.Background()
	_, local, _ := linkedScopes(t, ReadOnly(true))

	_, err := local.ReceivePush(ctx, network.ObjectList{}, network.PushOptions{ClientID: "first"})
	var denied *network.PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
}

func TestReceivePushOtherScope(t *testing.T) {
	ctx := context.Background()
	_, _, remote := linkedScopes(t)

	list, err := network.NewObjectList(model.NewModelComponent(scid("elsewhere/foo")))
	require.NoError(t, err)
	_, err = remote.ReceivePush(ctx, list, network.PushOptions{ClientID: "first", Persist: true})
	var custom *network.CustomError
	require.True(t, errors.As(err, &custom), "unexpected error: %v", err)
	assert.Contains(t, custom.Message, "elsewhere/foo")
}

func TestResumeExport(t *testing.T) {
	ctx := context.Background()
	fs, local, _ := linkedScopes(t)
	snapTagged(t, local, "foo", "0.0.1", "v1")

	// push without persisting, as an export interrupted before export-persist
	candidates, err := local.exportCandidates(ctx, nil)
	require.NoError(t, err)
	batches, err := local.exportBatches(candidates, "")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	list, err := local.exportObjects(ctx, batches[0])
	require.NoError(t, err)
	_, err = batches[0].remote.PushMany(ctx, list, network.PushOptions{ClientID: "interrupted"}, nil)
	require.NoError(t, err)

	c, err := reopen(t, fs, local).Loader().GetRemoteComponent(ctx, scid("remote/foo"), false)
	var notFound *network.ComponentNotFoundError
	require.True(t, errors.As(err, &notFound), "pending objects are not visible: %v %v", c, err)

	ids, err := local.ResumeExport(ctx, "interrupted", []string{remoteName})
	require.NoError(t, err)
	assert.Equal(t, []string{"remote/foo@0.0.1"}, ids)

	ids, err = local.ResumeExport(ctx, "interrupted", []string{remoteName})
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing is left to persist")

	_, err = local.ResumeExport(ctx, "interrupted", []string{"nope"})
	assert.Error(t, err)
}
