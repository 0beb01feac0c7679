package scope

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/objects"
	objectstatus "github.com/oneconcern/scope/pkg/objects/status"
	"github.com/oneconcern/scope/pkg/scope/status"
)

func TestInitAndOpen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := initScope(t, fs, "my-scope", nil)
	assert.Equal(t, "my-scope", s.Name())
	assert.Equal(t, "/scopes/my-scope", s.Path())
	assert.False(t, s.IsReadOnly())

	_, err := Init(ctx, fs, s.Path(), config.Default("my-scope"))
	assert.True(t, errors.Is(err, status.ErrScopeExists))

	_, err = Open(ctx, fs, "/scopes/nope")
	assert.True(t, errors.Is(err, status.ErrScopeNotFound))

	snapTagged(t, s, "foo", "0.0.1", "foo")
	reopened := reopen(t, fs, s)
	c, err := reopened.Get(ctx, cid("foo"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "my-scope", reopened.Name())
}

func TestOpenCorruptedIndex(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := initScope(t, fs, "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "foo")

	require.NoError(t, afero.WriteFile(fs, s.Path()+"/"+objects.IndexFile, []byte("{not json"), 0600))

	_, err := Open(ctx, fs, s.Path())
	require.Error(t, err)
	assert.True(t, errors.Is(err, objectstatus.ErrInvalidIndexJSON))
	var invalid *objects.InvalidIndexJSONError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "scope index rebuild")

	content, err := afero.ReadFile(fs, s.Path()+"/"+objects.IndexFile)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(content), "the index is left untouched")
}

func TestOpenRebuildIndex(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := initScope(t, fs, "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "foo")

	require.NoError(t, afero.WriteFile(fs, s.Path()+"/"+objects.IndexFile, []byte("{not json"), 0600))

	rebuilt, err := Open(ctx, fs, s.Path(), RebuildIndex())
	require.NoError(t, err)
	list, err := rebuilt.List(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "foo", list[0].ID.Name)
	require.NoError(t, rebuilt.Close())

	reopened := reopen(t, fs, s)
	assert.Len(t, reopened.Objects().Index().GetAll(), 1)
}

func TestIsExported(t *testing.T) {
	_, local, _ := linkedScopes(t)
	assert.True(t, local.IsExported(scid("remote/foo")))
	assert.False(t, local.IsExported(scid("local/foo")))
	assert.False(t, local.IsExported(cid("foo")))
}
