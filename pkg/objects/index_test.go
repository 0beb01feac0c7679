package objects

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScopePath = "/ws/.scope"

func testComponent(scope, name string) *model.ModelComponent {
	c := model.NewModelComponent(model.ComponentID{Scope: scope, Name: name})
	c.Snap(model.HashBytes([]byte(scope + name)))
	return c
}

func TestIndexAddOne(t *testing.T) {
	index := CreateIndex(afero.NewMemMapFs(), testScopePath)
	foo := testComponent("my-scope", "foo")

	assert.True(t, index.AddOne(foo))
	assert.False(t, index.AddOne(foo))
	assert.Len(t, index.GetAll(), 1)

	link := &model.Symlink{Name: "foo", RealScope: "my-scope"}
	assert.True(t, index.AddOne(link))
	assert.False(t, index.AddOne(model.NewSource([]byte("not indexed"))))

	assert.Equal(t, []model.Ref{foo.Hash()}, index.GetHashes(model.TypeComponent))
	assert.Equal(t, []model.Ref{link.Hash()}, index.GetHashes(model.TypeSymlink))
	assert.ElementsMatch(t, []model.Ref{foo.Hash(), link.Hash()}, index.GetHashesIncludeSymlinks())

	item := index.Find(foo.Hash())
	require.NotNil(t, item)
	assert.Equal(t, `component "my-scope/foo"`, item.ToIdentifierString())
	assert.Nil(t, index.Find(model.HashBytes([]byte("nope"))))
}

func TestIndexLanes(t *testing.T) {
	index := CreateIndex(afero.NewMemMapFs(), testScopePath)
	lane := model.NewLane(model.LaneID{Scope: "my-scope", Name: "feature"}, nil)

	assert.True(t, index.AddOne(lane))
	lane.Name = "renamed"
	assert.False(t, index.AddOne(lane), "a lane entry is updated in place")

	item := index.Find(lane.Hash())
	require.NotNil(t, item)
	assert.Equal(t, `lane "my-scope/renamed"`, item.ToIdentifierString())
	assert.Len(t, index.GetHashes(model.TypeLane), 1)

	assert.True(t, index.RemoveOne(lane.Hash()))
	assert.False(t, index.RemoveOne(lane.Hash()))
	assert.Empty(t, index.GetHashes(model.TypeLane))
}

func TestIndexRemoveMany(t *testing.T) {
	index := CreateIndex(afero.NewMemMapFs(), testScopePath)
	foo, bar := testComponent("s", "foo"), testComponent("s", "bar")
	index.AddMany([]model.BitObject{foo, bar})

	assert.True(t, index.RemoveMany([]model.Ref{foo.Hash(), model.HashBytes([]byte("x"))}))
	assert.False(t, index.RemoveMany([]model.Ref{foo.Hash()}))
	assert.Equal(t, []model.Ref{bar.Hash()}, index.GetHashes(model.TypeComponent))
}

func TestIndexGetHashesByQuery(t *testing.T) {
	index := CreateIndex(afero.NewMemMapFs(), testScopePath)
	index.AddMany([]model.BitObject{testComponent("s1", "foo"), testComponent("s2", "bar"), testComponent("", "baz")})

	hashes := index.GetHashesByQuery(model.TypeComponent, func(item IndexItem) bool {
		c := item.(*ComponentItem)
		return c.ID.Scope == nil
	})
	assert.Equal(t, []model.Ref{testComponent("", "baz").Hash()}, hashes)
}

func TestIndexWriteAndLoad(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	index := CreateIndex(fs, testScopePath)
	foo := testComponent("my-scope", "foo")
	lane := model.NewLane(model.LaneID{Scope: "my-scope", Name: "feature"}, nil)
	index.AddMany([]model.BitObject{foo, testComponent("", "local"), lane})
	require.NoError(t, index.Write(ctx))

	loaded, err := LoadIndex(fs, testScopePath)
	require.NoError(t, err)
	assert.Equal(t, index.GetAll(), loaded.GetAll())

	raw, err := afero.ReadFile(fs, index.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"scope": null`)
	assert.Contains(t, string(raw), `"isSymlink": false`)

	require.NoError(t, loaded.DeleteFile())
	_, err = LoadIndex(fs, testScopePath)
	assert.True(t, errors.Is(err, status.ErrIndexNotFound))
}

func TestIndexLegacyFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `[
  {"id": {"scope": "my-scope", "name": "foo"}, "isSymlink": false, "hash": "abc"},
  {"id": {"scope": null, "name": "bar"}, "isSymlink": true, "hash": "def"}
]`
	require.NoError(t, afero.WriteFile(fs, testScopePath+"/"+IndexFile, []byte(legacy), 0o644))

	index, err := LoadIndex(fs, testScopePath)
	require.NoError(t, err)
	assert.Len(t, index.GetHashesIncludeSymlinks(), 2)
	assert.Empty(t, index.GetHashes(model.TypeLane))
	assert.Equal(t, []model.Ref{"def"}, index.GetHashes(model.TypeSymlink))
}

func TestIndexInvalidJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testScopePath+"/"+IndexFile, []byte(`{"components": [`), 0o644))

	_, err := LoadIndex(fs, testScopePath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidIndexJSON))
	var invalid *InvalidIndexJSONError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, testScopePath+"/"+IndexFile, invalid.Path)

	index, err := ResetIndex(fs, testScopePath)
	require.NoError(t, err)
	assert.Empty(t, index.GetAll())
	exists, _ := afero.Exists(fs, index.Path())
	assert.False(t, exists)
}

func TestIndexConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	index := CreateIndex(fs, testScopePath)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			index.AddOne(testComponent("my-scope", fmt.Sprintf("comp%d", i)))
			assert.NoError(t, index.Write(ctx))
		}(i)
	}
	wg.Wait()

	loaded, err := LoadIndex(fs, testScopePath)
	require.NoError(t, err, "the index file should always be valid JSON")
	assert.Len(t, loaded.GetHashes(model.TypeComponent), writers, "no entry should be dropped")

	leftovers, err := afero.Glob(fs, testScopePath+"/*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
