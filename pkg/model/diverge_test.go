package model

import (
	"context"
	"testing"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivergeData(t *testing.T) {
	ctx := context.Background()

	for _, toPin := range []struct {
		name          string
		common        int
		local, remote int
		expected      DivergeStatus
	}{
		{name: "up to date", common: 3, expected: UpToDate},
		{name: "local ahead", common: 2, local: 3, expected: LocalAhead},
		{name: "remote ahead", common: 4, remote: 1, expected: RemoteAhead},
		{name: "diverged", common: 1, local: 2, remote: 5, expected: Diverged},
	} {
		fixture := toPin
		t.Run(fixture.name, func(t *testing.T) {
			loader := memLoader{}
			base := loader.chain("", fixture.common, "base")
			ancestor := base[len(base)-1]
			localOnly := loader.chain(ancestor, fixture.local, "local")
			remoteOnly := loader.chain(ancestor, fixture.remote, "remote")

			localHead, remoteHead := ancestor, ancestor
			if len(localOnly) > 0 {
				localHead = localOnly[len(localOnly)-1]
			}
			if len(remoteOnly) > 0 {
				remoteHead = remoteOnly[len(remoteOnly)-1]
			}

			d := GetDivergeData(ctx, loader, localHead, remoteHead)
			require.NoError(t, d.Err)
			assert.Equal(t, fixture.expected, d.Status())
			assert.Equal(t, ancestor, d.CommonSnapBeforeDiverge)
			assert.ElementsMatch(t, localOnly, d.SnapsOnSourceOnly)
			assert.ElementsMatch(t, remoteOnly, d.SnapsOnTargetOnly)
			if len(localOnly) > 0 {
				assert.Equal(t, reversed(localOnly), d.SnapsOnSourceOnly)
			}
			assert.Equal(t, fixture.expected == Diverged, d.IsDiverged())
		})
	}
}

func TestDivergeDataMergeCommit(t *testing.T) {
	ctx := context.Background()
	loader := memLoader{}
	base := loader.chain("", 2, "base")
	left := loader.chain(base[1], 2, "left")
	right := loader.chain(base[1], 1, "right")

	merge := &Version{Parents: []Ref{left[1], right[0]}, Log: Log{Message: "merge"}}
	loader.add(merge)

	d := GetDivergeData(ctx, loader, merge.Hash(), right[0])
	require.NoError(t, d.Err)
	assert.Equal(t, LocalAhead, d.Status())
	assert.Equal(t, right[0], d.CommonSnapBeforeDiverge)
	assert.ElementsMatch(t, []Ref{merge.Hash(), left[0], left[1]}, d.SnapsOnSourceOnly)
}

func TestDivergeDataUnrelated(t *testing.T) {
	loader := memLoader{}
	a := loader.chain("", 2, "a")
	b := loader.chain("", 2, "b")

	d := GetDivergeData(context.Background(), loader, a[1], b[1])
	require.Error(t, d.Err)
	assert.True(t, errors.Is(d.Err, ErrNoCommonSnap))
	assert.Equal(t, Unrelated, d.Status())
}

func TestDivergeDataMissingObject(t *testing.T) {
	loader := memLoader{}
	refs := loader.chain("", 3, "main")
	delete(loader, refs[0])

	c := NewModelComponent(ComponentID{Scope: "my-scope", Name: "foo"})
	c.Snap(refs[2])
	c.RemoteHead = refs[1]

	d := c.SetDivergeData(context.Background(), loader)
	require.Error(t, d.Err)
	var notFound *VersionNotFoundOnFSError
	require.True(t, errors.As(d.Err, &notFound))
	assert.Equal(t, refs[0], notFound.Ref)
	assert.Equal(t, "my-scope/foo", notFound.ID)
	assert.Equal(t, Invalid, d.Status())
	assert.Same(t, d, c.DivergeData())
}

func TestDivergeDataWithoutRemote(t *testing.T) {
	loader := memLoader{}
	refs := loader.chain("", 2, "main")

	d := GetDivergeData(context.Background(), loader, refs[1], "")
	require.NoError(t, d.Err)
	assert.Equal(t, LocalAhead, d.Status())
	assert.Equal(t, []Ref{refs[1], refs[0]}, d.SnapsOnSourceOnly)
}
