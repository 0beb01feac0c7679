package internal

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMaybeMemProf(t *testing.T) {
	fs := afero.NewMemMapFs()
	params := MemWatchParams{Fs: fs, DestDir: "/prof", NamePrefix: "serve"}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	base, err := MaybeMemProf(params, &stats, MinProfMB{Alloc: 1 << 40})
	require.NoError(t, err)
	assert.Empty(t, base, "under the threshold")

	base, err = MaybeMemProf(params, &stats, MinProfMB{})
	require.NoError(t, err)
	assert.Equal(t, "/prof/serve-0-0", base)
	for _, suffix := range []string{".mem.prof", ".alloc.prof"} {
		info, err := fs.Stat(base + suffix)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestMemWatchStops(t *testing.T) {
	defer goleak.VerifyNone(t)
	fs := afero.NewMemMapFs()
	ctx, cancel := context.WithCancel(context.Background())
	done := MemWatch(ctx, MemWatchParams{
		Fs:      fs,
		DestDir: "/prof",
		Poll:    time.Millisecond,
		MinMBs:  []MinProfMB{{}},
	})

	require.Eventually(t, func() bool {
		exists, _ := afero.Exists(fs, "/prof/mem-0-0.mem.prof")
		return exists
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("the watchdog did not stop")
	}
}
