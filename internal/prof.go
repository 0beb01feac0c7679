// Package internal holds process-level helpers of the scope binaries.
package internal

import (
	"context"
	"path"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/dlogger"
)

// MinProfMB are the heap sizes in MiB above which a profile is written
type MinProfMB struct {
	Alloc   uint64
	HeapSys uint64
}

// MemWatchParams configure the memory watchdog of a long running process
type MemWatchParams struct {
	Fs         afero.Fs
	DestDir    string
	NamePrefix string
	Poll       time.Duration
	LogEvery   time.Duration
	MinMBs     []MinProfMB
	Logger     *zap.Logger
}

func memWatchDefaults(params MemWatchParams) MemWatchParams {
	if params.Fs == nil {
		params.Fs = afero.NewOsFs()
	}
	if params.DestDir == "" {
		params.DestDir = "."
	}
	if params.NamePrefix == "" {
		params.NamePrefix = "mem"
	}
	if params.Poll == 0 {
		params.Poll = 500 * time.Millisecond
	}
	if params.Logger == nil {
		params.Logger = dlogger.MustGetLogger(dlogger.LogLevelNone)
	}
	return params
}

// writeProfIfNExist writes each profile once per threshold
func writeProfIfNExist(fs afero.Fs, file string, name string) error {
	exists, err := afero.Exists(fs, file)
	if err != nil || exists {
		return err
	}
	f, err := fs.Create(file)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return pprof.Lookup(name).WriteTo(f, 0)
}

// MaybeMemProf writes heap and allocation profiles when the heap is over a threshold.
// It returns the base path of the profiles, or an empty string when under the threshold.
func MaybeMemProf(params MemWatchParams, stats *runtime.MemStats, minMB MinProfMB) (string, error) {
	params = memWatchDefaults(params)
	if stats.Alloc/1024/1024 < minMB.Alloc || stats.HeapSys/1024/1024 < minMB.HeapSys {
		return "", nil
	}
	if err := params.Fs.MkdirAll(params.DestDir, 0700); err != nil {
		return "", err
	}
	base := path.Join(params.DestDir, strings.Join([]string{
		params.NamePrefix,
		strconv.FormatUint(minMB.Alloc, 10),
		strconv.FormatUint(minMB.HeapSys, 10),
	}, "-"))
	if err := writeProfIfNExist(params.Fs, base+".mem.prof", "heap"); err != nil {
		return "", err
	}
	if err := writeProfIfNExist(params.Fs, base+".alloc.prof", "allocs"); err != nil {
		return "", err
	}
	return base, nil
}

// MemWatch polls memory statistics until ctx is done, logging heap growth and writing
// profiles when thresholds are crossed. The returned channel is closed when the watchdog stops.
func MemWatch(ctx context.Context, params MemWatchParams) <-chan struct{} {
	params = memWatchDefaults(params)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(params.Poll)
		defer ticker.Stop()

		var (
			stats          runtime.MemStats
			maxHeapThusFar uint64
			lastLog        time.Time
		)
		for {
			runtime.ReadMemStats(&stats)
			if params.LogEvery != 0 && time.Since(lastLog) >= params.LogEvery {
				params.Logger.Info("mempoll",
					zap.Uint64("MiB for heap (un-GC)", stats.Alloc/1024/1024),
					zap.Uint64("MiB for heap (max ever)", stats.HeapSys/1024/1024),
					zap.Int("num go routines", runtime.NumGoroutine()),
				)
				lastLog = time.Now()
			}
			if stats.HeapSys > maxHeapThusFar {
				maxHeapThusFar = stats.HeapSys
				params.Logger.Debug("grew heap",
					zap.Uint64("MiB for heap (un-GC)", stats.Alloc/1024/1024),
					zap.Uint64("MiB for heap (max ever)", stats.HeapSys/1024/1024),
				)
			}
			for _, minMB := range params.MinMBs {
				base, err := MaybeMemProf(params, &stats, minMB)
				if err != nil {
					params.Logger.Error("memory profiling error", zap.Error(err))
					continue
				}
				if base != "" {
					params.Logger.Debug("memory profiled", zap.String("profile", base))
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
