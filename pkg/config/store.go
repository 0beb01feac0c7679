package config

import (
	"context"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/storage"
	"github.com/oneconcern/scope/pkg/storage/bdgr"
	"github.com/oneconcern/scope/pkg/storage/gcs"
	"github.com/oneconcern/scope/pkg/storage/localfs"
	"github.com/oneconcern/scope/pkg/storage/sthree"
)

const (
	objectsDir = "objects"
	badgerDir  = "objects.db"
)

func noClose() error { return nil }

// OpenStore opens the storage backend holding the objects of the scope at scopePath.
//
// The returned function releases the backend. Every store is instrumented with tracing spans.
func (c *Config) OpenStore(ctx context.Context, fs afero.Fs, scopePath string, l *zap.Logger) (storage.Store, func() error, error) {
	var (
		store  storage.Store
		closer = noClose
		err    error
	)

	switch c.Storage.Backend {
	case "", BackendLocal:
		dir := c.Storage.Path
		if dir == "" {
			dir = path.Join(scopePath, objectsDir)
		}
		if err = fs.MkdirAll(dir, 0700); err != nil {
			return nil, nil, err
		}
		store, err = localfs.NewAtomic(afero.NewBasePathFs(fs, dir))

	case BackendBadger:
		var db *bdgr.Store
		if _, onDisk := fs.(*afero.OsFs); onDisk {
			dir := c.Storage.Path
			if dir == "" {
				dir = path.Join(scopePath, badgerDir)
			}
			db, err = bdgr.New(dir)
		} else {
			db, err = bdgr.New("", bdgr.InMemory())
		}
		if err == nil {
			store, closer = db, db.Close
		}

	case BackendS3:
		opts := []sthree.Option{}
		if region := c.Storage.Path; region != "" {
			opts = append(opts, sthree.AWSConfig(aws.NewConfig().WithRegion(region)))
		}
		store, err = sthree.New(sthree.Bucket(c.Storage.Bucket), opts...)

	case BackendGCS:
		store, err = gcs.New(ctx, c.Storage.Bucket, gcs.Logger(l), gcs.Credentials(c.Storage.Credentials))

	default:
		err = ErrInvalidConfig.Wrapf("unknown storage backend %q", c.Storage.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	return storage.Instrument(nil, l, store), closer, nil
}
