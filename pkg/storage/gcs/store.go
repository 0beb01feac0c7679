// Copyright © 2018 One Concern

// Package gcs provides a storage backend on Google Cloud Storage.
package gcs

import (
	"context"
	"io"
	"strings"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/storage"
	"github.com/oneconcern/scope/pkg/storage/status"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
	clientOptions  []option.ClientOption
	l              *zap.Logger
}

// New builds a store on a GCS bucket
func New(ctx context.Context, bucket string, opts ...Option) (storage.Store, error) {
	googleStore := &gcs{
		bucket: bucket,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx,
		append([]option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}, googleStore.clientOptions...)...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.client, err = gcsStorage.NewClient(ctx,
		append([]option.ClientOption{option.WithScopes(gcsStorage.ScopeFullControl)}, googleStore.clientOptions...)...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	return "gcs://" + g.bucket
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcsStorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, toSentinelErrors(err)
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return objectReader, nil
}

// Put uploads an object. GCS uploads are atomic: the object appears only once the writer is closed.
func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader, exclusive bool) error {
	obj := g.client.Bucket(g.bucket).Object(objectName)
	if exclusive {
		obj = obj.If(gcsStorage.Conditions{DoesNotExist: true})
	}
	writer := obj.NewWriter(ctx)
	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	if err := writer.Close(); err != nil {
		if exclusive && isPreconditionFailed(err) {
			return status.ErrExists.Wrapf("%s", objectName)
		}
		return toSentinelErrors(err)
	}
	g.l.Debug("gcs object uploaded", zap.String("object", objectName))
	return nil
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	err := g.client.Bucket(g.bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, gcsStorage.ErrObjectNotExist) {
		return toSentinelErrors(err)
	}
	return nil
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	it := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (g *gcs) KeysPrefix(ctx context.Context, pageToken, prefix, delimiter string, count int) ([]string, string, error) {
	const defaultPageSize = 1000
	if count <= 0 {
		count = defaultPageSize
	}
	it := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{Prefix: prefix, Delimiter: delimiter})
	attrs := make([]*gcsStorage.ObjectAttrs, 0, count)
	next, err := iterator.NewPager(it, count, pageToken).NextPage(&attrs)
	if err != nil {
		return nil, "", toSentinelErrors(err)
	}
	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Prefix != "" {
			// synthetic directory entry when a delimiter is used
			keys = append(keys, attr.Prefix)
			continue
		}
		keys = append(keys, attr.Name)
	}
	return keys, next, nil
}

func (g *gcs) Clear(ctx context.Context) error {
	keys, err := g.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := g.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	return strings.Contains(err.Error(), "conditionNotMet") || strings.Contains(err.Error(), "412")
}
