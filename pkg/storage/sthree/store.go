// Package sthree provides a storage backend on AWS S3 (or any S3-compatible API).
package sthree

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/oneconcern/scope/pkg/storage"
	"github.com/oneconcern/scope/pkg/storage/status"
)

// PageSize is the default number of keys listed per page
const PageSize = 1000

// Option configures the S3 store
type Option func(*s3FS)

// Bucket sets the target bucket
func Bucket(bucket string) Option {
	return func(fs *s3FS) {
		fs.bucket = bucket
	}
}

// AWSConfig sets the AWS client configuration (region, endpoint, credentials)
func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// New builds a store on an S3 bucket
func New(option Option, options ...Option) (storage.Store, error) {
	fs := &s3FS{awsConfig: aws.NewConfig()}
	option(fs)
	for _, apply := range options {
		apply(fs)
	}
	if fs.bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("an S3 bucket is required")
	}

	sess, err := session.NewSession(fs.awsConfig)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	fs.s3 = s3.New(sess)
	fs.uploader = s3manager.NewUploaderWithClient(fs.s3)
	return fs, nil
}

type s3FS struct {
	bucket    string
	awsConfig *aws.Config
	s3        *s3.S3
	uploader  *s3manager.Uploader
}

func (s *s3FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err = objectError(key, err); err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *s3FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, objectError(key, err)
	}
	return obj.Body, nil
}

// Put uploads an object. S3 has no conditional put: exclusivity is checked beforehand.
func (s *s3FS) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) error {
	if exclusive {
		has, err := s.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.Wrapf("%s", key)
		}
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   rdr,
	})
	return objectError(key, err)
}

func (s *s3FS) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err = objectError(key, err); err != nil && !isMissing(err) {
		return err
	}
	return nil
}

func (s *s3FS) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	eachPage := func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			if key := aws.StringValue(obj.Key); key != "" {
				keys = append(keys, key)
			}
		}
		return true
	}
	params := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if err := s.s3.ListObjectsV2PagesWithContext(ctx, params, eachPage); err != nil {
		return nil, objectError("", err)
	}
	return keys, nil
}

func (s *s3FS) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	if count <= 0 {
		count = PageSize
	}
	params := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(int64(count)),
	}
	if delimiter != "" {
		params.Delimiter = aws.String(delimiter)
	}
	if token != "" {
		params.ContinuationToken = aws.String(token)
	}
	page, err := s.s3.ListObjectsV2WithContext(ctx, params)
	if err != nil {
		return nil, "", objectError(prefix, err)
	}
	keys := make([]string, 0, len(page.Contents)+len(page.CommonPrefixes))
	for _, obj := range page.Contents {
		keys = append(keys, aws.StringValue(obj.Key))
	}
	for _, p := range page.CommonPrefixes {
		keys = append(keys, aws.StringValue(p.Prefix))
	}
	if aws.BoolValue(page.IsTruncated) {
		return keys, aws.StringValue(page.NextContinuationToken), nil
	}
	return keys, "", nil
}

func (s *s3FS) Clear(ctx context.Context) error {
	params := &s3.ListObjectsInput{Bucket: aws.String(s.bucket)}
	del := s3manager.NewBatchDeleteWithClient(s.s3)
	return objectError("", del.Delete(ctx, s3manager.NewDeleteListIterator(s.s3, params)))
}

func (s *s3FS) String() string {
	return "s3@" + s.bucket
}
