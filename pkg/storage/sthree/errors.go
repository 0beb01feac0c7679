package sthree

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/storage/status"
)

// sentinelByCode maps S3 error codes to storage sentinels, whatever the HTTP status.
//
// See: https://docs.aws.amazon.com/AmazonS3/latest/API/ErrorResponses.html#ErrorCodeList
var sentinelByCode = map[string]*errors.Error{
	"NoSuchKey":             status.ErrNotExists,
	"NotFound":              status.ErrNotExists, // minio, on HEAD requests
	"NoSuchBucket":          status.ErrInvalidResource,
	"InvalidBucketName":     status.ErrInvalidResource,
	"AccessDenied":          status.ErrForbidden,
	"AllAccessDisabled":     status.ErrForbidden,
	"InvalidAccessKeyId":    status.ErrUnauthorized,
	"SignatureDoesNotMatch": status.ErrUnauthorized,
	"ExpiredToken":          status.ErrUnauthorized,
	"NotImplemented":        status.ErrNotSupported,
	"PreconditionFailed":    status.ErrExists,
}

func sentinelByStatus(statusCode int) *errors.Error {
	switch statusCode {
	case 401:
		return status.ErrUnauthorized
	case 403:
		return status.ErrForbidden
	case 404:
		return status.ErrNotFound
	default:
		return status.ErrStorageAPI
	}
}

// objectError converts an error of the S3 API on key into a storage sentinel carrying the key.
// Errors which are not S3 request failures are returned unchanged.
func objectError(key string, err error) error {
	if err == nil {
		return nil
	}
	failure, ok := err.(awserr.RequestFailure)
	if !ok {
		return err
	}
	sentinel, known := sentinelByCode[failure.Code()]
	if !known {
		sentinel = sentinelByStatus(failure.StatusCode())
	}
	if key == "" {
		return sentinel.Wrap(failure)
	}
	return sentinel.Wrap(fmt.Errorf("%s: %w", key, failure))
}

// isMissing tells if the object is absent from the bucket
func isMissing(err error) bool {
	return errors.Is(err, status.ErrNotExists) || errors.Is(err, status.ErrNotFound)
}
