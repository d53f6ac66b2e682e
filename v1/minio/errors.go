package minio

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

var (
	ErrConnectionFailed = errors.New("minio: connection failed")
	ErrBucketNotFound   = errors.New("minio: bucket not found")
	ErrObjectNotFound   = errors.New("minio: object not found")
	ErrAccessDenied     = errors.New("minio: access denied")
	ErrInvalidArgument  = errors.New("minio: invalid argument")
)

// TranslateError maps S3 error responses onto the sentinel errors above,
// keeping the original error in the chain.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	var target error
	switch {
	case resp.Code == "NoSuchBucket":
		target = ErrBucketNotFound
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		target = ErrObjectNotFound
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden:
		target = ErrAccessDenied
	default:
		return err
	}
	return errors.Join(target, err)
}

// IsRetryableError reports whether err is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrBucketNotFound) {
		return false
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return true
}
