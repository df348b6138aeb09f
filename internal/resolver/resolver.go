// Package resolver mints time-limited renderable URLs from durable storage
// paths. The resolver is stateless and knows nothing about drafts; expiry of
// the minted URLs is independent of any draft's modification time, which is
// why sessions regenerate unconditionally on load.
package resolver

import (
	"context"
	"time"

	"draft-engine/internal/common/aws"
	"draft-engine/internal/common/errors"
)

// Resolver converts a durable storage path into a renderable URL valid for a
// bounded window the caller cannot query.
type Resolver interface {
	Resolve(ctx context.Context, bucket, path string) (string, error)
}

// S3Resolver resolves paths against S3 presigned GET URLs.
type S3Resolver struct {
	s3  *aws.S3Client
	ttl time.Duration
}

func NewS3Resolver(s3 *aws.S3Client, ttl time.Duration) *S3Resolver {
	return &S3Resolver{s3: s3, ttl: ttl}
}

func (r *S3Resolver) Resolve(ctx context.Context, bucket, path string) (string, error) {
	url, err := r.s3.PresignGet(ctx, bucket, path, r.ttl)
	if err != nil {
		return "", errors.NewReferenceUnavailableError(path, err)
	}
	return url, nil
}
