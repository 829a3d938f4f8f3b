package assets

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3HeadObjectAPI is the subset of the S3 client S3Resolver depends on,
// narrowed for testability.
type s3HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Resolver resolves asset source paths against an asset manifest stored
// in an S3 bucket (one object per fingerprinted asset, keyed by the
// manifest prefix). It caches lookups in-process since the manifest is
// immutable for the lifetime of a deployed build.
type S3Resolver struct {
	client s3HeadObjectAPI
	bucket string
	prefix string
	cdnURL string

	mu    sync.RWMutex
	cache map[string]string
}

// NewS3Resolver creates a resolver backed by the given bucket. cdnURL is
// prepended to the object key to form the public URL (e.g.
// "https://cdn.example.com"); prefix is the object key prefix under which
// fingerprinted assets are stored (e.g. "assets/").
func NewS3Resolver(client s3HeadObjectAPI, bucket, prefix, cdnURL string) *S3Resolver {
	return &S3Resolver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		cdnURL: strings.TrimRight(cdnURL, "/"),
		cache:  make(map[string]string),
	}
}

// Asset resolves source against the S3-backed manifest. If the object
// exists under prefix+source, its URL is returned; otherwise source is
// returned unchanged (mirroring manifestResolver's miss behavior) so a
// deploy still renders, just without fingerprinting, if an asset was
// never uploaded.
func (r *S3Resolver) Asset(ctx context.Context, source string) string {
	r.mu.RLock()
	if cached, ok := r.cache[source]; ok {
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	key := r.prefix + source
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})

	resolved := source
	if err == nil {
		resolved = r.cdnURL + "/" + key
	}

	r.mu.Lock()
	r.cache[source] = resolved
	r.mu.Unlock()
	return resolved
}
