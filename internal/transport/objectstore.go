package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client the resolver uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Compile-time check that *s3.Client implements S3API.
var _ S3API = (*s3.Client)(nil)

// NewS3Client builds an S3 client from the default AWS configuration. A
// non-empty endpoint selects an S3-compatible service with path-style
// addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// bucketKey splits s3://bucket/key or gs://bucket/key.
func bucketKey(u *url.URL) (string, string, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q: expected %s://bucket/key", ErrRemoteOpen, u.Redacted(), u.Scheme)
	}
	return bucket, key, nil
}

func (r *Resolver) s3Client(ctx context.Context) (S3API, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s3 != nil {
		return r.s3, nil
	}
	c, err := NewS3Client(ctx, "", "")
	if err != nil {
		return nil, err
	}
	r.s3 = c
	return c, nil
}

func (r *Resolver) openS3(ctx context.Context, u *url.URL) (*Source, error) {
	bucket, key, err := bucketKey(u)
	if err != nil {
		return nil, err
	}
	client, err := r.s3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, u.String(), err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %q: no such key", ErrRemoteOpen, u.String())
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, u.String(), err)
	}
	return &Source{Body: out.Body, Remote: true, Size: -1}, nil
}

func (r *Resolver) gcsClient(ctx context.Context) (*storage.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gcs != nil {
		return r.gcs, nil
	}
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	r.gcs, r.ownsGCS = c, true
	return c, nil
}

func (r *Resolver) openGCS(ctx context.Context, u *url.URL) (*Source, error) {
	bucket, object, err := bucketKey(u)
	if err != nil {
		return nil, err
	}
	client, err := r.gcsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, u.String(), err)
	}

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %q: object does not exist", ErrRemoteOpen, u.String())
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, u.String(), err)
	}
	return &Source{Body: reader, Remote: true, Size: -1}, nil
}
