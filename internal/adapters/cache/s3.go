package cache

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 stores cache blobs in an S3 compatible bucket.
type S3 struct {
	opts   Options
	client *minio.Client
}

// NewS3 creates the s3 backend. Credentials fall back to the standard AWS
// environment variables.
func NewS3(opts Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 cache requires a bucket")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	creds := credentials.NewEnvAWS()
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !opts.Insecure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &S3{opts: opts, client: client}, nil
}

func (s *S3) Type() string { return TypeS3 }

func (s *S3) attrs() []string {
	attrs := []string{"region=" + s.opts.Region, "bucket=" + s.opts.Bucket, "name=" + s.opts.Scope}
	if s.opts.Endpoint != "" {
		scheme := "https://"
		if s.opts.Insecure {
			scheme = "http://"
		}
		attrs = append(attrs, "endpoint_url="+scheme+s.opts.Endpoint, "use_path_style=true")
	}
	return attrs
}

func (s *S3) ReadChannel() string {
	return channel(TypeS3, s.attrs()...)
}

func (s *S3) WriteChannel() string {
	return channel(TypeS3, append(s.attrs(), "mode=max")...)
}

// Available probes the bucket.
func (s *S3) Available(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.opts.Bucket)
	if err != nil {
		return fmt.Errorf("probing bucket %s: %w", s.opts.Bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.opts.Bucket)
	}
	return nil
}
