package artifact

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Opts func(c *s3Config)

type s3Config struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func WithEndpoint(endpoint string) S3Opts {
	return func(c *s3Config) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) S3Opts {
	return func(c *s3Config) {
		c.bucket = bucket
	}
}

func WithCredentials(accessKey, secretAccessKey string) S3Opts {
	return func(c *s3Config) {
		c.accessKey = accessKey
		c.secretAccessKey = secretAccessKey
	}
}

func WithSSL(useSSL bool) S3Opts {
	return func(c *s3Config) {
		c.useSSL = useSSL
	}
}

// S3Store keeps artifacts in an S3-compatible bucket, keyed by the same
// relative path the local store uses.
type S3Store struct {
	cfg    *s3Config
	client *minio.Client
}

var _ Store = (*S3Store)(nil)

func NewS3Store(opts ...S3Opts) (*S3Store, error) {
	cfg := &s3Config{useSSL: false}
	for _, o := range opts {
		o(cfg)
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{cfg: cfg, client: client}, nil
}

func (s *S3Store) Put(ctx context.Context, relPath string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.cfg.bucket, relPath,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (s *S3Store) Remove(ctx context.Context, relPath string) error {
	return s.client.RemoveObject(ctx, s.cfg.bucket, relPath, minio.RemoveObjectOptions{})
}
