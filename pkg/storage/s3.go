package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	s3MaxRetries = 3
	s3OpTimeout  = 30 * time.Second
)

// s3Store keeps converted files in an S3 bucket under an optional key
// prefix. Deployments that scale the service horizontally use this
// backend so any instance can serve any download.
type s3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed store using the default AWS credential
// chain.
func NewS3Store(bucket, prefix string) (Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRetryMaxAttempts(s3MaxRetries),
	)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &s3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *s3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *s3Store) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}

	// PutObject needs a seekable body for request signing
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read object data for %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		slog.Error("Failed to put object to S3",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to store %s: %w", key, err)
	}

	slog.Debug("Stored object in S3", slog.String("key", key), slog.Int("size", len(data)))
	return int64(len(data)), nil
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	// No timeout wrapper here: the returned body is streamed by the
	// caller and must not be tied to a context that ends on return.
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		slog.Error("Failed to get object from S3",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	return out.Body, nil
}

func (s *s3Store) Remove(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
