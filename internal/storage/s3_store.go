package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// putObjectAPI is the subset of the S3 client used by s3Store.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store implements LabelStore on AWS S3.
type s3Store struct {
	client putObjectAPI
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed label store.
func NewS3Store(ctx context.Context, bucket, region string, logger zerolog.Logger) (LabelStore, error) {
	logger = logger.With().Str("component", "s3-label-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 label store initialised")

	return newS3Store(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Store(client putObjectAPI, bucket string, logger zerolog.Logger) *s3Store {
	return &s3Store{client: client, bucket: bucket, logger: logger}
}

// Put uploads the label. key should be the full S3 key including any prefix.
func (s *s3Store) Put(ctx context.Context, key string, label Label) (string, error) {
	if err := label.validate(); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(label.Content),
		ContentLength: aws.Int64(int64(len(label.Content))),
		Metadata:      map[string]string{"filename": label.Filename},
	}
	if label.ContentType != "" {
		input.ContentType = aws.String(label.ContentType)
	}
	if label.Filename != "" {
		input.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", label.Filename))
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("bytes", len(label.Content)).
		Msg("shipping label uploaded to S3")

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// fallbackStore writes to S3 first, then falls back to the local file system.
type fallbackStore struct {
	s3Store   LabelStore
	fileStore LabelStore
	s3Prefix  string
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that tries S3 first, then the local file system.
// If s3Store is nil, only the file store is used.
func NewFallbackStore(s3Store, fileStore LabelStore, s3Prefix string, s3Enabled bool, logger zerolog.Logger) LabelStore {
	return &fallbackStore{
		s3Store:   s3Store,
		fileStore: fileStore,
		s3Prefix:  s3Prefix,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "fallback-label-store").Logger(),
	}
}

// Put prepends s3Prefix to key for S3; the local store uses key as-is.
func (s *fallbackStore) Put(ctx context.Context, key string, label Label) (string, error) {
	if s.s3Enabled && s.s3Store != nil {
		s3Key := s.s3Prefix + key
		location, err := s.s3Store.Put(ctx, s3Key, label)
		if err == nil {
			return location, nil
		}
		s.logger.Warn().
			Err(err).
			Str("s3_key", s3Key).
			Msg("failed to store label in S3, falling back to local file system")
	} else {
		s.logger.Debug().
			Bool("s3_enabled", s.s3Enabled).
			Bool("has_s3_store", s.s3Store != nil).
			Msg("S3 disabled or not configured, using local file system")
	}

	return s.fileStore.Put(ctx, key, label)
}
