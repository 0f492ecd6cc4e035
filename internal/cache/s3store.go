package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/southerncoder/tradecache/internal/config"
	"github.com/southerncoder/tradecache/internal/types"
)

// S3Store implements PersistentStore against an S3 bucket. Objects live
// under the configured key prefix and carry the serialized entry as their
// body, gzipped when the entry was flagged for compression.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	closed atomic.Bool
}

// NewS3Store builds the store from the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.L3Config, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.DefaultTTL,
		logger: logger.With("component", "s3-store"),
	}, nil
}

// NewS3StoreWithClient injects a client, used by tests and custom endpoints.
func NewS3StoreWithClient(client *s3.Client, cfg config.L3Config, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.DefaultTTL,
		logger: logger.With("component", "s3-store"),
	}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + hashKey(key) + ".json"
}

// GetFromStore fetches and decodes an entry. Missing objects and expired
// entries return (nil, nil); expired objects are deleted on the way out.
func (s *S3Store) GetFromStore(ctx context.Context, key string) (*types.Entry, error) {
	if s.closed.Load() {
		return nil, types.ErrTierUnavailable
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, types.NewCacheError("GetFromStore", key, "s3-store", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, types.NewCacheError("GetFromStore", key, "s3-store", err)
	}

	if aws.ToString(out.ContentEncoding) == "gzip" {
		data, err = gunzip(data)
		if err != nil {
			s.logger.Warn("Discarding undecodable object", "key", key, "error", err)
			_, _ = s.deleteObject(ctx, key)
			return nil, nil
		}
	}

	var entry types.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("Discarding undecodable object", "key", key, "error", err)
		_, _ = s.deleteObject(ctx, key)
		return nil, nil
	}

	if entry.ExpiredAt(time.Now()) {
		_, _ = s.deleteObject(ctx, key)
		return nil, nil
	}

	return &entry, nil
}

// SetToStore encodes and uploads an entry.
func (s *S3Store) SetToStore(ctx context.Context, entry *types.Entry) error {
	if s.closed.Load() {
		return types.ErrTierUnavailable
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return types.NewCacheError("SetToStore", entry.Key, "s3-store", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(entry.Key)),
	}

	if entry.Compressed {
		data, err = gzipBytes(data)
		if err != nil {
			return types.NewCacheError("SetToStore", entry.Key, "s3-store", err)
		}
		input.ContentEncoding = aws.String("gzip")
	}
	input.Body = bytes.NewReader(data)

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return types.NewCacheError("SetToStore", entry.Key, "s3-store", err)
	}
	return nil
}

// DeleteFromStore removes an entry. S3 deletes are idempotent, so presence
// is checked first to report whether anything was removed.
func (s *S3Store) DeleteFromStore(ctx context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, types.ErrTierUnavailable
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, types.NewCacheError("DeleteFromStore", key, "s3-store", err)
	}

	return s.deleteObject(ctx, key)
}

// ClearStore removes every object under the prefix.
func (s *S3Store) ClearStore(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrTierUnavailable
	}

	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return types.NewCacheError("ClearStore", s.prefix, "s3-store", err)
		}

		for _, obj := range out.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return types.NewCacheError("ClearStore", aws.ToString(obj.Key), "s3-store", err)
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	return nil
}

// Close marks the store unusable. The underlying client holds no
// connections that need tearing down.
func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *S3Store) deleteObject(ctx context.Context, key string) (bool, error) {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return false, types.NewCacheError("DeleteFromStore", key, "s3-store", err)
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

var _ types.PersistentStore = (*S3Store)(nil)
