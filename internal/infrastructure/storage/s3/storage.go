// Package s3 stores source documents and reports in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/infrastructure/resilience"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Storage struct {
	mc       *minio.Client
	bucket   string
	executor *resilience.Executor
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Storage, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: connect: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("s3: check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("s3: create bucket: %w", err)
		}
	}

	return &Storage{mc: mc, bucket: cfg.Bucket, executor: executor}, nil
}

// Save streams data as one object. Retries are only attempted for seekable readers.
func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	put := func(ctx context.Context) error {
		if seeker, ok := data.(io.Seeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("s3: rewind %s: %w", key, err)
			}
		}
		_, err := s.mc.PutObject(ctx, s.bucket, key, data, -1, minio.PutObjectOptions{})
		if err != nil {
			return fmt.Errorf("s3: store %s: %w", key, err)
		}
		return nil
	}

	if _, seekable := data.(io.Seeker); s.executor == nil || !seekable {
		return put(ctx)
	}
	return s.executor.Execute(ctx, "s3.put", put, classifyS3Error)
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.mc.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "s3 open", err)
		}
		return nil, fmt.Errorf("s3: stat %s: %w", key, err)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: fetch %s: %w", key, err)
	}
	return obj, nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for info := range s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, info.Err)
		}
		keys = append(keys, info.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func classifyS3Error(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if resilience.IsContextError(err) {
		return resilience.ErrorClassification{}
	}
	switch minio.ToErrorResponse(err).StatusCode {
	case 0, 429, 500, 502, 503, 504:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}
