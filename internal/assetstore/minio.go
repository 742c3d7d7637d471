// Package assetstore adapts the teacher's MinIO wrapper into the
// supplemental case-asset store described in SPEC_FULL.md's DOMAIN STACK:
// a Case may carry an AssetSource object key whose bytes the Workspace
// materializes under tmp/ before the case runs. Callers that never set
// AssetSource never touch this package, since Workspace treats a nil
// Store as "no remote assets configured".
package assetstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"onlinejudge/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the configured bucket exists. It
// returns (nil, nil) when cfg.Enabled is false, so callers can treat a
// nil *Store as "no asset store configured" without a type assertion.
func New(cfg config.MinIOConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("assetstore: create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("assetstore: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("assetstore: create bucket: %w", err)
		}
	}

	return &Store{client: client, bucket: cfg.BucketName}, nil
}

// Fetch downloads the object named by key and returns its bytes.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("assetstore: get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("assetstore: read %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data under key as text/plain. Nothing in this module calls
// it; the judge path only reads assets through Fetch.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("assetstore: put %s: %w", key, err)
	}
	return nil
}
