// Package blob stores uploaded media in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/d60-Lab/blogapi/config"
)

type MinioStore struct {
	cfg    config.StorageConfig
	client *minio.Client
}

func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{cfg: cfg, client: cl}, nil
}

// EnsureBucket 启动时创建 bucket（已存在则跳过）
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Put uploads the object and returns the URL clients should reference.
func (s *MinioStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size,
		minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", err
	}
	return s.URL(ctx, key)
}

// URL 配置了 public_base_url 时拼接公开地址，否则返回预签名 GET
func (s *MinioStore) URL(ctx context.Context, key string) (string, error) {
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + s.cfg.Bucket + "/" + key, nil
	}
	ttl := s.cfg.PresignTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

// Ping 健康检查
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	return err
}
