package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"

	"elearning/backend/config"
)

// OSSStore 阿里云 OSS 存储
type OSSStore struct {
	bucket  *oss.Bucket
	prefix  string
	baseURL string
	logger  *zap.Logger
}

// NewOSSStore 创建 OSS 存储
// baseURL 为空时使用 https://{bucket}.{endpoint}
func NewOSSStore(cfg *config.OSSConfig, baseURL string, logger *zap.Logger) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if baseURL == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		baseURL = fmt.Sprintf("https://%s.%s", cfg.Bucket, host)
	}

	return &OSSStore{
		bucket:  bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *OSSStore) objectName(ref string) string {
	if s.prefix == "" {
		return ref
	}
	return path.Join(s.prefix, ref)
}

func (s *OSSStore) Store(ctx context.Context, dir string, up *Upload) (string, error) {
	ct, ext, reader, err := sniff(up)
	if err != nil {
		return "", err
	}

	key := objectKey(dir, ext)
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(ct),
		oss.ContentDisposition("attachment"),
	}
	if err := s.bucket.PutObject(s.objectName(key), reader, opts...); err != nil {
		return "", fmt.Errorf("上传 OSS 失败: %w", err)
	}

	s.logger.Debug("文件已上传 OSS", zap.String("key", key), zap.String("content_type", ct))
	return key, nil
}

func (s *OSSStore) Delete(ctx context.Context, ref string) error {
	key, err := cleanRef(ref)
	if err != nil {
		return err
	}
	if err := s.bucket.DeleteObject(s.objectName(key), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("删除 OSS 对象失败: %w", err)
	}
	return nil
}

func (s *OSSStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + s.objectName(strings.TrimPrefix(ref, "/"))
}
