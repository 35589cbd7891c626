package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"elearning/backend/config"
)

var (
	ErrEmptyUpload = errors.New("上传文件为空")
	ErrInvalidRef  = errors.New("文件引用非法")
)

// Upload 待保存的上传文件
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileStore 文件存储抽象
// Store 返回的引用为相对路径（如 submissions/12/34/xxx.pdf），可原样写入数据库
type FileStore interface {
	Store(ctx context.Context, dir string, up *Upload) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// New 按配置创建存储实现
func New(cfg *config.StorageConfig, logger *zap.Logger) (FileStore, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.LocalRoot, cfg.PublicBaseURL)
	case "oss":
		return NewOSSStore(&cfg.OSS, cfg.PublicBaseURL, logger)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Driver)
	}
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// sniff 读取文件头识别 MIME 类型，返回类型、扩展名以及可完整读取原内容的 reader
func sniff(up *Upload) (string, string, io.Reader, error) {
	if up == nil || up.Content == nil {
		return "", "", nil, ErrEmptyUpload
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if n == 0 {
		return "", "", nil, ErrEmptyUpload
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !extPattern.MatchString(ext) {
		ext = mt.Extension()
	}

	return mt.String(), ext, io.MultiReader(bytes.NewReader(head), up.Content), nil
}

// objectKey 生成 dir 下的随机文件名
func objectKey(dir, ext string) string {
	return path.Join(strings.Trim(dir, "/"), uuid.NewString()+ext)
}

// cleanRef 校验引用不会越出存储根目录
func cleanRef(ref string) (string, error) {
	if ref == "" {
		return "", ErrInvalidRef
	}
	cleaned := path.Clean("/" + ref)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(ref, "/") {
		return "", ErrInvalidRef
	}
	return cleaned, nil
}
