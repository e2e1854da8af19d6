package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
)

const defaultMaxUpload = 20 << 20

// BlobStore 对象存储，返回可供客户端引用的 URL
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}

var mediaTypes = map[string]struct {
	kind string
	ext  string
}{
	"image/jpeg":      {"image", ".jpg"},
	"image/png":       {"image", ".png"},
	"image/gif":       {"image", ".gif"},
	"image/webp":      {"image", ".webp"},
	"video/mp4":       {"video", ".mp4"},
	"video/webm":      {"video", ".webm"},
	"video/quicktime": {"video", ".mov"},
}

type MediaView struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload 描述一次上传
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type MediaService interface {
	Upload(ctx context.Context, caller identity.Identity, up Upload) (*MediaView, error)
}

type mediaService struct {
	store   BlobStore
	maxSize int64
}

// NewMediaService store 为 nil 时上传返回 Unavailable
func NewMediaService(store BlobStore, maxSize int64) MediaService {
	if maxSize <= 0 {
		maxSize = defaultMaxUpload
	}
	return &mediaService{store: store, maxSize: maxSize}
}

func (s *mediaService) Upload(ctx context.Context, caller identity.Identity, up Upload) (*MediaView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, apperr.Unavailable("media storage is not configured")
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(up.ContentType, ";", 2)[0]))
	mt, ok := mediaTypes[ct]
	if !ok {
		return nil, apperr.Validation("file: unsupported content type " + ct)
	}
	if up.Size <= 0 {
		return nil, apperr.Validation("file: empty upload")
	}
	if up.Size > s.maxSize {
		return nil, apperr.Validation(fmt.Sprintf("file: larger than %d bytes", s.maxSize))
	}
	ext := strings.ToLower(path.Ext(up.Filename))
	if ext == "" || len(ext) > 6 {
		ext = mt.ext
	}
	key := fmt.Sprintf("uploads/%d/%s%s", caller.UserID, uuid.New().String(), ext)
	url, err := s.store.Put(ctx, key, ct, up.Body, up.Size)
	if err != nil {
		return nil, apperr.Internal("upload media", err)
	}
	return &MediaView{URL: url, Key: key, Kind: mt.kind, ContentType: ct, Size: up.Size}, nil
}
