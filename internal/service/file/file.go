package file

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/model"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type UploadResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type Config struct {
	InlineMaxBytes int
	UploadMaxBytes int64
}

func DefaultConfig() Config {
	return Config{InlineMaxBytes: 300 << 10, UploadMaxBytes: 10 << 20}
}

func FromCentralConfig(c *config.Config) Config {
	cfg := DefaultConfig()
	if c.Tickets.InlinePhotoMaxKB > 0 {
		cfg.InlineMaxBytes = c.Tickets.InlinePhotoMaxKB << 10
	}
	if c.Tickets.UploadMaxMB > 0 {
		cfg.UploadMaxBytes = int64(c.Tickets.UploadMaxMB) << 20
	}
	return cfg
}

// Blobs is the object store. *s3.Client satisfies it.
type Blobs interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	UploadPhoto(ctx context.Context, uid, filename, contentType string, body io.Reader, size int64) (*UploadResult, error)
	DeletePhoto(ctx context.Context, caller model.Actor, key string) error
	// ValidateInline accepts a base64 data URI carrying a jpeg, png or webp
	// image under the inline size ceiling.
	ValidateInline(dataURI string) error
	// ResolveURL presigns blob keys. Inline data URIs are returned as is.
	ResolveURL(ctx context.Context, ref string) (string, error)
	CheckPhoto(ref string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

var (
	imageExt = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
	dataURIRe = regexp.MustCompile(`^data:(image/(?:jpeg|png|webp));base64,`)
	keyRe     = regexp.MustCompile(`^tickets/[^/]+/[0-9a-f-]{36}\.(?:jpg|png|webp)$`)
)

type fileService struct {
	blobs Blobs // nil when storage is not configured
	cfg   Config
}

func New(blobs Blobs, cfg Config) Service {
	return &fileService{blobs: blobs, cfg: cfg}
}

func (s *fileService) UploadPhoto(ctx context.Context, uid, filename, contentType string, body io.Reader, size int64) (*UploadResult, error) {
	if s.blobs == nil {
		return nil, ErrStorageDisabled
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mime == "" || mime == "application/octet-stream" {
		mime = mimeFromExt(filename)
	}
	ext, ok := imageExt[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size > s.cfg.UploadMaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, s.cfg.UploadMaxBytes)
	}

	key := fmt.Sprintf("tickets/%s/%s%s", uid, uuid.Must(uuid.NewV7()), ext)
	if err := s.blobs.Upload(ctx, key, mime, body, size); err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	url, err := s.blobs.PresignDownload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign photo: %w", err)
	}

	return &UploadResult{Key: key, URL: url, Size: size, MimeType: mime}, nil
}

// DeletePhoto removes an uploaded photo. Only the uploader, whose id is part
// of the key, or an administrator may do so.
func (s *fileService) DeletePhoto(ctx context.Context, caller model.Actor, key string) error {
	if s.blobs == nil {
		return ErrStorageDisabled
	}
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	if !caller.Role.IsAdmin() && !strings.HasPrefix(key, "tickets/"+caller.ID+"/") {
		return ErrForbidden
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func (s *fileService) ValidateInline(dataURI string) error {
	m := dataURIRe.FindStringSubmatch(dataURI)
	if m == nil {
		return ErrInvalidDataURI
	}
	payload := dataURI[len(m[0]):]
	// reject before decoding anything the ceiling already rules out
	if base64.StdEncoding.DecodedLen(len(payload)) > s.cfg.InlineMaxBytes+2 {
		return fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.cfg.InlineMaxBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(raw) == 0 {
		return ErrInvalidDataURI
	}
	if len(raw) > s.cfg.InlineMaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(raw), s.cfg.InlineMaxBytes)
	}
	if sniffed := http.DetectContentType(raw); sniffed != m[1] {
		return fmt.Errorf("%w: declared %s, content is %s", ErrUnsupportedType, m[1], sniffed)
	}
	return nil
}

func (s *fileService) ResolveURL(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	if s.blobs == nil {
		return "", ErrStorageDisabled
	}
	if !keyRe.MatchString(ref) {
		return "", ErrInvalidKey
	}
	url, err := s.blobs.PresignDownload(ctx, ref)
	if err != nil {
		slog.Warn("presign photo failed", "key", ref, "err", err)
		return "", fmt.Errorf("presign photo: %w", err)
	}
	return url, nil
}

func (s *fileService) CheckPhoto(ref string) error {
	if strings.HasPrefix(ref, "data:") {
		return s.ValidateInline(ref)
	}
	if !keyRe.MatchString(ref) {
		return ErrInvalidKey
	}
	return nil
}

func mimeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}
