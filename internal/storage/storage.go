package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the blob store behind message attachments. The chat core only
// writes blobs and hands out their URLs; it never reads the bytes back, and
// serving them is the backend's (or a CDN's) job.
type Storage interface {
	// Save writes the blob under the given key.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error

	// GetURL returns the public URL clients use to fetch the blob.
	GetURL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a storage backend.
type Config struct {
	Type      string // local, s3, cloudflare_r2
	BasePath  string // local: directory blobs are written under
	BaseURL   string // public URL prefix; backends fall back to a sensible default
	Bucket    string // s3/r2
	Region    string // s3; r2 ignores it
	AccessKey string // s3/r2
	SecretKey string // s3/r2
	Endpoint  string // r2 or custom s3 endpoint
}

// NewStorage builds the backend named by cfg.Type.
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStorage(cfg)
	case "s3", "cloudflare_r2":
		// R2 is S3-compatible; both go through the same SDK client.
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
