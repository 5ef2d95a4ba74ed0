package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/dukerupert/bizznex/internal"
)

// Storage archives rendered documents. Keys are slash-separated relative
// paths such as "invoices/INV-202601-001.pdf".
type Storage interface {
	// Put writes content under key and returns the URL it can be read from.
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
	// Get fails with ErrNotFound for a missing key. The caller closes the
	// reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete succeeds when key is already gone.
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}

// checkKey rejects keys that are empty, absolute or climb out of their
// prefix.
func checkKey(key string) error {
	clean := path.Clean(key)
	switch {
	case key == "", clean != key, clean == ".", clean == "..":
		return ErrInvalidKey
	case path.IsAbs(clean), strings.HasPrefix(clean, "../"):
		return ErrInvalidKey
	}
	return nil
}

// InvoiceKey is the archive key for an invoice document.
func InvoiceKey(invoiceNumber string) string {
	return "invoices/" + invoiceNumber + ".pdf"
}

// NewStorage picks the backend named by cfg.Provider. "s3" and "r2" both
// use the S3 API, with S3Endpoint set for non-AWS hosts.
func NewStorage(cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3", "r2":
		return NewS3Storage(context.Background(), S3Config{
			Endpoint:    cfg.S3Endpoint,
			Region:      cfg.S3Region,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
			Bucket:      cfg.S3Bucket,
			PublicURL:   cfg.S3PublicURL,
		})
	default:
		return nil, unknownProvider(cfg.Provider)
	}
}
