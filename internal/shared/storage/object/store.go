package object

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary artifacts.
// DownloadURL mints a public, expiring URL for a stored object; the token in
// the URL is the only credential a downloader needs.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	DownloadURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}
