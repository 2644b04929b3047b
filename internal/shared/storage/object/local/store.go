package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"domainworth-backend/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem. Download URLs are
// signed with an HMAC secret and served by the artifacts route.
type Store struct {
	baseDir   string
	secret    string
	publicURL string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir, secret, publicURL string) object.ObjectStore {
	return &Store{
		baseDir:   baseDir,
		secret:    secret,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// SaveWithKey writes the reader to disk at a specific storage key.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	clean, err := cleanKey(storageKey)
	if err != nil {
		return 0, err
	}

	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	_ = contentType
	return written, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := cleanKey(storageKey)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, clean))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DownloadURL mints a tokenized URL served by the artifacts route.
func (s *Store) DownloadURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.secret == "" {
		return "", fmt.Errorf("artifact url secret is not configured")
	}

	clean, err := cleanKey(storageKey)
	if err != nil {
		return "", err
	}

	exp := int64(0)
	if ttl > 0 {
		exp = time.Now().UTC().Add(ttl).Unix()
	}
	token := object.SignDownloadToken(s.secret, clean, exp)

	q := url.Values{}
	q.Set("token", token)
	q.Set("exp", strconv.FormatInt(exp, 10))
	return fmt.Sprintf("%s/api/v1/artifacts/%s?%s", s.publicURL, clean, q.Encode()), nil
}

func cleanKey(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return clean, nil
}

var _ object.ObjectStore = (*Store)(nil)
