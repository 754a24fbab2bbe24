package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalBucket keeps objects on the local filesystem under BasePath/Bucket.
type LocalBucket struct {
	dir     string
	bucket  string
	baseURL string
}

// NewLocalBucket creates the bucket directory if needed.
func NewLocalBucket(cfg Config) (*LocalBucket, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./data/storage"
	}
	dir := filepath.Join(basePath, cfg.Bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalBucket{
		dir:     dir,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Dir returns the directory the bucket serves from.
func (b *LocalBucket) Dir() string {
	return b.dir
}

// Upload writes the object, refusing to overwrite.
func (b *LocalBucket) Upload(ctx context.Context, name string, r io.Reader, _ string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(b.dir, name)
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, name)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}

// PublicURL returns BaseURL/storage/v1/object/public/<bucket>/<name>.
func (b *LocalBucket) PublicURL(name string) string {
	return fmt.Sprintf("%s%s/%s/%s", b.baseURL, PublicPathPrefix, url.PathEscape(b.bucket), url.PathEscape(name))
}

// Remove deletes objects; names that do not exist are skipped.
func (b *LocalBucket) Remove(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validateName(name); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete file: %w", err))
		}
	}
	return errors.Join(errs...)
}
