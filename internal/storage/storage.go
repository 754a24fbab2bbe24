package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

var (
	ErrObjectExists      = errors.New("object already exists")
	ErrObjectNotFound    = errors.New("object not found")
	ErrInvalidObjectName = errors.New("invalid object name")
)

// PublicPathPrefix is the URL path under which public bucket objects are served.
const PublicPathPrefix = "/storage/v1/object/public"

// Bucket stores thumbnail blobs.
type Bucket interface {
	// Upload stores r under name. It fails with ErrObjectExists when name is taken.
	Upload(ctx context.Context, name string, r io.Reader, contentType string) error

	// PublicURL resolves the public URL of name. It does not check existence.
	PublicURL(name string) string

	// Remove deletes the named objects. Missing objects are not an error.
	Remove(ctx context.Context, names ...string) error
}

// Config holds storage configuration.
type Config struct {
	Type      string // local, s3
	Bucket    string
	BasePath  string // local root directory
	BaseURL   string // public base URL of the service, used by local storage
	Endpoint  string // s3 compatible endpoint
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string // public base URL of the s3 bucket
}

// New creates a bucket based on configuration.
func New(cfg Config) (Bucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	switch cfg.Type {
	case "", "local":
		return NewLocalBucket(cfg)
	case "s3":
		return NewS3Bucket(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ObjectNameFromURL returns the object name a public URL points at, which is
// its last path segment. Empty input or a URL without a segment yields "".
func ObjectNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	p := raw
	if parsed, err := url.Parse(raw); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidObjectName, name)
	}
	return nil
}
