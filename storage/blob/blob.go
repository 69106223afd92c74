package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound indicates that no object exists under the requested key.
var ErrNotFound = errors.New("blob not found")

// ErrForeignURL is returned when a URL does not point into this store.
var ErrForeignURL = errors.New("url does not belong to this blob store")

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a key/value object store with public URLs.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	// Delete treats a missing key as success.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// BaseURL is the public URL prefix, always ending in a slash.
	BaseURL() string
	PublicURL(key string) string
	KeyFromURL(url string) (string, error)
}
