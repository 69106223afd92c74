package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

const defaultMemoryBaseURL = "https://blob.invalid/"

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// MemoryStore keeps objects in process memory. It backs tests and single-node trials.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string

	// Clock stamps LastModified on writes; defaults to time.Now.
	Clock func() time.Time
}

func NewMemoryStore(publicURL string) *MemoryStore {
	if strings.TrimSpace(publicURL) == "" {
		publicURL = defaultMemoryBaseURL
	}

	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: storageutil.NormalizeBaseURL(publicURL),
		Clock:   time.Now,
	}
}

func (ms *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	ms.mu.Lock()
	ms.objects[key] = memoryObject{data: data, contentType: contentType, lastModified: ms.Clock()}
	ms.mu.Unlock()

	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	obj, ok := ms.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return bytes.Clone(obj.data), nil
}

func (ms *MemoryStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, ok := ms.objects[srcKey]
	if !ok {
		return fmt.Errorf("%s: %w", srcKey, ErrNotFound)
	}

	ms.objects[dstKey] = memoryObject{data: bytes.Clone(obj.data), contentType: obj.contentType, lastModified: ms.Clock()}
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.objects, key)
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range ms.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Touch overrides the modification time of an existing object.
func (ms *MemoryStore) Touch(key string, at time.Time) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, ok := ms.objects[key]
	if !ok {
		return false
	}

	obj.lastModified = at
	ms.objects[key] = obj
	return true
}

// Has reports whether key is present.
func (ms *MemoryStore) Has(key string) bool {
	ms.mu.RLock()
	_, ok := ms.objects[key]
	ms.mu.RUnlock()
	return ok
}

// Len returns the number of stored objects.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.objects)
}

func (ms *MemoryStore) BaseURL() string {
	return ms.baseURL
}

func (ms *MemoryStore) PublicURL(key string) string {
	return ms.baseURL + key
}

func (ms *MemoryStore) KeyFromURL(url string) (string, error) {
	return TrimBaseURL(ms.baseURL, url)
}

// TrimBaseURL strips base from url, failing when url lies outside base.
func TrimBaseURL(base, url string) (string, error) {
	if !strings.HasPrefix(url, base) {
		return "", ErrForeignURL
	}

	key := strings.TrimPrefix(url, base)
	if key == "" {
		return "", fmt.Errorf("url %q has an empty key", url)
	}

	return key, nil
}
