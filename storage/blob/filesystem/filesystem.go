package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/storage/blob"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// StoreImpl stores objects as files below a local directory.
type StoreImpl struct {
	basePath  string
	publicURL string
	mu        sync.RWMutex // Protects file operations
}

// NewFilesystemBlobStore creates a new filesystem-based blob store.
func NewFilesystemBlobStore(cfg *config.FilesystemBlobStrategy) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem blob config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &StoreImpl{
		basePath:  filepath.Clean(cfg.Path),
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
	}, nil
}

// resolve maps a key to an absolute path, refusing keys that escape basePath.
func (fsys *StoreImpl) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if key == "" || cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}

	return filepath.Join(fsys.basePath, filepath.FromSlash(cleaned)), nil
}

func (fsys *StoreImpl) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	absPath, err := fsys.resolve(key)
	if err != nil {
		return err
	}

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	return writeFile(absPath, body)
}

func writeFile(absPath string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	outFile, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, body); err != nil {
		_ = os.Remove(absPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (fsys *StoreImpl) Get(ctx context.Context, key string) ([]byte, error) {
	absPath, err := fsys.resolve(key)
	if err != nil {
		return nil, err
	}

	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	data, err := os.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

func (fsys *StoreImpl) Copy(ctx context.Context, srcKey, dstKey string) error {
	srcPath, err := fsys.resolve(srcKey)
	if err != nil {
		return err
	}
	dstPath, err := fsys.resolve(dstKey)
	if err != nil {
		return err
	}

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	src, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", srcKey, blob.ErrNotFound)
		}
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	return writeFile(dstPath, src)
}

// Delete removes a file; a missing file counts as deleted.
func (fsys *StoreImpl) Delete(ctx context.Context, key string) error {
	absPath, err := fsys.resolve(key)
	if err != nil {
		return err
	}

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

func (fsys *StoreImpl) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	root := fsys.basePath
	if dir := path.Dir(prefix + "x"); dir != "." {
		root = filepath.Join(fsys.basePath, filepath.FromSlash(dir))
	}

	var out []blob.ObjectInfo
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(fsys.basePath, p)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		out = append(out, blob.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (fsys *StoreImpl) BaseURL() string {
	return fsys.publicURL
}

func (fsys *StoreImpl) PublicURL(key string) string {
	return fsys.publicURL + key
}

func (fsys *StoreImpl) KeyFromURL(url string) (string, error) {
	return blob.TrimBaseURL(fsys.publicURL, url)
}
