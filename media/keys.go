package media

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/indieinfra/mediacycle/config"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

const maxFilenameStem = 100

// Namer computes staging and permanent storage keys.
type Namer struct {
	categories map[string]config.Category
	staging    *storageutil.KeyPattern
	owner      *storageutil.KeyPattern
	system     *storageutil.KeyPattern

	now    func() time.Time
	random func() string
}

func NewNamer(categories []config.Category) *Namer {
	byName := make(map[string]config.Category, len(categories))
	for _, c := range categories {
		byName[c.Name] = c
	}

	return &Namer{
		categories: byName,
		staging:    storageutil.DefaultStagingPattern(),
		owner:      storageutil.DefaultOwnerPattern(),
		system:     storageutil.DefaultSystemPattern(),
		now:        time.Now,
		random:     randomToken,
	}
}

// Category looks up a configured category by name.
func (n *Namer) Category(name string) (config.Category, error) {
	c, ok := n.categories[name]
	if !ok {
		return config.Category{}, fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	return c, nil
}

// StagingKey returns a fresh staging prefix for ownerID, ending in a slash.
func (n *Namer) StagingKey(ownerID string) (string, error) {
	if ownerID == "" {
		return "", ErrInvalidOwner
	}

	key, err := n.staging.Generate(storageutil.KeyValues{
		Owner:     ownerID,
		Timestamp: n.now(),
		Random:    n.random(),
	})
	if err != nil {
		return "", pathError(err)
	}

	return key, nil
}

// PermanentKey returns the final key for a promoted object.
func (n *Namer) PermanentKey(category, ownerID, associationID, filename string) (string, error) {
	c, err := n.Category(category)
	if err != nil {
		return "", err
	}

	pattern := n.system
	if c.Scope == config.ScopeOwner {
		if ownerID == "" {
			return "", fmt.Errorf("%w: %q requires an owner", ErrInvalidCategory, category)
		}
		pattern = n.owner
	}

	key, err := pattern.Generate(storageutil.KeyValues{
		Owner:       ownerID,
		Category:    c.Name,
		Association: associationID,
		Filename:    filename,
	})
	if err != nil {
		return "", pathError(err)
	}

	return key, nil
}

func pathError(err error) error {
	if errors.Is(err, storageutil.ErrUnsafeSegment) ||
		errors.Is(err, storageutil.ErrEmptySegment) ||
		errors.Is(err, storageutil.ErrReservedSegment) {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return err
}

// IsStagingKey reports whether a storage key lives in the staging area.
func IsStagingKey(key string) bool {
	return storageutil.HasStagingMarker(key)
}

// StagingTime extracts the creation time embedded in a staging key.
func StagingTime(key string) (time.Time, bool) {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		if part != storageutil.StagingMarker || i+1 >= len(parts) {
			continue
		}

		stamp, _, ok := strings.Cut(parts[i+1], "_")
		if !ok {
			return time.Time{}, false
		}

		ms, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil || ms <= 0 {
			return time.Time{}, false
		}

		return time.UnixMilli(ms).UTC(), true
	}

	return time.Time{}, false
}

// SanitizeFilename turns a client supplied name into a single URL-safe key segment.
// The extension is kept and lowercased.
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}

	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))

	ext = strings.Map(func(r rune) rune {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	if ext == "." {
		ext = ""
	}

	s := slug.Make(stem)
	if len(s) > maxFilenameStem {
		s = strings.TrimRight(s[:maxFilenameStem], "-")
	}
	if s == "" || (ext == "" && s == storageutil.StagingMarker) {
		s = uuid.NewString()
	}

	return s + ext
}

// withSuffix inserts a token before the extension: "cat.png" -> "cat-1a2b3c4d.png".
func withSuffix(filename, token string) string {
	ext := path.Ext(filename)
	return strings.TrimSuffix(filename, ext) + "-" + token + ext
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
