package metadata

import (
	"context"
	"errors"
	"time"

	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// ErrNotFound indicates that no media record matched.
var ErrNotFound = errors.New("media record not found")

// ErrDuplicateKey is returned when a storage key is already recorded.
var ErrDuplicateKey = errors.New("storage key already recorded")

// MediaObject is the persisted record of one stored blob.
// Empty Category, OwnerID and AssociationID are stored as NULL.
type MediaObject struct {
	ID               string
	StorageKey       string
	Category         string
	OwnerID          string
	AssociationID    string
	OriginalFilename string
	ContentType      string
	Size             int64
	Width            *int
	Height           *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsStaged reports whether the record still points at the staging area.
func (m *MediaObject) IsStaged() bool {
	return m.AssociationID == "" && storageutil.HasStagingMarker(m.StorageKey)
}

// Changes are the only fields rewritten after insert.
type Changes struct {
	StorageKey    string
	Category      string
	AssociationID string
	UpdatedAt     time.Time
}

// Filter selects records for FindWhere. Zero values do not constrain.
type Filter struct {
	StagedOnly    bool
	CreatedBefore time.Time
	Category      string
	AssociationID string
	OwnerID       string
	Limit         int
}

func (f Filter) matches(m *MediaObject) bool {
	if f.StagedOnly && !m.IsStaged() {
		return false
	}
	if !f.CreatedBefore.IsZero() && !m.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.AssociationID != "" && m.AssociationID != f.AssociationID {
		return false
	}
	if f.OwnerID != "" && m.OwnerID != f.OwnerID {
		return false
	}
	return true
}

// Store persists media records.
type Store interface {
	// Insert assigns an ID when obj.ID is empty and returns it.
	Insert(ctx context.Context, obj *MediaObject) (string, error)
	Update(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*MediaObject, error)
	FindByStorageKey(ctx context.Context, key string) (*MediaObject, error)
	FindWhere(ctx context.Context, filter Filter) ([]MediaObject, error)
	// ListStorageKeys returns every recorded storage key.
	ListStorageKeys(ctx context.Context) ([]string, error)
	Close() error
}

// stagedKeyPattern is the LIKE pattern matching the staging marker segment.
const stagedKeyPattern = "%/" + storageutil.StagingMarker + "/%"

// storageTimeLayout is fixed width so text timestamps compare correctly.
const storageTimeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(storageTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(storageTimeLayout, s, time.UTC)
}
