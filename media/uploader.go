package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/metrics"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// File is one uploaded file as received from the client.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// View is what a client sees of a stored media object.
type View struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	StorageKey       string `json:"storage_key"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size"`
	Width            *int   `json:"width,omitempty"`
	Height           *int   `json:"height,omitempty"`
}

// FileFailure reports why a single file of a batch was not stored.
type FileFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// BatchResult is the per-file outcome of UploadBatch.
type BatchResult struct {
	Succeeded   []View        `json:"succeeded"`
	Failed      []FileFailure `json:"failures"`
	FailedCount int           `json:"failed_count"`
}

// Uploader writes new files into the staging area.
type Uploader struct {
	rules *config.Media
	namer *Namer
	meta  metadata.Store
	blobs blob.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewUploader(rules *config.Media, namer *Namer, meta metadata.Store, blobs blob.Store, log zerolog.Logger) *Uploader {
	return &Uploader{
		rules: rules,
		namer: namer,
		meta:  meta,
		blobs: blobs,
		log:   log.With().Str("component", "uploader").Logger(),
		now:   time.Now,
	}
}

// UploadBatch stores every acceptable file under a fresh staging key. Batch-level
// violations fail the whole call; per-file problems are reported and skipped.
func (u *Uploader) UploadBatch(ctx context.Context, files []File, ownerID string) (*BatchResult, error) {
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}
	if err := storageutil.CheckKeySegment(ownerID); err != nil {
		return nil, fmt.Errorf("%w: owner %q", ErrInvalidPath, ownerID)
	}
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(files) > u.rules.MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, len(files), u.rules.MaxFilesPerBatch)
	}

	result := &BatchResult{Succeeded: []View{}, Failed: []FileFailure{}}
	for _, f := range files {
		view, err := u.uploadOne(ctx, f, ownerID)
		if err != nil {
			u.log.Warn().Err(err).Str("owner", ownerID).Str("filename", f.Filename).Msg("file rejected")
			result.Failed = append(result.Failed, FileFailure{Filename: f.Filename, Reason: err.Error(), Err: err})
			continue
		}

		result.Succeeded = append(result.Succeeded, *view)
	}
	result.FailedCount = len(result.Failed)

	u.log.Info().
		Str("owner", ownerID).
		Int("stored", len(result.Succeeded)).
		Int("failed", result.FailedCount).
		Msg("upload batch processed")

	return result, nil
}

func (u *Uploader) uploadOne(ctx context.Context, f File, ownerID string) (*View, error) {
	size := int64(len(f.Data))
	if size == 0 {
		metrics.RecordUpload("", "rejected", 0)
		return nil, ErrEmptyFile
	}
	if size > u.rules.MaxFileSize {
		metrics.RecordUpload("", "rejected", 0)
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, u.rules.MaxFileSize)
	}

	contentType := resolveContentType(f.ContentType, f.Data)
	if !strings.HasPrefix(contentType, u.rules.AllowedContentTypePrefix) {
		metrics.RecordUpload(contentType, "rejected", 0)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	prefix, err := u.namer.StagingKey(ownerID)
	if err != nil {
		return nil, err
	}
	key := prefix + SanitizeFilename(f.Filename)

	if err := u.blobs.Put(ctx, key, bytes.NewReader(f.Data), size, contentType); err != nil {
		metrics.RecordUpload(contentType, "error", 0)
		return nil, storageError("store blob", err)
	}

	width, height := imageDimensions(f.Data)
	obj := &metadata.MediaObject{
		StorageKey:       key,
		OwnerID:          ownerID,
		OriginalFilename: f.Filename,
		ContentType:      contentType,
		Size:             size,
		Width:            width,
		Height:           height,
		CreatedAt:        u.now().UTC(),
	}

	id, err := u.meta.Insert(ctx, obj)
	if err != nil {
		metrics.RecordUpload(contentType, "error", 0)
		if derr := u.blobs.Delete(ctx, key); derr != nil {
			u.log.Error().Err(derr).Str("key", key).Msg("failed to remove blob after metadata insert failure")
		}
		return nil, storageError("record metadata", err)
	}

	metrics.RecordUpload(contentType, "success", size)
	u.log.Debug().Str("id", id).Str("key", key).Msg("staged upload")

	return &View{
		ID:               id,
		URL:              u.blobs.PublicURL(key),
		StorageKey:       key,
		OriginalFilename: f.Filename,
		ContentType:      contentType,
		Size:             size,
		Width:            width,
		Height:           height,
	}, nil
}

// IsBatchError reports whether err rejected a whole batch rather than a single file.
func IsBatchError(err error) bool {
	return errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrTooManyFiles) ||
		errors.Is(err, ErrInvalidOwner) || errors.Is(err, ErrInvalidPath)
}
