package media

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/metrics"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

const (
	sideMetadata = "metadata"
	sideBlob     = "blob"
)

// stagingRoot is the prefix under which every staging key lives.
const stagingRoot = "owner/"

// SweepStats summarizes one reclaimer run.
type SweepStats struct {
	MetadataScanned int           `json:"metadata_scanned"`
	MetadataDeleted int           `json:"metadata_deleted"`
	MetadataFailed  int           `json:"metadata_failed"`
	BlobsScanned    int           `json:"blobs_scanned"`
	BlobsDeleted    int           `json:"blobs_deleted"`
	BlobsRetained   int           `json:"blobs_retained"`
	BlobsFailed     int           `json:"blobs_failed"`
	Duration        time.Duration `json:"duration"`
}

// Reclaimer removes staged media that was never promoted.
type Reclaimer struct {
	grace time.Duration
	meta  metadata.Store
	blobs blob.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewReclaimer(grace time.Duration, meta metadata.Store, blobs blob.Store, log zerolog.Logger) *Reclaimer {
	return &Reclaimer{
		grace: grace,
		meta:  meta,
		blobs: blobs,
		log:   log.With().Str("component", "reclaimer").Logger(),
		now:   time.Now,
	}
}

// Sweep runs the metadata side and then the blob side. Failures are logged and
// counted, never returned; a later run picks up whatever this one left.
func (r *Reclaimer) Sweep(ctx context.Context) SweepStats {
	start := r.now()
	cutoff := start.Add(-r.grace)

	var stats SweepStats
	r.sweepMetadata(ctx, cutoff, &stats)
	if ctx.Err() == nil {
		r.sweepBlobs(ctx, cutoff, &stats)
	}
	stats.Duration = r.now().Sub(start)

	metrics.RecordSweep(sideMetadata, "deleted", stats.MetadataDeleted)
	metrics.RecordSweep(sideMetadata, "failed", stats.MetadataFailed)
	metrics.RecordSweep(sideBlob, "deleted", stats.BlobsDeleted)
	metrics.RecordSweep(sideBlob, "failed", stats.BlobsFailed)
	metrics.RecordSweepDuration(stats.Duration.Seconds())

	r.log.Info().
		Int("metadata_deleted", stats.MetadataDeleted).
		Int("metadata_failed", stats.MetadataFailed).
		Int("blobs_deleted", stats.BlobsDeleted).
		Int("blobs_failed", stats.BlobsFailed).
		Dur("duration", stats.Duration).
		Msg("sweep finished")

	return stats
}

func (r *Reclaimer) sweepMetadata(ctx context.Context, cutoff time.Time, stats *SweepStats) {
	records, err := r.meta.FindWhere(ctx, metadata.Filter{StagedOnly: true, CreatedBefore: cutoff})
	if err != nil {
		r.log.Error().Err(err).Msg("failed to query staged records")
		stats.MetadataFailed++
		return
	}

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		if !record.IsStaged() || !record.CreatedAt.Before(cutoff) {
			continue
		}
		stats.MetadataScanned++

		if err := r.blobs.Delete(ctx, record.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
			r.log.Error().Err(err).Str("id", record.ID).Str("key", record.StorageKey).Msg("failed to delete staged blob")
			stats.MetadataFailed++
			continue
		}

		if err := r.meta.Delete(ctx, record.ID); err != nil && !errors.Is(err, metadata.ErrNotFound) {
			r.log.Error().Err(err).Str("id", record.ID).Msg("failed to delete staged record")
			stats.MetadataFailed++
			continue
		}

		r.log.Debug().Str("id", record.ID).Str("key", record.StorageKey).Msg("reclaimed staged media")
		stats.MetadataDeleted++
	}
}

func (r *Reclaimer) sweepBlobs(ctx context.Context, cutoff time.Time, stats *SweepStats) {
	objects, err := r.blobs.List(ctx, stagingRoot)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list staging blobs")
		stats.BlobsFailed++
		return
	}

	keys, err := r.meta.ListStorageKeys(ctx)
	if err != nil {
		// Without the key set every listed blob would look orphaned.
		r.log.Error().Err(err).Msg("failed to list recorded keys")
		stats.BlobsFailed++
		return
	}

	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}

	for _, obj := range objects {
		if ctx.Err() != nil {
			return
		}
		if !storageutil.HasStagingMarker(obj.Key) {
			continue
		}
		stats.BlobsScanned++

		if _, ok := known[obj.Key]; ok {
			stats.BlobsRetained++
			continue
		}

		if !r.blobAge(obj).Before(cutoff) {
			stats.BlobsRetained++
			continue
		}

		if err := r.blobs.Delete(ctx, obj.Key); err != nil {
			r.log.Error().Err(err).Str("key", obj.Key).Msg("failed to delete orphaned blob")
			stats.BlobsFailed++
			continue
		}

		r.log.Debug().Str("key", obj.Key).Msg("reclaimed orphaned blob")
		stats.BlobsDeleted++
	}
}

// blobAge prefers the store's modification time and falls back to the key's timestamp.
// An object with neither is treated as new.
func (r *Reclaimer) blobAge(obj blob.ObjectInfo) time.Time {
	if !obj.LastModified.IsZero() {
		return obj.LastModified
	}
	if t, ok := StagingTime(obj.Key); ok {
		return t
	}
	return r.now()
}
