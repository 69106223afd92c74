package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/metrics"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// Target names the domain object that content belongs to.
type Target struct {
	Category      string
	OwnerID       string
	AssociationID string
}

// Promotion records one staging URL that now points at permanent storage.
type Promotion struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// URLFailure records a URL whose processing hit a storage error.
type URLFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

type PromotionResult struct {
	Content  string       `json:"content"`
	Promoted []Promotion  `json:"promoted"`
	Skipped  []string     `json:"skipped"`
	Failed   []URLFailure `json:"failed"`
}

type ReconcileResult struct {
	Deleted []string     `json:"deleted"`
	Skipped []string     `json:"skipped"`
	Failed  []URLFailure `json:"failed"`
}

// Promoter moves referenced staged objects into permanent storage and
// removes permanent objects that content no longer references.
type Promoter struct {
	namer   *Namer
	scanner *Scanner
	meta    metadata.Store
	blobs   blob.Store
	log     zerolog.Logger
	now     func() time.Time
}

func NewPromoter(namer *Namer, scanner *Scanner, meta metadata.Store, blobs blob.Store, log zerolog.Logger) *Promoter {
	return &Promoter{
		namer:   namer,
		scanner: scanner,
		meta:    meta,
		blobs:   blobs,
		log:     log.With().Str("component", "promoter").Logger(),
		now:     time.Now,
	}
}

type promotionPlan struct {
	url    string
	record *metadata.MediaObject
	dstKey string
}

// Promote rewrites every staging URL in content to a permanent URL under target.
// Lookups and ownership checks complete before anything is mutated.
func (p *Promoter) Promote(ctx context.Context, content string, target Target) (*PromotionResult, error) {
	category, err := p.checkTarget(target)
	if err != nil {
		return nil, err
	}

	result := &PromotionResult{Content: content, Promoted: []Promotion{}, Skipped: []string{}, Failed: []URLFailure{}}

	urls := distinct(p.scanner.ExtractStagingURLs(content))
	if len(urls) == 0 {
		return result, nil
	}

	plans, err := p.plan(ctx, urls, category, target, result)
	if err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := p.apply(ctx, plan, category.Name, target.AssociationID); err != nil {
			p.log.Error().Err(err).Str("url", plan.url).Str("id", plan.record.ID).Msg("promotion failed")
			result.Failed = append(result.Failed, URLFailure{URL: plan.url, Reason: err.Error(), Err: err})
			continue
		}

		to := p.blobs.PublicURL(plan.dstKey)
		result.Content = strings.ReplaceAll(result.Content, plan.url, to)
		result.Promoted = append(result.Promoted, Promotion{ID: plan.record.ID, From: plan.url, To: to})
	}

	metrics.RecordPromotion(category.Name, "promoted", len(result.Promoted))
	metrics.RecordPromotion(category.Name, "skipped", len(result.Skipped))
	metrics.RecordPromotion(category.Name, "failed", len(result.Failed))

	p.log.Info().
		Str("category", category.Name).
		Str("association", target.AssociationID).
		Int("promoted", len(result.Promoted)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("content promoted")

	return result, nil
}

func (p *Promoter) checkTarget(target Target) (config.Category, error) {
	category, err := p.namer.Category(target.Category)
	if err != nil {
		return config.Category{}, err
	}
	if category.Scope == config.ScopeOwner && target.OwnerID == "" {
		return config.Category{}, fmt.Errorf("%w: %q requires an owner", ErrInvalidCategory, category.Name)
	}

	for _, segment := range []string{target.OwnerID, target.AssociationID} {
		if segment == "" {
			continue
		}
		if err := storageutil.CheckKeySegment(segment); err != nil {
			return config.Category{}, fmt.Errorf("%w: %q", ErrInvalidPath, segment)
		}
	}

	return category, nil
}

func (p *Promoter) plan(ctx context.Context, urls []string, category config.Category, target Target, result *PromotionResult) ([]promotionPlan, error) {
	plans := make([]promotionPlan, 0, len(urls))
	claimed := make(map[string]struct{}, len(urls))

	for _, u := range urls {
		key, err := p.blobs.KeyFromURL(u)
		if err != nil {
			result.Skipped = append(result.Skipped, u)
			continue
		}

		record, err := p.meta.FindByStorageKey(ctx, key)
		if errors.Is(err, metadata.ErrNotFound) {
			p.log.Debug().Str("url", u).Msg("no record for staging url")
			result.Skipped = append(result.Skipped, u)
			continue
		}
		if err != nil {
			result.Failed = append(result.Failed, URLFailure{URL: u, Reason: err.Error(), Err: storageError("find record", err)})
			continue
		}

		if record.OwnerID != target.OwnerID {
			p.log.Warn().Str("url", u).Str("owner", target.OwnerID).Msg("promotion of foreign media denied")
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, u)
		}

		if !record.IsStaged() {
			result.Skipped = append(result.Skipped, u)
			continue
		}

		dst, err := p.permanentKey(ctx, category.Name, target, path.Base(key), record.ID, claimed)
		if err != nil {
			if errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidCategory) {
				return nil, err
			}
			result.Failed = append(result.Failed, URLFailure{URL: u, Reason: err.Error(), Err: err})
			continue
		}

		claimed[dst] = struct{}{}
		plans = append(plans, promotionPlan{url: u, record: record, dstKey: dst})
	}

	return plans, nil
}

// permanentKey picks a destination key that no other record or planned promotion holds.
func (p *Promoter) permanentKey(ctx context.Context, category string, target Target, filename, id string, claimed map[string]struct{}) (string, error) {
	candidate := filename
	for attempt := 0; attempt < 5; attempt++ {
		key, err := p.namer.PermanentKey(category, target.OwnerID, target.AssociationID, candidate)
		if err != nil {
			return "", err
		}

		if _, taken := claimed[key]; !taken {
			existing, err := p.meta.FindByStorageKey(ctx, key)
			switch {
			case errors.Is(err, metadata.ErrNotFound):
				return key, nil
			case err != nil:
				return "", storageError("find record", err)
			case existing.ID == id:
				return key, nil
			}
		}

		candidate = withSuffix(filename, p.namer.random())
	}

	return "", storageError("allocate key", fmt.Errorf("no free key for %q", filename))
}

// apply copies the blob, repoints the record, then drops the staging blob.
func (p *Promoter) apply(ctx context.Context, plan promotionPlan, category, associationID string) error {
	src := plan.record.StorageKey

	if err := p.blobs.Copy(ctx, src, plan.dstKey); err != nil {
		return storageError("copy blob", err)
	}

	err := p.meta.Update(ctx, plan.record.ID, metadata.Changes{
		StorageKey:    plan.dstKey,
		Category:      category,
		AssociationID: associationID,
		UpdatedAt:     p.now().UTC(),
	})
	if err != nil {
		p.discardCopy(ctx, plan.dstKey)
		return storageError("update record", err)
	}

	if err := p.blobs.Delete(ctx, src); err != nil {
		p.log.Warn().Err(err).Str("key", src).Msg("staging blob left behind for sweep")
	}

	return nil
}

// discardCopy removes a copy whose record update failed, unless a record
// already points at the key. A concurrent promotion may have claimed it first.
func (p *Promoter) discardCopy(ctx context.Context, key string) {
	holder, err := p.meta.FindByStorageKey(ctx, key)
	switch {
	case err == nil:
		p.log.Warn().Str("key", key).Str("id", holder.ID).Msg("copy is referenced by another record, keeping it")
		return
	case !errors.Is(err, metadata.ErrNotFound):
		p.log.Error().Err(err).Str("key", key).Msg("cannot verify copy after update failure, leaving it in place")
		return
	}

	if err := p.blobs.Delete(ctx, key); err != nil {
		p.log.Error().Err(err).Str("key", key).Msg("failed to remove copy after update failure")
	}
}

// ReconcileOnUpdate deletes permanent media that oldContent referenced and newContent no
// longer does. Only records that belong to category and associationID are touched.
func (p *Promoter) ReconcileOnUpdate(ctx context.Context, oldContent, newContent, category, associationID string) (*ReconcileResult, error) {
	if _, err := p.namer.Category(category); err != nil {
		return nil, err
	}

	result := &ReconcileResult{Deleted: []string{}, Skipped: []string{}, Failed: []URLFailure{}}

	keep := make(map[string]struct{})
	for _, u := range p.scanner.ExtractPermanentURLs(newContent) {
		keep[u] = struct{}{}
	}

	for _, u := range distinct(p.scanner.ExtractPermanentURLs(oldContent)) {
		if _, ok := keep[u]; ok {
			continue
		}

		deleted, err := p.removeReference(ctx, u, category, associationID)
		switch {
		case err != nil:
			p.log.Error().Err(err).Str("url", u).Msg("failed to remove dropped media")
			result.Failed = append(result.Failed, URLFailure{URL: u, Reason: err.Error(), Err: err})
		case deleted:
			result.Deleted = append(result.Deleted, u)
		default:
			result.Skipped = append(result.Skipped, u)
		}
	}

	metrics.RecordReconcile(category, "deleted", len(result.Deleted))
	metrics.RecordReconcile(category, "failed", len(result.Failed))

	p.log.Info().
		Str("category", category).
		Str("association", associationID).
		Int("deleted", len(result.Deleted)).
		Int("failed", len(result.Failed)).
		Msg("content reconciled")

	return result, nil
}

func (p *Promoter) removeReference(ctx context.Context, u, category, associationID string) (bool, error) {
	key, err := p.blobs.KeyFromURL(u)
	if err != nil {
		return false, nil
	}

	record, err := p.meta.FindByStorageKey(ctx, key)
	if errors.Is(err, metadata.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("find record", err)
	}

	if record.Category != category || record.AssociationID != associationID {
		return false, nil
	}

	if err := p.blobs.Delete(ctx, key); err != nil {
		return false, storageError("delete blob", err)
	}

	if err := p.meta.Delete(ctx, record.ID); err != nil && !errors.Is(err, metadata.ErrNotFound) {
		return false, storageError("delete record", err)
	}

	return true, nil
}
