package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryMetadataStore keeps records in process memory.
type MemoryMetadataStore struct {
	mu    sync.RWMutex
	byID  map[string]*MediaObject
	byKey map[string]string
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		byID:  make(map[string]*MediaObject),
		byKey: make(map[string]string),
	}
}

func (ms *MemoryMetadataStore) Insert(ctx context.Context, obj *MediaObject) (string, error) {
	prepareInsert(obj)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.byKey[obj.StorageKey]; ok {
		return "", fmt.Errorf("%s: %w", obj.StorageKey, ErrDuplicateKey)
	}
	if _, ok := ms.byID[obj.ID]; ok {
		return "", fmt.Errorf("duplicate id %s", obj.ID)
	}

	stored := *obj
	ms.byID[obj.ID] = &stored
	ms.byKey[obj.StorageKey] = obj.ID

	return obj.ID, nil
}

func (ms *MemoryMetadataStore) Update(ctx context.Context, id string, changes Changes) error {
	if changes.UpdatedAt.IsZero() {
		changes.UpdatedAt = time.Now().UTC()
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, ok := ms.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	if owner, taken := ms.byKey[changes.StorageKey]; taken && owner != id {
		return fmt.Errorf("%s: %w", changes.StorageKey, ErrDuplicateKey)
	}

	delete(ms.byKey, obj.StorageKey)
	obj.StorageKey = changes.StorageKey
	obj.Category = changes.Category
	obj.AssociationID = changes.AssociationID
	obj.UpdatedAt = changes.UpdatedAt.UTC()
	ms.byKey[obj.StorageKey] = id

	return nil
}

func (ms *MemoryMetadataStore) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, ok := ms.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	delete(ms.byKey, obj.StorageKey)
	delete(ms.byID, id)
	return nil
}

func (ms *MemoryMetadataStore) FindByID(ctx context.Context, id string) (*MediaObject, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	obj, ok := ms.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *obj
	return &cp, nil
}

func (ms *MemoryMetadataStore) FindByStorageKey(ctx context.Context, key string) (*MediaObject, error) {
	ms.mu.RLock()
	id, ok := ms.byKey[key]
	ms.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return ms.FindByID(ctx, id)
}

func (ms *MemoryMetadataStore) FindWhere(ctx context.Context, filter Filter) ([]MediaObject, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []MediaObject
	for _, obj := range ms.byID {
		if filter.matches(obj) {
			out = append(out, *obj)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (ms *MemoryMetadataStore) ListStorageKeys(ctx context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	keys := make([]string, 0, len(ms.byKey))
	for key := range ms.byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

func (ms *MemoryMetadataStore) Close() error {
	return nil
}
