package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

const testBaseURL = "https://cdn.example.com/"

var errInjected = errors.New("injected failure")

// flakyBlobs fails selected operations on top of a memory store.
type flakyBlobs struct {
	*blob.MemoryStore
	failPut    bool
	failCopy   bool
	failDelete map[string]bool
	failList   bool
}

func (f *flakyBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.failPut {
		return errInjected
	}
	return f.MemoryStore.Put(ctx, key, body, size, contentType)
}

func (f *flakyBlobs) Copy(ctx context.Context, src, dst string) error {
	if f.failCopy {
		return errInjected
	}
	return f.MemoryStore.Copy(ctx, src, dst)
}

func (f *flakyBlobs) Delete(ctx context.Context, key string) error {
	if f.failDelete[key] {
		return errInjected
	}
	return f.MemoryStore.Delete(ctx, key)
}

func (f *flakyBlobs) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	if f.failList {
		return nil, errInjected
	}
	return f.MemoryStore.List(ctx, prefix)
}

// flakyMeta fails selected operations on top of a memory metadata store.
type flakyMeta struct {
	*metadata.MemoryMetadataStore
	failInsert bool
	failUpdate bool
	failKeys   bool
	// beforeUpdate runs ahead of every Update, failing or not.
	beforeUpdate func(ctx context.Context, id string)
}

func (f *flakyMeta) Insert(ctx context.Context, obj *metadata.MediaObject) (string, error) {
	if f.failInsert {
		return "", errInjected
	}
	return f.MemoryMetadataStore.Insert(ctx, obj)
}

func (f *flakyMeta) Update(ctx context.Context, id string, changes metadata.Changes) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate(ctx, id)
	}
	if f.failUpdate {
		return errInjected
	}
	return f.MemoryMetadataStore.Update(ctx, id, changes)
}

func (f *flakyMeta) ListStorageKeys(ctx context.Context) ([]string, error) {
	if f.failKeys {
		return nil, errInjected
	}
	return f.MemoryMetadataStore.ListStorageKeys(ctx)
}

type fixture struct {
	rules   config.Media
	blobs   *flakyBlobs
	meta    *flakyMeta
	manager *Manager
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		rules: config.DefaultMedia(),
		blobs: &flakyBlobs{MemoryStore: blob.NewMemoryStore(testBaseURL), failDelete: map[string]bool{}},
		meta:  &flakyMeta{MemoryMetadataStore: metadata.NewMemoryMetadataStore()},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	manager, err := NewManager(&f.rules, f.meta, f.blobs, zerolog.Nop())
	if err != nil {
		t.Fatalf("manager init: %v", err)
	}
	f.manager = manager

	now := func() time.Time { return f.clock }
	f.blobs.Clock = now
	manager.Namer.now = now
	manager.Uploader.now = now
	manager.Promoter.now = now
	manager.Reclaimer.now = now

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func (f *fixture) upload(t *testing.T, owner, filename string) View {
	t.Helper()

	res, err := f.manager.UploadBatch(context.Background(), []File{{Filename: filename, ContentType: "image/png", Data: pngBytes(t, 10, 10)}}, owner)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if len(res.Succeeded) != 1 {
		t.Fatalf("expected one stored file, got %+v", res)
	}
	return res.Succeeded[0]
}

func blobInfo(key string) blob.ObjectInfo {
	return blob.ObjectInfo{Key: key}
}
