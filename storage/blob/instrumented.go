package blob

import (
	"context"
	"io"
	"time"

	"github.com/indieinfra/mediacycle/metrics"
)

// Instrument wraps a store so every call is counted and timed under the backend label.
func Instrument(store Store, backend string) Store {
	return &instrumented{Store: store, backend: backend}
}

type instrumented struct {
	Store
	backend string
}

func (i *instrumented) record(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordBlobOperation(i.backend, op, status, time.Since(start).Seconds())
}

func (i *instrumented) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	start := time.Now()
	err := i.Store.Put(ctx, key, body, size, contentType)
	i.record("put", start, err)
	return err
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := i.Store.Get(ctx, key)
	i.record("get", start, err)
	return data, err
}

func (i *instrumented) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()
	err := i.Store.Copy(ctx, srcKey, dstKey)
	i.record("copy", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, key)
	i.record("delete", start, err)
	return err
}

func (i *instrumented) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	start := time.Now()
	objects, err := i.Store.List(ctx, prefix)
	i.record("list", start, err)
	return objects, err
}

// Unwrap returns the underlying store.
func (i *instrumented) Unwrap() Store {
	return i.Store
}
