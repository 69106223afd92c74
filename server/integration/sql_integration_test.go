//go:build testcontainers
// +build testcontainers

package integration

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/state"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

func stringPtr(s string) *string {
	return &s
}

func newPostgresState(t *testing.T) *state.MediacycleState {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	meta, err := metadata.NewSQLMetadataStore(&config.SQLMetadataStrategy{
		Driver:      "postgres",
		DSN:         connStr,
		TablePrefix: stringPtr("test"),
	})
	if err != nil {
		t.Fatalf("failed to create sql metadata store: %v", err)
	}

	return newState(t, blob.NewMemoryStore("https://cdn.example.test/"), meta)
}

func TestPostgres_Lifecycle(t *testing.T) {
	st := newPostgresState(t)
	h := routes(st)
	ctx := context.Background()

	rec, batch := uploadParts(t, h, "42",
		part{name: "a.png", contentType: "image/png", data: pngBytes(t, 10, 10)},
		part{name: "a.png", contentType: "image/png", data: pngBytes(t, 4, 4)},
	)
	if rec.Code != http.StatusCreated || len(batch.Succeeded) != 2 {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}

	staged, err := st.Metadata.FindWhere(ctx, metadata.Filter{StagedOnly: true})
	if err != nil || len(staged) != 2 {
		t.Fatalf("expected two staged rows, got %d err=%v", len(staged), err)
	}

	content := batch.Succeeded[0].URL + " and " + batch.Succeeded[1].URL
	var promoted media.PromotionResult
	rec = postJSON(t, h, "/promote", "42", map[string]string{
		"content": content, "category": "post", "association_id": "p-1",
	}, &promoted)
	if rec.Code != http.StatusOK || len(promoted.Promoted) != 2 {
		t.Fatalf("promotion failed: %d %s", rec.Code, rec.Body.String())
	}
	if promoted.Promoted[0].To == promoted.Promoted[1].To {
		t.Fatalf("colliding filenames must get distinct keys: %+v", promoted.Promoted)
	}

	rows, err := st.Metadata.FindWhere(ctx, metadata.Filter{Category: "post", AssociationID: "p-1"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected two promoted rows, got %d err=%v", len(rows), err)
	}

	keys, err := st.Metadata.ListStorageKeys(ctx)
	if err != nil || len(keys) != 2 {
		t.Fatalf("unexpected storage keys %v err=%v", keys, err)
	}

	rec = postJSON(t, h, "/promote", "99", map[string]string{
		"content": content, "category": "post", "association_id": "p-1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("staging urls already promoted should be skipped, got %d %s", rec.Code, rec.Body.String())
	}

	var reconciled media.ReconcileResult
	postJSON(t, h, "/reconcile", "42", map[string]string{
		"old_content": promoted.Content, "new_content": promoted.Promoted[0].To, "category": "post", "association_id": "p-1",
	}, &reconciled)
	if len(reconciled.Deleted) != 1 || reconciled.Deleted[0] != promoted.Promoted[1].To {
		t.Fatalf("unexpected reconcile result: %+v", reconciled)
	}

	if _, err := st.Metadata.FindByID(ctx, promoted.Promoted[1].ID); !errors.Is(err, metadata.ErrNotFound) {
		t.Fatalf("dropped record should be gone, err=%v", err)
	}
}

func TestPostgres_SweepRespectsGracePeriod(t *testing.T) {
	st := newPostgresState(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(key string, created time.Time) {
		t.Helper()
		if err := st.Blobs.Put(ctx, key, bytes.NewReader([]byte("x")), 1, "image/png"); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := st.Metadata.Insert(ctx, &metadata.MediaObject{
			StorageKey: key, OwnerID: "42", ContentType: "image/png", Size: 1, CreatedAt: created,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	insert("owner/42/temp/1_aaaaaaaa/old.png", now.Add(-25*time.Hour))
	insert("owner/42/temp/2_bbbbbbbb/new.png", now.Add(-time.Hour))

	stats := st.Media.Sweep(ctx)
	if stats.MetadataDeleted != 1 {
		t.Fatalf("expected one reclaimed row, got %+v", stats)
	}

	if _, err := st.Metadata.FindByStorageKey(ctx, "owner/42/temp/1_aaaaaaaa/old.png"); !errors.Is(err, metadata.ErrNotFound) {
		t.Fatalf("old row should be reclaimed, err=%v", err)
	}
	if _, err := st.Metadata.FindByStorageKey(ctx, "owner/42/temp/2_bbbbbbbb/new.png"); err != nil {
		t.Fatalf("recent row must survive: %v", err)
	}
}
