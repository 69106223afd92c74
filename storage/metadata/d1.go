package metadata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/mediacycle/config"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

// D1MetadataStore keeps media records in Cloudflare D1 via the HTTP API.
// D1 parameters are strings, so nullable columns are sent as empty strings through NULLIF and
// timestamps are stored as fixed-width UTC text.
type D1MetadataStore struct {
	cfg    *config.D1MetadataStrategy
	client *cloudflare.Client
	table  string
}

// NewD1MetadataStore builds a store and ensures the schema exists.
func NewD1MetadataStore(cfg *config.D1MetadataStrategy) (*D1MetadataStore, error) {
	return newD1MetadataStoreWithClient(cfg, nil)
}

// newD1MetadataStoreWithClient allows tests to inject an HTTP client.
func newD1MetadataStoreWithClient(cfg *config.D1MetadataStrategy, httpClient *http.Client) (*D1MetadataStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("d1 metadata config is nil")
	}

	store := &D1MetadataStore{
		cfg:    cfg,
		client: buildD1Client(cfg, httpClient),
		table:  storageutil.DeriveTableName(cfg.TablePrefix, "media_objects"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func buildD1Client(cfg *config.D1MetadataStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema doubles as a connectivity and credential check.
func (ms *D1MetadataStore) initSchema(ctx context.Context) error {
	if _, err := ms.executeQuery(ctx, ms.schemaQuery(), nil); err != nil {
		return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}
	return nil
}

func (ms *D1MetadataStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id TEXT PRIMARY KEY,
storage_key TEXT NOT NULL UNIQUE,
category TEXT NULL,
owner_id TEXT NULL,
association_id TEXT NULL,
original_filename TEXT NOT NULL,
content_type TEXT NOT NULL,
size_bytes INTEGER NOT NULL,
width INTEGER NULL,
height INTEGER NULL,
created_at TEXT NOT NULL,
updated_at TEXT NOT NULL
)`, ms.table)
}

func (ms *D1MetadataStore) insertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)",
		ms.table, selectColumns,
	)
}

func (ms *D1MetadataStore) updateQuery() string {
	return fmt.Sprintf(
		"UPDATE %s SET storage_key = ?, category = NULLIF(?, ''), association_id = NULLIF(?, ''), updated_at = ? WHERE id = ? RETURNING id",
		ms.table,
	)
}

func (ms *D1MetadataStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ? RETURNING id", ms.table)
}

func (ms *D1MetadataStore) selectByQuery(column string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", selectColumns, ms.table, column)
}

func (ms *D1MetadataStore) keysQuery() string {
	return fmt.Sprintf("SELECT storage_key FROM %s", ms.table)
}

func (ms *D1MetadataStore) whereQuery(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.StagedOnly {
		clauses = append(clauses, "association_id IS NULL", "storage_key LIKE ?")
		args = append(args, stagedKeyPattern)
	}
	if !filter.CreatedBefore.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, formatTime(filter.CreatedBefore))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.AssociationID != "" {
		clauses = append(clauses, "association_id = ?")
		args = append(args, filter.AssociationID)
	}
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectColumns, ms.table)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return query, args
}

func (ms *D1MetadataStore) Close() error {
	return nil
}

func (ms *D1MetadataStore) Insert(ctx context.Context, obj *MediaObject) (string, error) {
	prepareInsert(obj)

	params := []any{
		obj.ID,
		obj.StorageKey,
		obj.Category,
		obj.OwnerID,
		obj.AssociationID,
		obj.OriginalFilename,
		obj.ContentType,
		obj.Size,
		optionalInt(obj.Width),
		optionalInt(obj.Height),
		formatTime(obj.CreatedAt),
		formatTime(obj.UpdatedAt),
	}

	if _, err := ms.executeQuery(ctx, ms.insertQuery(), params); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%s: %w", obj.StorageKey, ErrDuplicateKey)
		}
		return "", err
	}

	return obj.ID, nil
}

func (ms *D1MetadataStore) Update(ctx context.Context, id string, changes Changes) error {
	if changes.UpdatedAt.IsZero() {
		changes.UpdatedAt = time.Now().UTC()
	}

	rows, err := ms.executeQuery(ctx, ms.updateQuery(), []any{
		changes.StorageKey,
		changes.Category,
		changes.AssociationID,
		formatTime(changes.UpdatedAt),
		id,
	})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (ms *D1MetadataStore) Delete(ctx context.Context, id string) error {
	rows, err := ms.executeQuery(ctx, ms.deleteQuery(), []any{id})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (ms *D1MetadataStore) FindByID(ctx context.Context, id string) (*MediaObject, error) {
	return ms.findOne(ctx, ms.selectByQuery("id"), id)
}

func (ms *D1MetadataStore) FindByStorageKey(ctx context.Context, key string) (*MediaObject, error) {
	return ms.findOne(ctx, ms.selectByQuery("storage_key"), key)
}

func (ms *D1MetadataStore) findOne(ctx context.Context, query, arg string) (*MediaObject, error) {
	rows, err := ms.executeQuery(ctx, query, []any{arg})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return objectFromRow(rows[0])
}

func (ms *D1MetadataStore) FindWhere(ctx context.Context, filter Filter) ([]MediaObject, error) {
	query, args := ms.whereQuery(filter)

	rows, err := ms.executeQuery(ctx, query, args)
	if err != nil {
		return nil, err
	}

	out := make([]MediaObject, 0, len(rows))
	for _, row := range rows {
		obj, err := objectFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *obj)
	}

	return out, nil
}

func (ms *D1MetadataStore) ListStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := ms.executeQuery(ctx, ms.keysQuery(), nil)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		key, ok := row["storage_key"].(string)
		if !ok {
			return nil, fmt.Errorf("storage_key column missing or not a string")
		}
		keys = append(keys, key)
	}

	return keys, nil
}

// executeQuery sends a SQL query to the D1 database and returns the result rows.
// Returns nil rows (no error) when the query succeeds but produces no results.
func (ms *D1MetadataStore) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := ms.client.D1.Database.Query(ctx, ms.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(ms.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter format.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case nil:
			out = append(out, "")
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}

func optionalInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func objectFromRow(row map[string]any) (*MediaObject, error) {
	obj := &MediaObject{
		ID:               stringValue(row["id"]),
		StorageKey:       stringValue(row["storage_key"]),
		Category:         stringValue(row["category"]),
		OwnerID:          stringValue(row["owner_id"]),
		AssociationID:    stringValue(row["association_id"]),
		OriginalFilename: stringValue(row["original_filename"]),
		ContentType:      stringValue(row["content_type"]),
	}

	if obj.ID == "" || obj.StorageKey == "" {
		return nil, fmt.Errorf("d1 row missing id or storage_key")
	}

	size, err := int64Value(row["size_bytes"])
	if err != nil {
		return nil, fmt.Errorf("size_bytes: %w", err)
	}
	obj.Size = size

	if obj.Width, err = optionalIntValue(row["width"]); err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	if obj.Height, err = optionalIntValue(row["height"]); err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}

	if obj.CreatedAt, err = parseTime(stringValue(row["created_at"])); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if obj.UpdatedAt, err = parseTime(stringValue(row["updated_at"])); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}

	return obj, nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func int64Value(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func optionalIntValue(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}

	n, err := int64Value(v)
	if err != nil {
		return nil, err
	}

	i := int(n)
	return &i, nil
}
