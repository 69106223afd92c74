package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/mediaid"
	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

const selectColumns = "id, storage_key, category, owner_id, association_id, original_filename, content_type, size_bytes, width, height, created_at, updated_at"

type SQLMetadataStore struct {
	cfg         *config.SQLMetadataStrategy
	db          *sql.DB
	table       string
	placeholder placeholderStyle
}

func NewSQLMetadataStore(cfg *config.SQLMetadataStrategy) (*SQLMetadataStore, error) {
	store, err := newSQLMetadataStoreWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := normalizeDSN(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func newSQLMetadataStoreWithDB(cfg *config.SQLMetadataStrategy, db *sql.DB) (*SQLMetadataStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("metadata sql config is nil")
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLMetadataStore{
		cfg:         cfg,
		db:          db,
		table:       storageutil.DeriveTableName(cfg.TablePrefix, "media_objects"),
		placeholder: placeholder,
	}, nil
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// normalizeDSN forces the MySQL options the store depends on: timestamps scan into
// time.Time and UPDATE reports matched rather than changed rows.
func normalizeDSN(driverName, dsn string) (string, error) {
	if driverName != "mysql" {
		return dsn, nil
	}

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}

	parsed.ParseTime = true
	parsed.ClientFoundRows = true
	parsed.Loc = time.UTC

	return parsed.FormatDSN(), nil
}

func (ms *SQLMetadataStore) initSchema(ctx context.Context) error {
	_, err := ms.db.ExecContext(ctx, ms.schemaQuery())
	return err
}

func (ms *SQLMetadataStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id VARCHAR(64) PRIMARY KEY,
storage_key VARCHAR(512) NOT NULL UNIQUE,
category VARCHAR(64) NULL,
owner_id VARCHAR(255) NULL,
association_id VARCHAR(255) NULL,
original_filename VARCHAR(255) NOT NULL,
content_type VARCHAR(255) NOT NULL,
size_bytes BIGINT NOT NULL,
width INTEGER NULL,
height INTEGER NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL
)`, ms.table)
}

func (ms *SQLMetadataStore) Close() error {
	if ms.db == nil {
		return nil
	}
	return ms.db.Close()
}

func (ms *SQLMetadataStore) Insert(ctx context.Context, obj *MediaObject) (string, error) {
	prepareInsert(obj)

	_, err := ms.db.ExecContext(ctx, ms.insertQuery(),
		obj.ID,
		obj.StorageKey,
		nullString(obj.Category),
		nullString(obj.OwnerID),
		nullString(obj.AssociationID),
		obj.OriginalFilename,
		obj.ContentType,
		obj.Size,
		nullInt(obj.Width),
		nullInt(obj.Height),
		obj.CreatedAt,
		obj.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", obj.StorageKey, ErrDuplicateKey)
		}
		return "", err
	}

	return obj.ID, nil
}

func (ms *SQLMetadataStore) Update(ctx context.Context, id string, changes Changes) error {
	if changes.UpdatedAt.IsZero() {
		changes.UpdatedAt = time.Now().UTC()
	}

	res, err := ms.db.ExecContext(ctx, ms.updateQuery(),
		changes.StorageKey,
		nullString(changes.Category),
		nullString(changes.AssociationID),
		changes.UpdatedAt,
		id,
	)
	if err != nil {
		return err
	}

	return requireAffected(res, id)
}

func (ms *SQLMetadataStore) Delete(ctx context.Context, id string) error {
	res, err := ms.db.ExecContext(ctx, ms.deleteQuery(), id)
	if err != nil {
		return err
	}

	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (ms *SQLMetadataStore) FindByID(ctx context.Context, id string) (*MediaObject, error) {
	return ms.findOne(ctx, ms.selectByQuery("id"), id)
}

func (ms *SQLMetadataStore) FindByStorageKey(ctx context.Context, key string) (*MediaObject, error) {
	return ms.findOne(ctx, ms.selectByQuery("storage_key"), key)
}

func (ms *SQLMetadataStore) findOne(ctx context.Context, query string, arg string) (*MediaObject, error) {
	row := ms.db.QueryRowContext(ctx, query, arg)

	obj, err := scanObject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return obj, nil
}

func (ms *SQLMetadataStore) FindWhere(ctx context.Context, filter Filter) ([]MediaObject, error) {
	query, args := ms.whereQuery(filter)

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MediaObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obj)
	}

	return out, rows.Err()
}

func (ms *SQLMetadataStore) ListStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := ms.db.QueryContext(ctx, ms.keysQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*MediaObject, error) {
	var (
		obj                          MediaObject
		category, owner, association sql.NullString
		width, height                sql.NullInt64
	)

	err := row.Scan(
		&obj.ID,
		&obj.StorageKey,
		&category,
		&owner,
		&association,
		&obj.OriginalFilename,
		&obj.ContentType,
		&obj.Size,
		&width,
		&height,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	obj.Category = category.String
	obj.OwnerID = owner.String
	obj.AssociationID = association.String
	obj.Width = intPtr(width)
	obj.Height = intPtr(height)
	obj.CreatedAt = obj.CreatedAt.UTC()
	obj.UpdatedAt = obj.UpdatedAt.UTC()

	return &obj, nil
}

func (ms *SQLMetadataStore) insertQuery() string {
	placeholders := make([]string, 12)
	for i := range placeholders {
		placeholders[i] = ms.placeholderFor(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ms.table, selectColumns, strings.Join(placeholders, ", "))
}

func (ms *SQLMetadataStore) updateQuery() string {
	return fmt.Sprintf(
		"UPDATE %s SET storage_key = %s, category = %s, association_id = %s, updated_at = %s WHERE id = %s",
		ms.table,
		ms.placeholderFor(1),
		ms.placeholderFor(2),
		ms.placeholderFor(3),
		ms.placeholderFor(4),
		ms.placeholderFor(5),
	)
}

func (ms *SQLMetadataStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", ms.table, ms.placeholderFor(1))
}

func (ms *SQLMetadataStore) selectByQuery(column string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", selectColumns, ms.table, column, ms.placeholderFor(1))
}

func (ms *SQLMetadataStore) keysQuery() string {
	return fmt.Sprintf("SELECT storage_key FROM %s", ms.table)
}

// whereQuery renders filter as a SELECT ordered by creation time.
func (ms *SQLMetadataStore) whereQuery(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, ms.placeholderFor(len(args))))
	}

	if filter.StagedOnly {
		clauses = append(clauses, "association_id IS NULL")
		add("storage_key LIKE %s", stagedKeyPattern)
	}
	if !filter.CreatedBefore.IsZero() {
		add("created_at < %s", filter.CreatedBefore.UTC())
	}
	if filter.Category != "" {
		add("category = %s", filter.Category)
	}
	if filter.AssociationID != "" {
		add("association_id = %s", filter.AssociationID)
	}
	if filter.OwnerID != "" {
		add("owner_id = %s", filter.OwnerID)
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

func (ms *SQLMetadataStore) placeholderFor(index int) string {
	if ms.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return false
}

func prepareInsert(obj *MediaObject) {
	if obj.ID == "" {
		obj.ID = mediaid.New()
	}

	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}
	obj.CreatedAt = obj.CreatedAt.UTC()

	if obj.UpdatedAt.IsZero() {
		obj.UpdatedAt = obj.CreatedAt
	}
	obj.UpdatedAt = obj.UpdatedAt.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
