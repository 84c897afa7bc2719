package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/config"
	storageutil "github.com/indieinfra/plaza/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// SQLStore keeps one row per document with the document itself serialised as JSON.
type SQLStore struct {
	db          *sql.DB
	driverName  string
	table       string
	placeholder placeholderStyle
	rowLocks    bool
	now         func() time.Time
}

func NewSQLStore(cfg *config.SQLDocumentStrategy) (*SQLStore, error) {
	store, err := newSQLStoreWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(store.driverName, cfg.DSN)
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

func newSQLStoreWithDB(cfg *config.SQLDocumentStrategy, db *sql.DB) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("documents sql config is nil")
	}

	prefix := "plaza"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	placeholder := placeholderQuestion
	if driverName == "pgx" {
		placeholder = placeholderDollar
	}

	return &SQLStore{
		db:          db,
		driverName:  driverName,
		table:       storageutil.DeriveTableName(prefix, "documents"),
		placeholder: placeholder,
		rowLocks:    driverName != "sqlite",
		now:         time.Now,
	}, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Close releases the underlying connection pool.
func (ds *SQLStore) Close() error {
	return ds.db.Close()
}

func (ds *SQLStore) initSchema(ctx context.Context) error {
	_, err := ds.db.ExecContext(ctx, ds.schemaQuery())
	return err
}

func (ds *SQLStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
kind VARCHAR(32) NOT NULL,
id VARCHAR(64) NOT NULL,
owner_id VARCHAR(64) NOT NULL,
doc TEXT NOT NULL,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
PRIMARY KEY (kind, id)
)`, ds.table)
}

func (ds *SQLStore) Create(ctx context.Context, doc *Document) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}

	now := ds.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = ds.db.ExecContext(ctx, ds.insertQuery(), string(doc.Kind), doc.ID, doc.OwnerID, string(payload))
	return err
}

func (ds *SQLStore) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	return scanDocument(ds.db.QueryRowContext(ctx, ds.selectQuery(), string(kind), id))
}

// SetMedia reads, mutates and writes the document inside one transaction. Postgres and MySQL
// hold a row lock for the duration; SQLite serialises writers on its own.
func (ds *SQLStore) SetMedia(ctx context.Context, kind Kind, id string, field string, ref asset.Reference) error {
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		// Rollback is safe to call after Commit; it will return sql.ErrTxDone
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("unexpected error during transaction rollback in SetMedia: %v", rbErr)
		}
	}()

	doc, err := scanDocument(tx.QueryRowContext(ctx, ds.selectForUpdateQuery(), string(kind), id))
	if err != nil {
		return err
	}

	doc.setMedia(field, ref, ds.now().UTC())

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, ds.updateQuery(), string(payload), string(kind), id); err != nil {
		return err
	}

	return tx.Commit()
}

func (ds *SQLStore) Delete(ctx context.Context, kind Kind, id string) error {
	res, err := ds.db.ExecContext(ctx, ds.deleteQuery(), string(kind), id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func scanDocument(row *sql.Row) (*Document, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (ds *SQLStore) insertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (kind, id, owner_id, doc, updated_at) VALUES (%s, %s, %s, %s, CURRENT_TIMESTAMP)",
		ds.table,
		ds.placeholderFor(1),
		ds.placeholderFor(2),
		ds.placeholderFor(3),
		ds.placeholderFor(4),
	)
}

func (ds *SQLStore) updateQuery() string {
	return fmt.Sprintf(
		"UPDATE %s SET doc = %s, updated_at = CURRENT_TIMESTAMP WHERE kind = %s AND id = %s",
		ds.table,
		ds.placeholderFor(1),
		ds.placeholderFor(2),
		ds.placeholderFor(3),
	)
}

func (ds *SQLStore) selectQuery() string {
	return fmt.Sprintf("SELECT doc FROM %s WHERE kind = %s AND id = %s", ds.table, ds.placeholderFor(1), ds.placeholderFor(2))
}

func (ds *SQLStore) selectForUpdateQuery() string {
	if ds.rowLocks {
		return ds.selectQuery() + " FOR UPDATE"
	}

	return ds.selectQuery()
}

func (ds *SQLStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE kind = %s AND id = %s", ds.table, ds.placeholderFor(1), ds.placeholderFor(2))
}

func (ds *SQLStore) placeholderFor(index int) string {
	if ds.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}
