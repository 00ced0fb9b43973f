package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Tiliavir/ots/internal/apperr"
)

const documentsDDL = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// DefaultBusyTimeout is how long Begin waits for another writer before
// reporting the filestore as locked.
const DefaultBusyTimeout = 2 * time.Second

// SQLiteBackend keeps all documents in a single table of a SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// SQLiteOption configures OpenSQLite.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	busyTimeout time.Duration
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) { o.busyTimeout = d }
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("storage: db path is empty")
	}
	o := sqliteOptions{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("storage: ping: %w", err))
	}
	if _, err := db.Exec(documentsDDL); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("storage: apply schema: %w", err))
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Begin pins a connection and takes SQLite's reserved lock with
// BEGIN IMMEDIATE, so a second writer fails here rather than at commit.
func (b *SQLiteBackend) Begin(ctx context.Context) (Tx, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, classify(fmt.Errorf("storage: begin: %w", err))
	}
	return &sqliteTx{ctx: ctx, conn: conn}, nil
}

type sqliteTx struct {
	ctx  context.Context
	conn *sql.Conn
	done bool
}

func (tx *sqliteTx) Get(key string) ([]byte, error) {
	var data []byte
	err := tx.conn.QueryRowContext(tx.ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("storage: get %s: %w", key, err))
	}
	if !json.Valid(data) {
		return nil, apperr.Errorf(apperr.ErrCorrupt, "corrupt JSON in document %q", key)
	}
	return data, nil
}

func (tx *sqliteTx) Put(key string, data []byte) error {
	if tx.done {
		return errors.New("storage: transaction already finished")
	}
	_, err := tx.conn.ExecContext(tx.ctx, `
		INSERT INTO documents (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return classify(fmt.Errorf("storage: put %s: %w", key, err))
	}
	return nil
}

func (tx *sqliteTx) Keys(prefix string) ([]string, error) {
	rows, err := tx.conn.QueryContext(tx.ctx,
		`SELECT key FROM documents WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, classify(fmt.Errorf("storage: list keys: %w", err))
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (tx *sqliteTx) Commit() error {
	if tx.done {
		return errors.New("storage: transaction already finished")
	}
	tx.done = true
	defer tx.conn.Close()
	if _, err := tx.conn.ExecContext(tx.ctx, "COMMIT"); err != nil {
		_, _ = tx.conn.ExecContext(context.Background(), "ROLLBACK")
		return classify(fmt.Errorf("storage: commit: %w", err))
	}
	return nil
}

func (tx *sqliteTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	defer tx.conn.Close()
	// The caller's context may already be cancelled; the rollback must still run.
	if _, err := tx.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
		return fmt.Errorf("storage: rollback: %w", err)
	}
	return nil
}

// classify maps SQLite lock contention onto apperr.ErrLocked.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperr.Errorf(apperr.ErrLocked, "%v", err)
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return apperr.Errorf(apperr.ErrCorrupt, "%v", err)
		}
	}
	return err
}

func sqliteDSN(path string, busyTimeout time.Duration) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	u.RawQuery = q.Encode()
	return u.String()
}
