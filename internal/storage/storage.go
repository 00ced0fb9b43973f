// Package storage persists a filestore as opaque JSON documents. The root
// document lives under RootKey and every calendar day under DayKey(date).
// All access happens inside a Tx that holds the filestore's exclusive lock.
package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// RootKey is the key of the root document.
const RootKey = "store"

const dayPrefix = "day/"

// DayKey returns the document key of the day log for date (YYYY-MM-DD).
func DayKey(date string) string {
	return dayPrefix + date
}

// DateOf returns the date of a day key and whether key is one.
func DateOf(key string) (string, bool) {
	if !strings.HasPrefix(key, dayPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, dayPrefix), true
}

// Backend opens transactions against a filestore.
type Backend interface {
	// Begin acquires the filestore lock. It fails with apperr.ErrLocked when
	// another process holds it.
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a serializable unit of work. Writes become visible to other
// transactions only on Commit. Rollback after Commit is a no-op.
type Tx interface {
	// Get returns the document under key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	// Keys lists all document keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
	Commit() error
	Rollback() error
}

// Open returns the backend for path: a SQLite database for .db and .sqlite
// files, a directory of JSON files otherwise.
func Open(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return OpenFiles(path)
	}
}
