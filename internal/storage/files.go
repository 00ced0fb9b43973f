package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
)

const lockFileName = ".lock"

// FileBackend stores every document as a human-readable JSON file:
// store.json for the root and YYYY/MM/DD.json for each day.
type FileBackend struct {
	base string
}

// OpenFiles returns a FileBackend rooted at dir, creating it if needed.
func OpenFiles(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	return &FileBackend{base: dir}, nil
}

func (b *FileBackend) Close() error { return nil }

// Begin creates the lock file exclusively; it is removed on Commit or Rollback.
func (b *FileBackend) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(b.base, lockFileName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil, apperr.Errorf(apperr.ErrLocked,
			"%s exists (delete it if no other ots process is running)", lockPath)
	}
	if err != nil {
		return nil, fmt.Errorf("storage error creating lock file: %w", err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()
	return &fileTx{backend: b, lockPath: lockPath, pending: map[string][]byte{}}, nil
}

// keyPath maps a document key onto its file.
func (b *FileBackend) keyPath(key string) (string, error) {
	if key == RootKey {
		return filepath.Join(b.base, "store.json"), nil
	}
	date, ok := DateOf(key)
	if !ok {
		return "", fmt.Errorf("storage: unsupported key %q", key)
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("storage: invalid day key %q", key)
	}
	return filepath.Join(b.base, t.Format("2006"), t.Format("01"), t.Format("02")+".json"), nil
}

type fileTx struct {
	backend  *FileBackend
	lockPath string
	pending  map[string][]byte
	done     bool
}

func (tx *fileTx) Get(key string) ([]byte, error) {
	if data, ok := tx.pending[key]; ok {
		return data, nil
	}
	path, err := tx.backend.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if !json.Valid(data) {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, apperr.Errorf(apperr.ErrCorrupt, "corrupt JSON in %s (backed up to %s)", path, backupPath)
	}
	return data, nil
}

func (tx *fileTx) Put(key string, data []byte) error {
	if tx.done {
		return errors.New("storage: transaction already finished")
	}
	if _, err := tx.backend.keyPath(key); err != nil {
		return err
	}
	tx.pending[key] = data
	return nil
}

func (tx *fileTx) Keys(prefix string) ([]string, error) {
	seen := map[string]struct{}{}
	for k := range tx.pending {
		seen[k] = struct{}{}
	}
	if _, err := os.Stat(filepath.Join(tx.backend.base, "store.json")); err == nil {
		seen[RootKey] = struct{}{}
	}
	err := filepath.WalkDir(tx.backend.base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(tx.backend.base, p)
		if err != nil {
			return err
		}
		if date, ok := dateFromRel(rel); ok {
			seen[DayKey(date)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", tx.backend.base, err)
	}
	var keys []string
	for k := range seen {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// dateFromRel turns "2026/10/19.json" into "2026-10-19".
func dateFromRel(rel string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return "", false
	}
	day := strings.TrimSuffix(parts[2], ".json")
	for _, p := range []string{parts[0], parts[1], day} {
		if _, err := strconv.Atoi(p); err != nil {
			return "", false
		}
	}
	date := parts[0] + "-" + parts[1] + "-" + day
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}

// Commit writes every pending document atomically (temp file then rename)
// and releases the lock.
func (tx *fileTx) Commit() error {
	if tx.done {
		return errors.New("storage: transaction already finished")
	}
	defer tx.release()

	keys := make([]string, 0, len(tx.pending))
	for k := range tx.pending {
		keys = append(keys, k)
	}
	// Days first, root last: a crash mid-commit leaves the root pointing at
	// the previous state.
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == RootKey) != (keys[j] == RootKey) {
			return keys[j] == RootKey
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		path, err := tx.backend.keyPath(k)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, tx.pending[k]); err != nil {
			return err
		}
	}
	return nil
}

func (tx *fileTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.release()
	return nil
}

func (tx *fileTx) release() {
	tx.done = true
	tx.pending = nil
	_ = os.Remove(tx.lockPath)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}
