// Package migrate upgrades a filestore written by an older ots release to
// the current document layout.
//
// Version history:
//
//	v1  root: version, sequence_next_id, current_running, last_running
//	    day:  timesheets[] with duration in minutes and a numeric odoo_id
//	v2  root: schema_version, next_id, running, history
//	    day:  entries[] with duration_seconds and a string remote_ref
//	v3  entries carry a push_key used to make pushes idempotent
package migrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/storage"
)

// CurrentVersion is the layout this build reads and writes.
const CurrentVersion = 3

// Document is one decoded JSON document. Numbers decode as json.Number.
type Document map[string]any

// Snapshot is every document of a filestore, keyed the same way as storage.
type Snapshot struct {
	Root Document
	Days map[string]Document
}

// Upgrader rewrites a snapshot from version v to v+1 in place. It must not
// touch anything outside the snapshot.
type Upgrader func(s *Snapshot) error

// upgraders is keyed by the version an upgrader starts from.
var upgraders = map[int]Upgrader{
	1: upgradeV1,
	2: upgradeV2,
}

// Result reports what CheckAndMigrate did.
type Result struct {
	From int
	To   int
	// Fresh is set when the filestore had no root document yet.
	Fresh bool
}

// Migrated reports whether any upgrader ran.
func (r Result) Migrated() bool {
	return r.From != r.To
}

// Version returns the schema version of the filestore in tx. A filestore
// without a root document is reported at CurrentVersion.
func Version(tx storage.Tx) (int, bool, error) {
	data, err := tx.Get(storage.RootKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return CurrentVersion, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	root, err := decode(data)
	if err != nil {
		return 0, false, apperr.Errorf(apperr.ErrCorrupt, "root document: %v", err)
	}
	return detectVersion(root), false, nil
}

// CheckAndMigrate compares the filestore version against CurrentVersion.
// An older filestore is upgraded and written back through tx when
// autoMigrate is set, and rejected with apperr.ErrMigrationRequired
// otherwise. A newer filestore is rejected with apperr.ErrUnsupportedVersion.
func CheckAndMigrate(tx storage.Tx, autoMigrate bool, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	version, fresh, err := Version(tx)
	if err != nil {
		return Result{}, err
	}
	res := Result{From: version, To: version, Fresh: fresh}
	switch {
	case version == CurrentVersion:
		return res, nil
	case version > CurrentVersion:
		return res, apperr.Errorf(apperr.ErrUnsupportedVersion,
			"filestore is at version %d, this build supports up to %d", version, CurrentVersion)
	case !autoMigrate:
		return res, apperr.Errorf(apperr.ErrMigrationRequired,
			"filestore is at version %d, expected %d (run 'ots migrate' or set auto_migrate = true)",
			version, CurrentVersion)
	}

	snap, err := load(tx)
	if err != nil {
		return res, err
	}
	to, err := Apply(snap, version)
	if err != nil {
		return res, err
	}
	if err := save(tx, snap); err != nil {
		return res, err
	}
	res.To = to
	logger.Info("migrated filestore",
		slog.Int("from", version),
		slog.Int("to", to),
		slog.Int("days", len(snap.Days)))
	return res, nil
}

// Apply runs the upgrader chain on snap starting at version from and
// returns the version it ended at.
func Apply(snap *Snapshot, from int) (int, error) {
	if from < 1 {
		return from, apperr.Errorf(apperr.ErrUnsupportedVersion, "unknown filestore version %d", from)
	}
	v := from
	for v < CurrentVersion {
		up, ok := upgraders[v]
		if !ok {
			return v, fmt.Errorf("migrate: no upgrader from version %d", v)
		}
		if err := up(snap); err != nil {
			return v, fmt.Errorf("migrate: v%d to v%d: %w", v, v+1, err)
		}
		v++
		snap.Root["schema_version"] = v
	}
	return v, nil
}

// detectVersion reads schema_version, falling back to the legacy version
// field. Stores that carry neither predate versioning and are v1.
func detectVersion(root Document) int {
	if v, ok := asInt(root["schema_version"]); ok {
		return int(v)
	}
	if v, ok := asInt(root["version"]); ok {
		return int(v)
	}
	return 1
}

func load(tx storage.Tx) (*Snapshot, error) {
	data, err := tx.Get(storage.RootKey)
	if err != nil {
		return nil, err
	}
	root, err := decode(data)
	if err != nil {
		return nil, apperr.Errorf(apperr.ErrCorrupt, "root document: %v", err)
	}
	keys, err := tx.Keys("day/")
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Root: root, Days: make(map[string]Document, len(keys))}
	for _, k := range keys {
		data, err := tx.Get(k)
		if err != nil {
			return nil, err
		}
		doc, err := decode(data)
		if err != nil {
			return nil, apperr.Errorf(apperr.ErrCorrupt, "document %s: %v", k, err)
		}
		snap.Days[k] = doc
	}
	return snap, nil
}

func save(tx storage.Tx, snap *Snapshot) error {
	keys := make([]string, 0, len(snap.Days))
	for k := range snap.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.MarshalIndent(snap.Days[k], "", "  ")
		if err != nil {
			return fmt.Errorf("migrate: encode %s: %w", k, err)
		}
		if err := tx.Put(k, data); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(snap.Root, "", "  ")
	if err != nil {
		return fmt.Errorf("migrate: encode root: %w", err)
	}
	return tx.Put(storage.RootKey, data)
}

func decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
