// Package timesheet is the filestore aggregate: the date-partitioned entry
// log, the running-timer state machine, the alias table and the push
// contract against the remote backend. A Store lives for exactly one
// transaction; use WithStore to obtain one.
package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/migrate"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/storage"
	"github.com/Tiliavir/ots/internal/timecalc"
)

// DefaultHistoryDepth bounds the resume stack when Options leaves it unset.
const DefaultHistoryDepth = 10

// Options configures a Store.
type Options struct {
	AutoMigrate  bool
	HistoryDepth int
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
	// Remote enables best-effort lookups of task ids and titles when
	// entries and aliases are created. Nil means offline.
	Remote Remote
}

// Store is the loaded root document plus every day log touched so far.
type Store struct {
	tx           storage.Tx
	root         model.Root
	days         map[string]*model.DayLog
	dirty        map[string]bool
	rootDirty    bool
	now          func() time.Time
	historyDepth int
	logger       *slog.Logger
	remote       Remote
}

// Located is an entry together with its address.
type Located struct {
	model.Pointer
	Entry *model.Entry
}

// WithStore runs fn inside one transaction: lock, migration check, load,
// fn, flush, commit. Any error rolls the transaction back.
func WithStore(ctx context.Context, backend storage.Backend, opts Options, fn func(*Store) error) (err error) {
	tx, err := backend.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && err == nil {
				err = rbErr
			}
		}
	}()

	if _, err := migrate.CheckAndMigrate(tx, opts.AutoMigrate, opts.Logger); err != nil {
		return err
	}
	s, err := Load(tx, opts)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Load reads the root document. The filestore must already be at
// migrate.CurrentVersion; a missing root is a fresh, empty store.
func Load(tx storage.Tx, opts Options) (*Store, error) {
	s := &Store{
		tx:           tx,
		days:         map[string]*model.DayLog{},
		dirty:        map[string]bool{},
		now:          opts.Now,
		historyDepth: opts.HistoryDepth,
		logger:       opts.Logger,
		remote:       opts.Remote,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.historyDepth <= 0 {
		s.historyDepth = DefaultHistoryDepth
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	data, err := tx.Get(storage.RootKey)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.root = model.Root{SchemaVersion: migrate.CurrentVersion, NextID: 1}
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &s.root); err != nil {
			return nil, apperr.Errorf(apperr.ErrCorrupt, "root document: %v", err)
		}
	}
	if s.root.SchemaVersion != migrate.CurrentVersion {
		return nil, apperr.Errorf(apperr.ErrMigrationRequired,
			"filestore is at version %d, expected %d", s.root.SchemaVersion, migrate.CurrentVersion)
	}
	if s.root.NextID < 1 {
		s.root.NextID = 1
	}
	if s.root.Aliases == nil {
		s.root.Aliases = map[string]model.Alias{}
	}
	return s, nil
}

// Now returns the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Today returns the date key of the store clock.
func (s *Store) Today() string {
	return timecalc.DateKey(s.now())
}

// day returns the log for date, or nil when none exists.
func (s *Store) day(date string) (*model.DayLog, error) {
	if d, ok := s.days[date]; ok {
		return d, nil
	}
	data, err := s.tx.Get(storage.DayKey(date))
	if errors.Is(err, apperr.ErrNotFound) {
		s.days[date] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d model.DayLog
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperr.Errorf(apperr.ErrCorrupt, "day %s: %v", date, err)
	}
	d.Date = date
	s.days[date] = &d
	return &d, nil
}

// dayForWrite returns the log for date, creating it on first use, and
// marks it for flushing.
func (s *Store) dayForWrite(date string) (*model.DayLog, error) {
	d, err := s.day(date)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &model.DayLog{Date: date, Entries: []model.Entry{}}
		s.days[date] = d
	}
	s.dirty[date] = true
	return d, nil
}

// entryAt returns the entry under p, or nil when p points nowhere.
func (s *Store) entryAt(p model.Pointer) (*model.Entry, error) {
	d, err := s.day(p.Date)
	if err != nil || d == nil {
		return nil, err
	}
	if p.Position < 0 || p.Position >= len(d.Entries) {
		return nil, nil
	}
	return &d.Entries[p.Position], nil
}

func (s *Store) touch(date string) {
	s.dirty[date] = true
}

// Resolve maps an index token onto a live entry.
func (s *Store) Resolve(token string) (Located, error) {
	p, err := address.Resolve(token, s.now())
	if err != nil {
		return Located{}, err
	}
	return s.locate(p, token)
}

func (s *Store) locate(p model.Pointer, token string) (Located, error) {
	d, err := s.day(p.Date)
	if err != nil {
		return Located{}, err
	}
	if d == nil {
		return Located{}, apperr.Errorf(apperr.ErrAddress, "no timesheets on %s", p.Date)
	}
	if p.Position >= len(d.Entries) {
		return Located{}, apperr.Errorf(apperr.ErrAddress,
			"index %s out of range, %s has %d timesheets", token, p.Date, len(d.Entries))
	}
	e := &d.Entries[p.Position]
	if e.Dropped {
		return Located{}, apperr.Errorf(apperr.ErrAddress, "index %s was dropped", token)
	}
	return Located{Pointer: p, Entry: e}, nil
}

// Running returns the running entry, or nil when the store is idle.
func (s *Store) Running() (*Located, error) {
	if s.root.Running == nil {
		return nil, nil
	}
	p := *s.root.Running
	e, err := s.entryAt(p)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.Running() {
		return nil, nil
	}
	return &Located{Pointer: p, Entry: e}, nil
}

// History returns the resume stack, most recent last.
func (s *Store) History() []model.Pointer {
	return append([]model.Pointer(nil), s.root.History...)
}

// Day returns the log for date. A date without entries yields an empty log.
func (s *Store) Day(date string) (model.DayLog, error) {
	d, err := s.day(date)
	if err != nil {
		return model.DayLog{}, err
	}
	if d == nil {
		return model.DayLog{Date: date}, nil
	}
	return *d, nil
}

// Entries returns every live entry dated within [from, to], ordered by date
// and position.
func (s *Store) Entries(from, to string) ([]Located, error) {
	keys, err := s.tx.Keys("day/")
	if err != nil {
		return nil, err
	}
	dates := map[string]bool{}
	for _, k := range keys {
		if date, ok := storage.DateOf(k); ok {
			dates[date] = true
		}
	}
	for date, d := range s.days {
		if d != nil {
			dates[date] = true
		}
	}
	sorted := make([]string, 0, len(dates))
	for date := range dates {
		if date >= from && date <= to {
			sorted = append(sorted, date)
		}
	}
	sort.Strings(sorted)

	var out []Located
	for _, date := range sorted {
		d, err := s.day(date)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		for i := range d.Entries {
			if d.Entries[i].Dropped {
				continue
			}
			out = append(out, Located{
				Pointer: model.Pointer{Date: date, Position: i},
				Entry:   &d.Entries[i],
			})
		}
	}
	return out, nil
}

// flush writes every dirty document back through the transaction.
func (s *Store) flush() error {
	dates := make([]string, 0, len(s.dirty))
	for date := range s.dirty {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		d := s.days[date]
		if d == nil {
			continue
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("encode day %s: %w", date, err)
		}
		if err := s.tx.Put(storage.DayKey(date), data); err != nil {
			return err
		}
	}
	if !s.rootDirty {
		return nil
	}
	data, err := json.MarshalIndent(s.root, "", "  ")
	if err != nil {
		return fmt.Errorf("encode root: %w", err)
	}
	return s.tx.Put(storage.RootKey, data)
}
