package timesheet

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
)

// EntrySpec describes a new entry. TaskCode may name an alias, which then
// supplies every field left empty here.
type EntrySpec struct {
	TaskCode    string
	TaskID      *int64
	ProjectID   *int64
	Description string
	Duration    time.Duration
	NotWorktime bool
	// Date places a closed entry on another day than today (YYYY-MM-DD).
	Date string
}

// Resumed reports the outcome of Resume.
type Resumed struct {
	Located
	// Source is set when the target lay on an earlier day and was copied.
	Source *model.Pointer
	// AlreadyRunning means the target was the running entry; nothing changed.
	AlreadyRunning bool
}

// AddTimesheet appends a closed entry to today's log, or to spec.Date.
// The running timer is left alone.
func (s *Store) AddTimesheet(ctx context.Context, spec EntrySpec) (Located, error) {
	date := s.Today()
	if spec.Date != "" {
		if _, err := time.Parse(timecalc.DateLayout, spec.Date); err != nil {
			return Located{}, apperr.Errorf(apperr.ErrFormat, "date %q is not YYYY-MM-DD", spec.Date)
		}
		date = spec.Date
	}
	e, err := s.newEntry(ctx, spec)
	if err != nil {
		return Located{}, err
	}
	return s.appendEntry(date, e)
}

// AddAndStart stops the running entry, if any, and starts a new one today.
// spec.Date must be empty or today.
func (s *Store) AddAndStart(ctx context.Context, spec EntrySpec) (Located, error) {
	if spec.Date != "" && spec.Date != s.Today() {
		return Located{}, apperr.Errorf(apperr.ErrValidation, "timers start today, not on %s", spec.Date)
	}
	e, err := s.newEntry(ctx, spec)
	if err != nil {
		return Located{}, err
	}
	now := s.now()
	if _, err := s.stopCurrent(now); err != nil {
		return Located{}, err
	}
	e.StartedAt = &now
	loc, err := s.appendEntry(timecalc.DateKey(now), e)
	if err != nil {
		return Located{}, err
	}
	s.setRunning(&loc.Pointer)
	return loc, nil
}

// Lunch starts a non-worktime entry described as "Lunch".
func (s *Store) Lunch(ctx context.Context) (Located, error) {
	return s.AddAndStart(ctx, EntrySpec{Description: "Lunch", NotWorktime: true})
}

// StopRunning closes the running entry and pushes it onto the history. It
// returns nil when nothing was running.
func (s *Store) StopRunning() (*Located, error) {
	return s.stopCurrent(s.now())
}

// Resume re-opens an entry. With an empty token the most recent history
// entry is used. Accrued time is kept: the re-opened interval is added to
// the existing duration at the next stop. A target on an earlier day is
// copied to today with zero duration and the copy runs instead.
func (s *Store) Resume(token string) (Resumed, error) {
	var target Located
	var err error
	if token != "" {
		target, err = s.Resolve(token)
	} else {
		target, err = s.popHistory()
	}
	if err != nil {
		return Resumed{}, err
	}
	if s.root.Running != nil && *s.root.Running == target.Pointer && target.Entry.Running() {
		return Resumed{Located: target, AlreadyRunning: true}, nil
	}

	// Keep copies; stopping and appending may move entries in memory.
	src := target.Pointer
	tmpl := *target.Entry

	now := s.now()
	if _, err := s.stopCurrent(now); err != nil {
		return Resumed{}, err
	}

	today := timecalc.DateKey(now)
	if src.Date != today {
		e := s.copyEntry(tmpl)
		e.StartedAt = &now
		loc, err := s.appendEntry(today, e)
		if err != nil {
			return Resumed{}, err
		}
		s.setRunning(&loc.Pointer)
		return Resumed{Located: loc, Source: &src}, nil
	}

	e, err := s.entryAt(src)
	if err != nil {
		return Resumed{}, err
	}
	e.StartedAt = &now
	if e.RemoteRef != "" {
		e.Modified = true
	}
	s.touch(src.Date)
	s.setRunning(&src)
	return Resumed{Located: Located{Pointer: src, Entry: e}}, nil
}

// stopCurrent accrues the open interval of the running entry, clears the
// running pointer and records the entry in the history.
func (s *Store) stopCurrent(now time.Time) (*Located, error) {
	if s.root.Running == nil {
		return nil, nil
	}
	p := *s.root.Running
	e, err := s.entryAt(p)
	if err != nil {
		return nil, err
	}
	s.setRunning(nil)
	if e == nil || !e.Running() {
		s.logger.Warn("running pointer did not reference a running entry",
			slog.String("date", p.Date), slog.Int("position", p.Position))
		return nil, nil
	}
	e.SetDuration(e.Elapsed(now))
	e.StartedAt = nil
	if e.RemoteRef != "" {
		e.Modified = true
	}
	s.touch(p.Date)
	s.pushHistory(p)
	return &Located{Pointer: p, Entry: e}, nil
}

func (s *Store) setRunning(p *model.Pointer) {
	if p == nil {
		s.root.Running = nil
	} else {
		cp := *p
		s.root.Running = &cp
	}
	s.rootDirty = true
}

func (s *Store) pushHistory(p model.Pointer) {
	h := append(s.root.History, p)
	if len(h) > s.historyDepth {
		h = h[len(h)-s.historyDepth:]
	}
	s.root.History = h
	s.rootDirty = true
}

// popHistory pops until it finds a live entry that is not running.
func (s *Store) popHistory() (Located, error) {
	for len(s.root.History) > 0 {
		last := len(s.root.History) - 1
		p := s.root.History[last]
		s.root.History = s.root.History[:last]
		s.rootDirty = true

		e, err := s.entryAt(p)
		if err != nil {
			return Located{}, err
		}
		if e == nil || e.Dropped || e.Running() {
			continue
		}
		return Located{Pointer: p, Entry: e}, nil
	}
	return Located{}, apperr.ErrNoHistory
}

// newEntry builds an entry from spec, expanding an alias and filling ids
// from the remote when one is configured.
func (s *Store) newEntry(ctx context.Context, spec EntrySpec) (model.Entry, error) {
	e := model.Entry{
		TaskCode:    spec.TaskCode,
		TaskID:      spec.TaskID,
		ProjectID:   spec.ProjectID,
		Description: spec.Description,
		IsWorktime:  !spec.NotWorktime,
	}
	e.SetDuration(spec.Duration)
	if a, ok := s.root.Aliases[spec.TaskCode]; ok && spec.TaskCode != "" {
		e.TaskCode = a.TaskCode
		if e.TaskID == nil {
			e.TaskID = a.TaskID
		}
		if e.ProjectID == nil {
			e.ProjectID = a.ProjectID
		}
		if e.Description == "" {
			e.Description = a.Description
		}
		e.TaskTitle = a.TaskTitle
		e.ProjectTitle = a.ProjectTitle
	}
	if e.TaskCode == "" && e.TaskID == nil && e.ProjectID == nil && e.Description == "" {
		return model.Entry{}, apperr.Errorf(apperr.ErrValidation,
			"a timesheet needs a task code, alias, task id, project id or description")
	}
	s.enrich(ctx, &e)
	e.ID = s.root.NextID
	s.root.NextID++
	s.rootDirty = true
	e.PushKey = uuid.NewString()
	return e, nil
}

// copyEntry clones the task fields of tmpl into a fresh entry.
func (s *Store) copyEntry(tmpl model.Entry) model.Entry {
	e := model.Entry{
		ID:           s.root.NextID,
		TaskCode:     tmpl.TaskCode,
		TaskID:       tmpl.TaskID,
		ProjectID:    tmpl.ProjectID,
		TaskTitle:    tmpl.TaskTitle,
		ProjectTitle: tmpl.ProjectTitle,
		Description:  tmpl.Description,
		IsWorktime:   tmpl.IsWorktime,
		PushKey:      uuid.NewString(),
	}
	s.root.NextID++
	s.rootDirty = true
	return e
}

func (s *Store) appendEntry(date string, e model.Entry) (Located, error) {
	d, err := s.dayForWrite(date)
	if err != nil {
		return Located{}, err
	}
	d.Entries = append(d.Entries, e)
	pos := len(d.Entries) - 1
	return Located{
		Pointer: model.Pointer{Date: date, Position: pos},
		Entry:   &d.Entries[pos],
	}, nil
}

// enrich resolves missing task ids and titles. Failures are logged only.
func (s *Store) enrich(ctx context.Context, e *model.Entry) {
	if s.remote == nil {
		return
	}
	if e.TaskCode != "" && e.TaskID == nil {
		task, err := s.remote.FindTaskByCode(ctx, e.TaskCode)
		if err != nil {
			s.logger.Warn("task lookup failed",
				slog.String("task_code", e.TaskCode), slog.String("error", err.Error()))
			return
		}
		applyTask(e, task)
		return
	}
	if e.TaskID != nil && e.TaskTitle == "" {
		if title, err := s.remote.TaskTitle(ctx, *e.TaskID); err == nil {
			e.TaskTitle = title
		} else {
			s.logger.Warn("task title lookup failed",
				slog.Int64("task_id", *e.TaskID), slog.String("error", err.Error()))
		}
	}
	if e.ProjectID != nil && e.ProjectTitle == "" {
		if title, err := s.remote.ProjectTitle(ctx, *e.ProjectID); err == nil {
			e.ProjectTitle = title
		} else {
			s.logger.Warn("project title lookup failed",
				slog.Int64("project_id", *e.ProjectID), slog.String("error", err.Error()))
		}
	}
}

func applyTask(e *model.Entry, task model.Task) {
	id := task.ID
	e.TaskID = &id
	e.TaskTitle = task.Name
	if task.ProjectID != 0 {
		pid := task.ProjectID
		e.ProjectID = &pid
		e.ProjectTitle = task.ProjectName
	}
}
