package timesheet

import (
	"context"

	"github.com/google/uuid"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
)

// Remote is the part of the backend gateway the store depends on.
// Implementations must be safe for concurrent use.
type Remote interface {
	FindTaskByCode(ctx context.Context, code string) (model.Task, error)
	TaskTitle(ctx context.Context, taskID int64) (string, error)
	ProjectTitle(ctx context.Context, projectID int64) (string, error)
	// CreateOrUpdateTimesheet writes v and returns the remote record's ref.
	// An empty v.Ref with a Key the backend already knows must return the
	// existing record instead of creating a second one.
	CreateOrUpdateTimesheet(ctx context.Context, v model.TimesheetValues) (string, error)
}

// Selection picks the entries to push: one index, one date, or today when
// both are empty.
type Selection struct {
	Index string
	Date  string
}

// PushStatus is the outcome of pushing one entry.
type PushStatus int

const (
	PushCreated PushStatus = iota
	PushUpdated
	PushSkipped
	PushFailed
)

func (s PushStatus) String() string {
	switch s {
	case PushCreated:
		return "created"
	case PushUpdated:
		return "updated"
	case PushSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// PushResult reports one entry of a push.
type PushResult struct {
	Located
	Status PushStatus
	Ref    string
	// Reason explains a skip.
	Reason string
	Err    error
}

// Push submits the selected entries. Entries already pushed and unchanged
// are skipped, modified ones are rewritten against their remote ref and the
// rest are created. Running and non-worktime entries are skipped. A failing
// entry keeps its previous state and does not stop the batch; every ref
// obtained is kept when the transaction commits.
func (s *Store) Push(ctx context.Context, remote Remote, sel Selection) ([]PushResult, error) {
	if remote == nil {
		return nil, apperr.Errorf(apperr.ErrAuth, "log in to push timesheets")
	}
	targets, err := s.selectEntries(sel)
	if err != nil {
		return nil, err
	}
	results := make([]PushResult, 0, len(targets))
	for _, loc := range targets {
		results = append(results, s.pushOne(ctx, remote, loc))
	}
	return results, nil
}

func (s *Store) selectEntries(sel Selection) ([]Located, error) {
	if sel.Index != "" {
		loc, err := s.Resolve(sel.Index)
		if err != nil {
			return nil, err
		}
		return []Located{loc}, nil
	}
	date := sel.Date
	if date == "" {
		date = s.Today()
	} else if _, err := timecalc.ParseDate(date, s.now().Location()); err != nil {
		return nil, err
	}
	return s.Entries(date, date)
}

func (s *Store) pushOne(ctx context.Context, remote Remote, loc Located) PushResult {
	e := loc.Entry
	res := PushResult{Located: loc, Ref: e.RemoteRef}
	switch {
	case e.Running():
		res.Status, res.Reason = PushSkipped, "running"
		return res
	case !e.IsWorktime:
		res.Status, res.Reason = PushSkipped, "not worktime"
		return res
	case e.Pushed():
		res.Status, res.Reason = PushSkipped, "already pushed"
		return res
	case e.DurationSeconds == 0:
		res.Status, res.Reason = PushSkipped, "no duration"
		return res
	}

	if e.TaskID == nil && e.TaskCode != "" {
		task, err := remote.FindTaskByCode(ctx, e.TaskCode)
		if err != nil {
			res.Status, res.Err = PushFailed, err
			return res
		}
		applyTask(e, task)
		s.touch(loc.Date)
	}
	if e.TaskID == nil && e.ProjectID == nil {
		res.Status = PushFailed
		res.Err = apperr.Errorf(apperr.ErrValidation, "timesheet %d has no task or project", e.ID)
		return res
	}
	if e.PushKey == "" {
		e.PushKey = uuid.NewString()
		s.touch(loc.Date)
	}

	ref, err := remote.CreateOrUpdateTimesheet(ctx, model.TimesheetValues{
		Ref:         e.RemoteRef,
		Key:         e.PushKey,
		Date:        loc.Date,
		Description: pushDescription(e),
		Hours:       hours(e.DurationSeconds),
		TaskID:      e.TaskID,
		ProjectID:   e.ProjectID,
	})
	if err != nil {
		res.Status, res.Err = PushFailed, err
		return res
	}
	if e.RemoteRef == "" {
		res.Status = PushCreated
	} else {
		res.Status = PushUpdated
	}
	e.RemoteRef = ref
	e.Modified = false
	s.touch(loc.Date)
	res.Ref = ref
	return res
}

// pushDescription falls back to the task title since the backend rejects
// empty names.
func pushDescription(e *model.Entry) string {
	switch {
	case e.Description != "":
		return e.Description
	case e.TaskTitle != "":
		return e.TaskTitle
	default:
		return "/"
	}
}

// hours converts seconds to hours in whole minutes, matching what list shows.
func hours(seconds int64) float64 {
	return float64(seconds/60) / 60
}

// UpdateEntry re-reads task and project ids and titles for one entry.
func (s *Store) UpdateEntry(ctx context.Context, remote Remote, token string) (Located, error) {
	if remote == nil {
		return Located{}, apperr.Errorf(apperr.ErrAuth, "log in to update timesheets")
	}
	loc, err := s.Resolve(token)
	if err != nil {
		return Located{}, err
	}
	e := loc.Entry
	before := *e
	if e.TaskCode != "" {
		task, err := remote.FindTaskByCode(ctx, e.TaskCode)
		if err != nil {
			return Located{}, err
		}
		applyTask(e, task)
	} else {
		if e.TaskID != nil {
			if e.TaskTitle, err = remote.TaskTitle(ctx, *e.TaskID); err != nil {
				return Located{}, err
			}
		}
		if e.ProjectID != nil {
			if e.ProjectTitle, err = remote.ProjectTitle(ctx, *e.ProjectID); err != nil {
				return Located{}, err
			}
		}
	}
	if e.RemoteRef != "" && (!sameID(before.TaskID, e.TaskID) || !sameID(before.ProjectID, e.ProjectID)) {
		e.Modified = true
	}
	s.touch(loc.Date)
	return loc, nil
}
