package timesheet

import (
	"context"
	"time"

	"github.com/Tiliavir/ots/internal/timecalc"
)

// EntryPatch is a partial update. Nil fields are left untouched.
type EntryPatch struct {
	Description *string
	Duration    *timecalc.Delta
	TaskCode    *string
	TaskID      *int64
	ProjectID   *int64
	IsWorktime  *bool
}

// Empty reports whether the patch sets no field.
func (p EntryPatch) Empty() bool {
	return p.Description == nil && p.Duration == nil && p.TaskCode == nil &&
		p.TaskID == nil && p.ProjectID == nil && p.IsWorktime == nil
}

// Edit applies patch to the entry addressed by token and reports whether
// anything changed. A changed task code drops the cached ids and titles
// unless the patch supplies new ids. Editing a pushed entry marks it
// modified so the next push rewrites the remote record.
func (s *Store) Edit(ctx context.Context, token string, patch EntryPatch) (Located, bool, error) {
	loc, err := s.Resolve(token)
	if err != nil {
		return Located{}, false, err
	}
	e := loc.Entry
	changed := false

	if patch.Description != nil && *patch.Description != e.Description {
		e.Description = *patch.Description
		changed = true
	}
	if patch.Duration != nil {
		d := patch.Duration.Apply(e.Duration().Truncate(time.Minute))
		if int64(d/time.Second) != e.DurationSeconds {
			e.SetDuration(d)
			changed = true
		}
	}
	if patch.IsWorktime != nil && *patch.IsWorktime != e.IsWorktime {
		e.IsWorktime = *patch.IsWorktime
		changed = true
	}
	codeChanged := false
	if patch.TaskCode != nil && *patch.TaskCode != e.TaskCode {
		e.TaskCode = *patch.TaskCode
		e.TaskID, e.ProjectID = nil, nil
		e.TaskTitle, e.ProjectTitle = "", ""
		codeChanged = true
		changed = true
	}
	if patch.TaskID != nil && !sameID(e.TaskID, patch.TaskID) {
		id := *patch.TaskID
		e.TaskID = &id
		e.TaskTitle = ""
		changed = true
	}
	if patch.ProjectID != nil && !sameID(e.ProjectID, patch.ProjectID) {
		id := *patch.ProjectID
		e.ProjectID = &id
		e.ProjectTitle = ""
		changed = true
	}
	if !changed {
		return loc, false, nil
	}
	if codeChanged || patch.TaskID != nil || patch.ProjectID != nil {
		s.enrich(ctx, e)
	}
	if e.RemoteRef != "" {
		e.Modified = true
	}
	s.touch(loc.Date)
	return loc, true, nil
}

// Drop tombstones the entry addressed by token. Positions of the other
// entries of that day do not change. Dropping the running entry leaves the
// store idle without accruing the open interval.
func (s *Store) Drop(token string) (Located, error) {
	loc, err := s.Resolve(token)
	if err != nil {
		return Located{}, err
	}
	if s.root.Running != nil && *s.root.Running == loc.Pointer {
		s.setRunning(nil)
	}
	loc.Entry.StartedAt = nil
	loc.Entry.Dropped = true
	s.touch(loc.Date)
	return loc, nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
