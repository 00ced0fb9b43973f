package model

import "time"

// Entry is a single timesheet record. Its date and position are implied by
// the DayLog that owns it.
type Entry struct {
	ID              int64      `json:"id"`
	TaskCode        string     `json:"task_code,omitempty"`
	TaskID          *int64     `json:"task_id,omitempty"`
	ProjectID       *int64     `json:"project_id,omitempty"`
	TaskTitle       string     `json:"task_title,omitempty"`
	ProjectTitle    string     `json:"project_title,omitempty"`
	Description     string     `json:"description,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	IsWorktime      bool       `json:"is_worktime"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	RemoteRef       string     `json:"remote_ref,omitempty"`
	PushKey         string     `json:"push_key"`
	Modified        bool       `json:"modified,omitempty"`
	Dropped         bool       `json:"dropped,omitempty"`
}

// Running reports whether the entry's timer is open.
func (e Entry) Running() bool {
	return e.StartedAt != nil
}

// Duration returns the accumulated, closed duration.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.DurationSeconds) * time.Second
}

// Elapsed returns the duration including the open interval of a running entry.
func (e Entry) Elapsed(now time.Time) time.Duration {
	d := e.Duration()
	if e.StartedAt != nil && now.After(*e.StartedAt) {
		d += now.Sub(*e.StartedAt).Truncate(time.Second)
	}
	return d
}

// SetDuration stores d at second resolution, clamped at zero.
func (e *Entry) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.DurationSeconds = int64(d / time.Second)
}

// Pushed reports whether the remote backend holds an up to date copy.
func (e Entry) Pushed() bool {
	return e.RemoteRef != "" && !e.Modified
}

// DayLog holds all entries of one calendar date ordered by position.
type DayLog struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// Live returns the number of entries that are not tombstoned.
func (d *DayLog) Live() int {
	n := 0
	for i := range d.Entries {
		if !d.Entries[i].Dropped {
			n++
		}
	}
	return n
}

// Pointer addresses an entry by date (YYYY-MM-DD) and position.
type Pointer struct {
	Date     string `json:"date"`
	Position int    `json:"position"`
}

// Alias is a named template for new entries.
type Alias struct {
	Name         string `json:"name"`
	TaskCode     string `json:"task_code,omitempty"`
	TaskID       *int64 `json:"task_id,omitempty"`
	ProjectID    *int64 `json:"project_id,omitempty"`
	Description  string `json:"description,omitempty"`
	TaskTitle    string `json:"task_title,omitempty"`
	ProjectTitle string `json:"project_title,omitempty"`
}

// Root is the top-level document of a filestore.
type Root struct {
	SchemaVersion int              `json:"schema_version"`
	NextID        int64            `json:"next_id"`
	Running       *Pointer         `json:"running"`
	History       []Pointer        `json:"history"`
	Aliases       map[string]Alias `json:"aliases"`
}
