package model

import "time"

// Task is a project task as known by the remote backend.
type Task struct {
	ID             int64   `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	ProjectID      int64   `json:"project_id"`
	ProjectName    string  `json:"project_name"`
	Stage          string  `json:"stage"`
	PlannedHours   float64 `json:"planned_hours"`
	EffectiveHours float64 `json:"effective_hours"`
}

// Project is a remote project.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PlanningSlot is an allocation of hours to a task or project over a period.
type PlanningSlot struct {
	Name           string
	Start          time.Time
	End            time.Time
	AllocatedHours float64
	EffectiveHours float64
	// Progress is effective/allocated as a fraction; 1.0 means fully used.
	Progress float64
}

// TimesheetValues is what a push submits for one entry.
type TimesheetValues struct {
	// Ref is the existing remote record, empty for a create.
	Ref         string
	Key         string
	Date        string
	Description string
	Hours       float64
	TaskID      *int64
	ProjectID   *int64
}
