package odoo

import (
	"context"
	"strconv"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
)

const odooDatetime = "2006-01-02 15:04:05"

var taskFields = []string{"id", "code", "name", "project_id", "stage_id", "allocated_hours", "effective_hours"}

type taskRecord struct {
	ID             int64    `json:"id"`
	Code           text     `json:"code"`
	Name           text     `json:"name"`
	Project        many2one `json:"project_id"`
	Stage          many2one `json:"stage_id"`
	AllocatedHours float64  `json:"allocated_hours"`
	EffectiveHours float64  `json:"effective_hours"`
}

func (r taskRecord) task() model.Task {
	return model.Task{
		ID:             r.ID,
		Code:           string(r.Code),
		Name:           string(r.Name),
		ProjectID:      r.Project.ID,
		ProjectName:    r.Project.Name,
		Stage:          r.Stage.Name,
		PlannedHours:   r.AllocatedHours,
		EffectiveHours: r.EffectiveHours,
	}
}

type nameRecord struct {
	ID   int64 `json:"id"`
	Name text  `json:"name"`
}

// Authenticate checks the API key in sess and returns the uid of
// sess.Login.
func Authenticate(ctx context.Context, sess Session, opts ...Option) (int64, error) {
	c := New(sess, opts...)
	var users []nameRecord
	err := c.call(ctx, "res.users", "search_read", map[string]any{
		"domain": [][]any{{"login", "=", sess.Login}},
		"fields": []string{"id", "name"},
		"limit":  1,
	}, &users)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, apperr.Errorf(apperr.ErrAuth, "no odoo user with login %q", sess.Login)
	}
	return users[0].ID, nil
}

// SearchTasks returns up to limit tasks whose code or name contains term.
func (c *Client) SearchTasks(ctx context.Context, term string, limit int) ([]model.Task, error) {
	var records []taskRecord
	err := c.call(ctx, "project.task", "search_read", map[string]any{
		"domain": []any{"|", []any{"code", "ilike", term}, []any{"name", "ilike", term}},
		"fields": taskFields,
		"limit":  limit,
		"order":  "code",
	}, &records)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

// SearchProjects returns up to limit projects whose name contains term.
func (c *Client) SearchProjects(ctx context.Context, term string, limit int) ([]model.Project, error) {
	var records []nameRecord
	err := c.call(ctx, "project.project", "search_read", map[string]any{
		"domain": [][]any{{"name", "ilike", term}},
		"fields": []string{"id", "name"},
		"limit":  limit,
		"order":  "name",
	}, &records)
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(records))
	for _, r := range records {
		projects = append(projects, model.Project{ID: r.ID, Name: string(r.Name)})
	}
	return projects, nil
}

// FindTaskByCode returns the task with exactly this code.
func (c *Client) FindTaskByCode(ctx context.Context, code string) (model.Task, error) {
	var records []taskRecord
	err := c.call(ctx, "project.task", "search_read", map[string]any{
		"domain": [][]any{{"code", "=", code}},
		"fields": taskFields,
		"limit":  1,
	}, &records)
	if err != nil {
		return model.Task{}, err
	}
	if len(records) == 0 {
		return model.Task{}, apperr.Errorf(apperr.ErrNotFound, "task %q", code)
	}
	return records[0].task(), nil
}

// TaskTitle returns the name of a task.
func (c *Client) TaskTitle(ctx context.Context, taskID int64) (string, error) {
	return c.readName(ctx, "project.task", taskID)
}

// ProjectTitle returns the name of a project.
func (c *Client) ProjectTitle(ctx context.Context, projectID int64) (string, error) {
	return c.readName(ctx, "project.project", projectID)
}

func (c *Client) readName(ctx context.Context, odooModel string, id int64) (string, error) {
	var records []nameRecord
	err := c.call(ctx, odooModel, "read", map[string]any{
		"ids":    []int64{id},
		"fields": []string{"name"},
	}, &records)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", apperr.Errorf(apperr.ErrNotFound, "%s %d", odooModel, id)
	}
	return string(records[0].Name), nil
}

// CreateOrUpdateTimesheet writes one analytic line. With v.Ref set the
// record is rewritten. Otherwise the push key is looked up first, so a
// create retried after a lost response returns the record already made.
func (c *Client) CreateOrUpdateTimesheet(ctx context.Context, v model.TimesheetValues) (string, error) {
	vals := map[string]any{
		"date":        v.Date,
		"name":        v.Description,
		"unit_amount": v.Hours,
	}
	if v.TaskID != nil {
		vals["task_id"] = *v.TaskID
	}
	if v.ProjectID != nil {
		vals["project_id"] = *v.ProjectID
	}
	if c.uid != 0 {
		vals["user_id"] = c.uid
	}

	if v.Ref != "" {
		id, err := strconv.ParseInt(v.Ref, 10, 64)
		if err != nil {
			return "", apperr.Errorf(apperr.ErrValidation, "remote ref %q is not a record id", v.Ref)
		}
		var ok bool
		if err := c.call(ctx, "account.analytic.line", "write", map[string]any{
			"ids":  []int64{id},
			"vals": vals,
		}, &ok); err != nil {
			return "", err
		}
		return v.Ref, nil
	}

	if v.Key != "" {
		var existing []nameRecord
		if err := c.call(ctx, "account.analytic.line", "search_read", map[string]any{
			"domain": [][]any{{c.keyField, "=", v.Key}},
			"fields": []string{"id"},
			"limit":  1,
		}, &existing); err != nil {
			return "", err
		}
		if len(existing) > 0 {
			return strconv.FormatInt(existing[0].ID, 10), nil
		}
		vals[c.keyField] = v.Key
	}

	var ids []int64
	if err := c.call(ctx, "account.analytic.line", "create", map[string]any{
		"vals_list": []map[string]any{vals},
	}, &ids); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", apperr.Errorf(apperr.ErrNotFound, "odoo created no timesheet")
	}
	return strconv.FormatInt(ids[0], 10), nil
}

type slotRecord struct {
	Name           text     `json:"name"`
	Task           many2one `json:"task_id"`
	Project        many2one `json:"project_id"`
	Start          text     `json:"start_datetime"`
	End            text     `json:"end_datetime"`
	AllocatedHours float64  `json:"allocated_hours"`
	EffectiveHours float64  `json:"effective_hours"`
}

// ActivePlanningSlots returns the planning slots of the logged-in user that
// overlap the day of today.
func (c *Client) ActivePlanningSlots(ctx context.Context, today time.Time) ([]model.PlanningSlot, error) {
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).UTC()
	dayEnd := dayStart.Add(24 * time.Hour)
	domain := [][]any{
		{"start_datetime", "<", dayEnd.Format(odooDatetime)},
		{"end_datetime", ">", dayStart.Format(odooDatetime)},
	}
	if c.uid != 0 {
		domain = append(domain, []any{"user_id", "=", c.uid})
	}
	var records []slotRecord
	err := c.call(ctx, "planning.slot", "search_read", map[string]any{
		"domain": domain,
		"fields": []string{"name", "task_id", "project_id", "start_datetime", "end_datetime", "allocated_hours", "effective_hours"},
		"order":  "start_datetime",
	}, &records)
	if err != nil {
		return nil, err
	}
	slots := make([]model.PlanningSlot, 0, len(records))
	for _, r := range records {
		slot := model.PlanningSlot{
			Name:           slotName(r),
			AllocatedHours: r.AllocatedHours,
			EffectiveHours: r.EffectiveHours,
		}
		slot.Start, _ = time.ParseInLocation(odooDatetime, string(r.Start), time.UTC)
		slot.End, _ = time.ParseInLocation(odooDatetime, string(r.End), time.UTC)
		if r.AllocatedHours > 0 {
			slot.Progress = r.EffectiveHours / r.AllocatedHours
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func slotName(r slotRecord) string {
	switch {
	case r.Task.Name != "":
		return r.Task.Name
	case r.Project.Name != "":
		return r.Project.Name
	default:
		return string(r.Name)
	}
}
