package timesheet

import (
	"context"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
)

// refreshLimit caps concurrent backend lookups during RefreshAliases.
const refreshLimit = 4

var aliasName = regexp.MustCompile(`^\S+$`)

func validateAlias(a *model.Alias) error {
	unidentified := a.TaskCode == "" && a.Description == "" && a.TaskID == nil && a.ProjectID == nil
	err := validation.ValidateStruct(a,
		validation.Field(&a.Name, validation.Required, validation.Match(aliasName).Error("must not contain whitespace")),
		validation.Field(&a.TaskCode, validation.When(unidentified,
			validation.Required.Error("an alias needs a task code, description, task id or project id"))),
		validation.Field(&a.TaskID, validation.Min(int64(1))),
		validation.Field(&a.ProjectID, validation.Min(int64(1))),
	)
	if err != nil {
		return apperr.Errorf(apperr.ErrValidation, "alias %q: %v", a.Name, err)
	}
	return nil
}

// AddAlias inserts or replaces an alias and reports whether it was new.
func (s *Store) AddAlias(ctx context.Context, a model.Alias) (bool, error) {
	if err := validateAlias(&a); err != nil {
		return false, err
	}
	_, existed := s.root.Aliases[a.Name]
	if s.remote != nil {
		e := model.Entry{TaskCode: a.TaskCode, TaskID: a.TaskID, ProjectID: a.ProjectID}
		s.enrich(ctx, &e)
		applyEntryIDs(&a, e)
	}
	s.root.Aliases[a.Name] = a
	s.rootDirty = true
	return !existed, nil
}

// DeleteAlias removes an alias. It reports false when none existed.
func (s *Store) DeleteAlias(name string) bool {
	if _, ok := s.root.Aliases[name]; !ok {
		return false
	}
	delete(s.root.Aliases, name)
	s.rootDirty = true
	return true
}

// Alias returns the alias called name.
func (s *Store) Alias(name string) (model.Alias, error) {
	a, ok := s.root.Aliases[name]
	if !ok {
		return model.Alias{}, apperr.Errorf(apperr.ErrNotFound, "alias %q", name)
	}
	return a, nil
}

// Aliases returns all aliases sorted by name.
func (s *Store) Aliases() []model.Alias {
	out := make([]model.Alias, 0, len(s.root.Aliases))
	for _, a := range s.root.Aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AliasRefresh is the outcome for one alias of RefreshAliases.
type AliasRefresh struct {
	Alias model.Alias
	Err   error
}

// RefreshAliases re-reads task and project titles for the named alias, or
// for all aliases when name is empty. Lookups run concurrently; a failure
// is recorded on its alias and never aborts the others.
func (s *Store) RefreshAliases(ctx context.Context, remote Remote, name string) ([]AliasRefresh, error) {
	if remote == nil {
		return nil, apperr.Errorf(apperr.ErrAuth, "log in to refresh aliases")
	}
	var targets []model.Alias
	if name != "" {
		a, err := s.Alias(name)
		if err != nil {
			return nil, err
		}
		targets = []model.Alias{a}
	} else {
		targets = s.Aliases()
	}

	results := make([]AliasRefresh, len(targets))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(refreshLimit)
	for i, a := range targets {
		g.Go(func() error {
			refreshed, err := refreshAlias(gCtx, remote, a)
			results[i] = AliasRefresh{Alias: refreshed, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err == nil {
			s.root.Aliases[r.Alias.Name] = r.Alias
			s.rootDirty = true
		}
	}
	return results, nil
}

func refreshAlias(ctx context.Context, remote Remote, a model.Alias) (model.Alias, error) {
	if a.TaskCode != "" {
		task, err := remote.FindTaskByCode(ctx, a.TaskCode)
		if err != nil {
			return a, err
		}
		e := model.Entry{}
		applyTask(&e, task)
		applyEntryIDs(&a, e)
		return a, nil
	}
	if a.TaskID != nil {
		title, err := remote.TaskTitle(ctx, *a.TaskID)
		if err != nil {
			return a, err
		}
		a.TaskTitle = title
	}
	if a.ProjectID != nil {
		title, err := remote.ProjectTitle(ctx, *a.ProjectID)
		if err != nil {
			return a, err
		}
		a.ProjectTitle = title
	}
	return a, nil
}

func applyEntryIDs(a *model.Alias, e model.Entry) {
	if e.TaskID != nil {
		a.TaskID = e.TaskID
		a.TaskTitle = e.TaskTitle
	}
	if e.ProjectID != nil {
		a.ProjectID = e.ProjectID
		a.ProjectTitle = e.ProjectTitle
	}
}
