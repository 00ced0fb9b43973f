package timesheet_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/storage"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

type fakeRemote struct {
	mu      sync.Mutex
	tasks   map[string]model.Task
	creates int
	updates int
	refs    map[string]string
	nextRef int
	lookups int
	hours   float64
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks: map[string]model.Task{
			"DEV-1": {ID: 11, Code: "DEV-1", Name: "Development", ProjectID: 7, ProjectName: "Internal"},
			"OPS-1": {ID: 12, Code: "OPS-1", Name: "Operations", ProjectID: 7, ProjectName: "Internal"},
		},
		refs: map[string]string{},
	}
}

func (r *fakeRemote) FindTaskByCode(_ context.Context, code string) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	task, ok := r.tasks[code]
	if !ok {
		return model.Task{}, apperr.Errorf(apperr.ErrNotFound, "task %q", code)
	}
	return task, nil
}

func (r *fakeRemote) TaskTitle(_ context.Context, id int64) (string, error) {
	return "task " + strconv.FormatInt(id, 10), nil
}

func (r *fakeRemote) ProjectTitle(_ context.Context, id int64) (string, error) {
	return "project " + strconv.FormatInt(id, 10), nil
}

func (r *fakeRemote) CreateOrUpdateTimesheet(_ context.Context, v model.TimesheetValues) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours = v.Hours
	if v.Ref != "" {
		r.updates++
		return v.Ref, nil
	}
	if ref, ok := r.refs[v.Key]; ok {
		return ref, nil
	}
	r.creates++
	r.nextRef++
	ref := strconv.Itoa(r.nextRef)
	r.refs[v.Key] = ref
	return ref, nil
}

type fixture struct {
	t       *testing.T
	backend storage.Backend
	now     time.Time
	opts    timesheet.Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, err := storage.OpenFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		t:       t,
		backend: b,
		now:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	f.opts = timesheet.Options{AutoMigrate: true, Now: func() time.Time { return f.now }}
	return f
}

// run executes fn in its own transaction, like one CLI invocation.
func (f *fixture) run(fn func(s *timesheet.Store) error) error {
	return timesheet.WithStore(context.Background(), f.backend, f.opts, fn)
}

func (f *fixture) must(fn func(s *timesheet.Store) error) {
	f.t.Helper()
	if err := f.run(fn); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) start(code string) {
	f.t.Helper()
	f.must(func(s *timesheet.Store) error {
		_, err := s.AddAndStart(context.Background(), timesheet.EntrySpec{TaskCode: code})
		return err
	})
}

func (f *fixture) add(spec timesheet.EntrySpec) {
	f.t.Helper()
	f.must(func(s *timesheet.Store) error {
		_, err := s.AddTimesheet(context.Background(), spec)
		return err
	})
}

func (f *fixture) running() *model.Pointer {
	f.t.Helper()
	var p *model.Pointer
	f.must(func(s *timesheet.Store) error {
		loc, err := s.Running()
		if loc != nil {
			p = &loc.Pointer
		}
		return err
	})
	return p
}

func (f *fixture) entry(token string) model.Entry {
	f.t.Helper()
	var e model.Entry
	f.must(func(s *timesheet.Store) error {
		loc, err := s.Resolve(token)
		if err != nil {
			return err
		}
		e = *loc.Entry
		return nil
	})
	return e
}

func countRunning(t *testing.T, f *fixture) int {
	t.Helper()
	n := 0
	f.must(func(s *timesheet.Store) error {
		all, err := s.Entries("2000-01-01", "2100-01-01")
		for _, loc := range all {
			if loc.Entry.Running() {
				n++
			}
		}
		return err
	})
	return n
}

func TestAtMostOneRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	steps := []func(s *timesheet.Store) error{
		func(s *timesheet.Store) error { _, err := s.AddAndStart(ctx, timesheet.EntrySpec{TaskCode: "A"}); return err },
		func(s *timesheet.Store) error { _, err := s.AddAndStart(ctx, timesheet.EntrySpec{TaskCode: "B"}); return err },
		func(s *timesheet.Store) error {
			_, err := s.AddTimesheet(ctx, timesheet.EntrySpec{TaskCode: "C", Duration: time.Hour})
			return err
		},
		func(s *timesheet.Store) error { _, err := s.Resume(""); return err },
		func(s *timesheet.Store) error { _, err := s.Resume("2"); return err },
		func(s *timesheet.Store) error { _, err := s.Lunch(ctx); return err },
		func(s *timesheet.Store) error { _, err := s.StopRunning(); return err },
		func(s *timesheet.Store) error { _, err := s.Resume(""); return err },
		func(s *timesheet.Store) error { _, err := s.Drop("3"); return err },
	}
	for i, step := range steps {
		f.advance(5 * time.Minute)
		if err := f.run(step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n := countRunning(t, f); n > 1 {
			t.Fatalf("step %d: %d running entries", i, n)
		}
	}
}

func TestResumeAlternates(t *testing.T) {
	f := newFixture(t)
	f.start("A")
	f.advance(10 * time.Minute)
	f.start("B")

	a := model.Pointer{Date: "2026-10-19", Position: 0}
	b := model.Pointer{Date: "2026-10-19", Position: 1}
	for i, want := range []model.Pointer{a, b, a, b} {
		f.advance(time.Minute)
		f.must(func(s *timesheet.Store) error {
			_, err := s.Resume("")
			return err
		})
		if got := f.running(); got == nil || *got != want {
			t.Fatalf("resume %d: running = %v, want %v", i, got, want)
		}
	}
}

func TestResumeAccruesAdditively(t *testing.T) {
	f := newFixture(t)
	f.start("A")
	f.advance(time.Hour)
	f.must(func(s *timesheet.Store) error {
		stopped, err := s.StopRunning()
		if stopped == nil {
			t.Error("StopRunning returned nil while running")
		}
		return err
	})
	f.advance(time.Hour)
	f.must(func(s *timesheet.Store) error {
		_, err := s.Resume("0")
		return err
	})
	f.advance(30 * time.Minute)
	f.must(func(s *timesheet.Store) error {
		_, err := s.StopRunning()
		return err
	})

	e := f.entry("0")
	if got := e.Duration(); got != 90*time.Minute {
		t.Errorf("duration = %v, want 1h30m", got)
	}
	if e.Running() {
		t.Error("entry still running")
	}
}

func TestResumeEarlierDayCopies(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f.start("A")
	f.advance(time.Hour)
	f.must(func(s *timesheet.Store) error {
		_, err := s.StopRunning()
		return err
	})

	f.now = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	f.must(func(s *timesheet.Store) error {
		res, err := s.Resume("1.0")
		if err != nil {
			return err
		}
		if res.Source == nil || *res.Source != (model.Pointer{Date: "2026-10-18", Position: 0}) {
			t.Errorf("Source = %v", res.Source)
		}
		if res.Date != "2026-10-19" || res.Entry.DurationSeconds != 0 || !res.Entry.Running() {
			t.Errorf("copy = %+v at %v", res.Entry, res.Pointer)
		}
		if res.Entry.TaskCode != "A" {
			t.Errorf("copy task code = %q", res.Entry.TaskCode)
		}
		return nil
	})
	if got := f.entry("1.0").Duration(); got != time.Hour {
		t.Errorf("source duration changed to %v", got)
	}
}

func TestResumeRunningIsNoop(t *testing.T) {
	f := newFixture(t)
	f.start("A")
	f.advance(time.Minute)
	f.must(func(s *timesheet.Store) error {
		res, err := s.Resume("0")
		if err != nil {
			return err
		}
		if !res.AlreadyRunning {
			t.Error("AlreadyRunning = false")
		}
		return nil
	})
	if h := historyLen(t, f); h != 0 {
		t.Errorf("history grew to %d", h)
	}
}

func TestResumeWithoutHistory(t *testing.T) {
	f := newFixture(t)
	err := f.run(func(s *timesheet.Store) error {
		_, err := s.Resume("")
		return err
	})
	if !errors.Is(err, apperr.ErrNoHistory) {
		t.Errorf("err = %v, want ErrNoHistory", err)
	}
}

func historyLen(t *testing.T, f *fixture) int {
	t.Helper()
	n := 0
	f.must(func(s *timesheet.Store) error {
		n = len(s.History())
		return nil
	})
	return n
}

func TestHistoryBounded(t *testing.T) {
	f := newFixture(t)
	f.opts.HistoryDepth = 2
	for _, code := range []string{"A", "B", "C", "D"} {
		f.advance(time.Minute)
		f.start(code)
	}
	if h := historyLen(t, f); h != 2 {
		t.Errorf("history = %d, want 2", h)
	}
}

func TestStopIdleIsNoop(t *testing.T) {
	f := newFixture(t)
	f.must(func(s *timesheet.Store) error {
		stopped, err := s.StopRunning()
		if stopped != nil {
			t.Errorf("StopRunning on idle store = %+v", stopped)
		}
		return err
	})
}

func TestResolveZeroMatchesZeroDotZero(t *testing.T) {
	f := newFixture(t)
	f.add(timesheet.EntrySpec{TaskCode: "A", Duration: time.Hour})
	f.must(func(s *timesheet.Store) error {
		short, err := s.Resolve("0")
		if err != nil {
			return err
		}
		long, err := s.Resolve("0.0")
		if err != nil {
			return err
		}
		if short.Pointer != long.Pointer || short.Entry != long.Entry {
			t.Errorf("Resolve(0) = %v, Resolve(0.0) = %v", short.Pointer, long.Pointer)
		}
		return nil
	})
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)
	f.add(timesheet.EntrySpec{TaskCode: "A", Duration: time.Hour})
	f.add(timesheet.EntrySpec{TaskCode: "B", Duration: time.Hour})
	f.must(func(s *timesheet.Store) error {
		_, err := s.Drop("1")
		return err
	})
	for _, token := range []string{"x", "-1", "2", "1", "3.0"} {
		err := f.run(func(s *timesheet.Store) error {
			_, err := s.Resolve(token)
			return err
		})
		if !errors.Is(err, apperr.ErrAddress) {
			t.Errorf("Resolve(%q) err = %v, want ErrAddress", token, err)
		}
	}
}

func TestAddRequiresIdentification(t *testing.T) {
	f := newFixture(t)
	err := f.run(func(s *timesheet.Store) error {
		_, err := s.AddTimesheet(context.Background(), timesheet.EntrySpec{Duration: time.Hour})
		return err
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestAddOnEarlierDate(t *testing.T) {
	f := newFixture(t)
	f.must(func(s *timesheet.Store) error {
		loc, err := s.AddTimesheet(context.Background(), timesheet.EntrySpec{TaskCode: "A", Duration: time.Hour, Date: "2026-10-16"})
		if err != nil {
			return err
		}
		if loc.Date != "2026-10-16" || loc.Position != 0 {
			t.Errorf("added at %+v", loc.Pointer)
		}
		return nil
	})
	f.must(func(s *timesheet.Store) error {
		loc, err := s.Resolve("3.0")
		if err != nil {
			return err
		}
		if loc.Entry.TaskCode != "A" {
			t.Errorf("3.0 = %+v", loc.Entry)
		}
		return nil
	})

	err := f.run(func(s *timesheet.Store) error {
		_, err := s.AddTimesheet(context.Background(), timesheet.EntrySpec{TaskCode: "A", Date: "16.10.2026"})
		return err
	})
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestEditDuration(t *testing.T) {
	f := newFixture(t)
	f.add(timesheet.EntrySpec{TaskCode: "A", Duration: time.Hour})

	tests := []struct {
		delta string
		want  time.Duration
	}{
		{"+00:30", 90 * time.Minute},
		{"-02:00", 0},
		{"02:15", 135 * time.Minute},
	}
	for _, tt := range tests {
		d, err := timecalc.ParseDelta(tt.delta)
		if err != nil {
			t.Fatal(err)
		}
		f.must(func(s *timesheet.Store) error {
			_, changed, err := s.Edit(context.Background(), "0", timesheet.EntryPatch{Duration: &d})
			if !changed {
				t.Errorf("delta %s reported no change", tt.delta)
			}
			return err
		})
		if got := f.entry("0").Duration(); got != tt.want {
			t.Errorf("after %s duration = %v, want %v", tt.delta, got, tt.want)
		}
	}
}

func TestEditDurationWholeMinutes(t *testing.T) {
	f := newFixture(t)
	f.start("A")
	f.advance(time.Hour + 30*time.Second)
	f.must(func(s *timesheet.Store) error {
		_, err := s.StopRunning()
		return err
	})

	d, err := timecalc.ParseDelta("+00:30")
	if err != nil {
		t.Fatal(err)
	}
	f.must(func(s *timesheet.Store) error {
		_, _, err := s.Edit(context.Background(), "0", timesheet.EntryPatch{Duration: &d})
		return err
	})
	if got := f.entry("0").Duration(); got != 90*time.Minute {
		t.Errorf("duration = %v, want 1h30m", got)
	}
}

func TestStartRejectsOtherDate(t *testing.T) {
	f := newFixture(t)
	err := f.run(func(s *timesheet.Store) error {
		_, err := s.AddAndStart(context.Background(), timesheet.EntrySpec{TaskCode: "A", Date: "2026-10-16"})
		return err
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if p := f.running(); p != nil {
		t.Errorf("running = %+v, want idle", p)
	}

	f.must(func(s *timesheet.Store) error {
		_, err := s.AddAndStart(context.Background(), timesheet.EntrySpec{TaskCode: "A", Date: s.Today()})
		return err
	})
	if p := f.running(); p == nil || p.Date != "2026-10-19" {
		t.Errorf("running = %+v, want today", p)
	}
}

func TestEditNothingChanged(t *testing.T) {
	f := newFixture(t)
	f.add(timesheet.EntrySpec{TaskCode: "A", Description: "same", Duration: time.Hour})
	desc := "same"
	f.must(func(s *timesheet.Store) error {
		_, changed, err := s.Edit(context.Background(), "0", timesheet.EntryPatch{Description: &desc})
		if changed {
			t.Error("identical description reported as change")
		}
		return err
	})
}

func TestEditTaskCodeClearsCachedIDs(t *testing.T) {
	f := newFixture(t)
	id := int64(5)
	f.add(timesheet.EntrySpec{TaskCode: "A", TaskID: &id, Duration: time.Hour})
	code := "B"
	f.must(func(s *timesheet.Store) error {
		loc, _, err := s.Edit(context.Background(), "0", timesheet.EntryPatch{TaskCode: &code})
		if err == nil && loc.Entry.TaskID != nil {
			t.Errorf("TaskID = %d, want cleared", *loc.Entry.TaskID)
		}
		return err
	})
}

func TestDropKeepsPositions(t *testing.T) {
	f := newFixture(t)
	f.start("A")
	f.add(timesheet.EntrySpec{TaskCode: "B", Duration: time.Hour})
	f.add(timesheet.EntrySpec{TaskCode: "C", Duration: time.Hour})

	f.must(func(s *timesheet.Store) error {
		_, err := s.Drop("0")
		return err
	})
	if p := f.running(); p != nil {
		t.Errorf("dropping the running entry left %v running", p)
	}
	if got := f.entry("1").TaskCode; got != "B" {
		t.Errorf("position 1 = %q, want B", got)
	}
	if got := f.entry("2").TaskCode; got != "C" {
		t.Errorf("position 2 = %q, want C", got)
	}
}

func TestWithStoreRollsBack(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	err := f.run(func(s *timesheet.Store) error {
		if _, err := s.AddAndStart(context.Background(), timesheet.EntrySpec{TaskCode: "A"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	f.must(func(s *timesheet.Store) error {
		day, err := s.Day(s.Today())
		if len(day.Entries) != 0 {
			t.Errorf("rolled back entry persisted: %+v", day.Entries)
		}
		return err
	})
	if p := f.running(); p != nil {
		t.Errorf("running = %v after rollback", p)
	}
}

func TestAliases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invalid := []model.Alias{
		{Name: "", TaskCode: "OPS-1"},
		{Name: "two words", TaskCode: "OPS-1"},
		{Name: "empty"},
	}
	for _, a := range invalid {
		err := f.run(func(s *timesheet.Store) error {
			_, err := s.AddAlias(ctx, a)
			return err
		})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("AddAlias(%+v) err = %v, want ErrValidation", a, err)
		}
	}

	f.must(func(s *timesheet.Store) error {
		created, err := s.AddAlias(ctx, model.Alias{Name: "standup", TaskCode: "OPS-1", Description: "Daily"})
		if !created {
			t.Error("first AddAlias reported update")
		}
		return err
	})
	f.must(func(s *timesheet.Store) error {
		created, err := s.AddAlias(ctx, model.Alias{Name: "standup", TaskCode: "OPS-1", Description: "Daily sync"})
		if created {
			t.Error("second AddAlias reported create")
		}
		return err
	})

	f.add(timesheet.EntrySpec{TaskCode: "standup", Duration: 15 * time.Minute})
	f.add(timesheet.EntrySpec{TaskCode: "standup", Description: "Retro", Duration: time.Hour})
	if e := f.entry("0"); e.TaskCode != "OPS-1" || e.Description != "Daily sync" {
		t.Errorf("expanded entry = %+v", e)
	}
	if e := f.entry("1"); e.Description != "Retro" {
		t.Errorf("explicit description lost: %+v", e)
	}

	f.must(func(s *timesheet.Store) error {
		if s.DeleteAlias("nope") {
			t.Error("DeleteAlias of missing alias reported true")
		}
		if !s.DeleteAlias("standup") {
			t.Error("DeleteAlias(standup) reported false")
		}
		if _, err := s.Alias("standup"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Alias after delete err = %v", err)
		}
		return nil
	})
}

func TestRefreshAliasesReportsPerAlias(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	ctx := context.Background()
	f.must(func(s *timesheet.Store) error {
		for _, a := range []model.Alias{
			{Name: "ok", TaskCode: "OPS-1"},
			{Name: "bad", TaskCode: "MISSING"},
			{Name: "byid", TaskID: ptr(3), ProjectID: ptr(4)},
		} {
			if _, err := s.AddAlias(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})

	f.must(func(s *timesheet.Store) error {
		results, err := s.RefreshAliases(ctx, remote, "")
		if err != nil {
			return err
		}
		if len(results) != 3 {
			t.Fatalf("results = %d, want 3", len(results))
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				if r.Alias.Name != "bad" {
					t.Errorf("unexpected failure for %s: %v", r.Alias.Name, r.Err)
				}
			}
		}
		if failed != 1 {
			t.Errorf("failed = %d, want 1", failed)
		}
		return nil
	})

	f.must(func(s *timesheet.Store) error {
		ok, err := s.Alias("ok")
		if err != nil {
			return err
		}
		if ok.TaskTitle != "Operations" || ok.TaskID == nil || *ok.TaskID != 12 {
			t.Errorf("ok = %+v", ok)
		}
		byID, err := s.Alias("byid")
		if err != nil {
			return err
		}
		if byID.TaskTitle != "task 3" || byID.ProjectTitle != "project 4" {
			t.Errorf("byid = %+v", byID)
		}
		return nil
	})
}

func ptr(v int64) *int64 { return &v }

func push(t *testing.T, f *fixture, remote timesheet.Remote, sel timesheet.Selection) []timesheet.PushResult {
	t.Helper()
	var results []timesheet.PushResult
	f.must(func(s *timesheet.Store) error {
		var err error
		results, err = s.Push(context.Background(), remote, sel)
		return err
	})
	return results
}

func TestPushIsIdempotent(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.add(timesheet.EntrySpec{TaskCode: "DEV-1", Duration: time.Hour})

	first := push(t, f, remote, timesheet.Selection{Index: "0"})
	second := push(t, f, remote, timesheet.Selection{Index: "0"})

	if first[0].Status != timesheet.PushCreated {
		t.Errorf("first push = %v", first[0].Status)
	}
	if second[0].Status != timesheet.PushSkipped {
		t.Errorf("second push = %v", second[0].Status)
	}
	if first[0].Ref == "" || first[0].Ref != second[0].Ref {
		t.Errorf("refs differ: %q vs %q", first[0].Ref, second[0].Ref)
	}
	if remote.creates != 1 {
		t.Errorf("creates = %d, want 1", remote.creates)
	}
}

func TestPushSendsWholeMinutes(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.start("DEV-1")
	f.advance(90*time.Minute + 45*time.Second)
	f.must(func(s *timesheet.Store) error {
		_, err := s.StopRunning()
		return err
	})

	res := push(t, f, remote, timesheet.Selection{Index: "0"})
	if len(res) != 1 || res[0].Status != timesheet.PushCreated {
		t.Fatalf("push = %+v", res)
	}
	if remote.hours != 1.5 {
		t.Errorf("hours = %v, want 1.5", remote.hours)
	}
}

func TestPushRewritesModifiedEntry(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.add(timesheet.EntrySpec{TaskCode: "DEV-1", Duration: time.Hour})
	first := push(t, f, remote, timesheet.Selection{})

	desc := "reviewed"
	f.must(func(s *timesheet.Store) error {
		loc, _, err := s.Edit(context.Background(), "0", timesheet.EntryPatch{Description: &desc})
		if err == nil && !loc.Entry.Modified {
			t.Error("edit of pushed entry did not set modified")
		}
		return err
	})

	second := push(t, f, remote, timesheet.Selection{})
	if second[0].Status != timesheet.PushUpdated || second[0].Ref != first[0].Ref {
		t.Errorf("second push = %+v", second[0])
	}
	if remote.creates != 1 || remote.updates != 1 {
		t.Errorf("creates = %d, updates = %d", remote.creates, remote.updates)
	}
	if f.entry("0").Modified {
		t.Error("modified flag not cleared after push")
	}
}

func TestPushContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.add(timesheet.EntrySpec{TaskCode: "DEV-1", Duration: time.Hour})
	f.add(timesheet.EntrySpec{TaskCode: "BROKEN", Duration: time.Hour})
	f.add(timesheet.EntrySpec{TaskCode: "OPS-1", Duration: time.Hour})

	results := push(t, f, remote, timesheet.Selection{Date: "2026-10-19"})
	want := []timesheet.PushStatus{timesheet.PushCreated, timesheet.PushFailed, timesheet.PushCreated}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Status != w {
			t.Errorf("result %d = %v (%v), want %v", i, results[i].Status, results[i].Err, w)
		}
	}
	for i, wantRef := range []bool{true, false, true} {
		if got := f.entry(fmt.Sprint(i)).RemoteRef != ""; got != wantRef {
			t.Errorf("entry %d has ref = %v, want %v", i, got, wantRef)
		}
	}
}

func TestPushSkipsRunningAndBreaks(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.add(timesheet.EntrySpec{Description: "Lunch", NotWorktime: true, Duration: 30 * time.Minute})
	f.start("DEV-1")

	results := push(t, f, remote, timesheet.Selection{})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != timesheet.PushSkipped || r.Reason == "" {
			t.Errorf("result = %+v, want skipped with reason", r)
		}
	}
	if remote.creates != 0 {
		t.Errorf("creates = %d", remote.creates)
	}
}

func TestPushRequiresSession(t *testing.T) {
	f := newFixture(t)
	err := f.run(func(s *timesheet.Store) error {
		_, err := s.Push(context.Background(), nil, timesheet.Selection{})
		return err
	})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
}

func TestUpdateEntry(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.add(timesheet.EntrySpec{TaskCode: "DEV-1", Duration: time.Hour})
	f.must(func(s *timesheet.Store) error {
		_, err := s.UpdateEntry(context.Background(), remote, "0")
		return err
	})
	e := f.entry("0")
	if e.TaskID == nil || *e.TaskID != 11 || e.ProjectTitle != "Internal" {
		t.Errorf("entry = %+v", e)
	}
}

func TestEnrichOnAdd(t *testing.T) {
	f := newFixture(t)
	remote := newFakeRemote()
	f.opts.Remote = remote
	f.add(timesheet.EntrySpec{TaskCode: "OPS-1", Duration: time.Hour})
	f.add(timesheet.EntrySpec{TaskCode: "MISSING", Duration: time.Hour})

	if e := f.entry("0"); e.TaskTitle != "Operations" {
		t.Errorf("entry 0 = %+v", e)
	}
	if e := f.entry("1"); e.TaskID != nil {
		t.Errorf("failed lookup still set ids: %+v", e)
	}
}
