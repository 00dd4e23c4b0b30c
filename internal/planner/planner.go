// Package planner owns the single timetable/override store of a running
// process and persists it after every change.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"planner/internal/config"
	"planner/internal/ics"
	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/schedule"
	"planner/internal/store"
	"planner/internal/tasks"
)

// Options configures a Service.
type Options struct {
	TimetablePath string
	OverridesPath string

	// Tasks supplies the to-do items shown in overviews. Nil means none.
	Tasks schedule.TaskSource

	// HorizonDays is the default upcoming window.
	HorizonDays int
	// ExportWeeksBack moves the first exported occurrence into the past.
	ExportWeeksBack int

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Service serializes access to the timetable and the override ledger. Each
// successful mutation saves the document it changed before returning; when
// the save fails the change is undone, so memory never runs ahead of disk.
type Service struct {
	mu        sync.Mutex
	table     *schedule.Timetable
	ledger    *schedule.Ledger
	projector *schedule.Projector

	tasks         schedule.TaskSource
	timetablePath string
	overridesPath string
	horizonDays   int
	weeksBack     int
	now           func() time.Time
	fetcher       *ics.Fetcher
}

// reloader is implemented by task sources backed by a file another program
// edits.
type reloader interface {
	Reload() error
}

// Open loads both documents and returns a ready Service.
func Open(opts Options) (*Service, error) {
	table, err := store.LoadTimetable(opts.TimetablePath)
	if err != nil {
		return nil, err
	}
	ledger, err := store.LoadOverrides(opts.OverridesPath, table)
	if err != nil {
		return nil, err
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}

	appLog.Info("planner opened",
		"timetable", opts.TimetablePath,
		"overrides", opts.OverridesPath,
		"events", table.Len(),
		"override_dates", len(ledger.Dates()),
	)

	return &Service{
		table:         table,
		ledger:        ledger,
		projector:     schedule.NewProjector(table, ledger),
		tasks:         opts.Tasks,
		timetablePath: opts.TimetablePath,
		overridesPath: opts.OverridesPath,
		horizonDays:   opts.HorizonDays,
		weeksBack:     opts.ExportWeeksBack,
		now:           opts.Now,
		fetcher:       ics.NewFetcher(0),
	}, nil
}

// OpenConfig opens the documents named by cfg, reading tasks from the task
// store's file.
func OpenConfig(cfg *config.Config) (*Service, error) {
	src, err := tasks.Open(cfg.TasksPath())
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	return Open(Options{
		TimetablePath:   cfg.TimetablePath(),
		OverridesPath:   cfg.OverridesPath(),
		Tasks:           src,
		HorizonDays:     cfg.HorizonDays,
		ExportWeeksBack: cfg.Export.WeeksBack,
	})
}

// Today is the current civil date.
func (s *Service) Today() time.Time {
	return model.Today(s.now())
}

func (s *Service) HorizonDays() int {
	return s.horizonDays
}

// Timetable returns every weekly event in canonical order.
func (s *Service) Timetable() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Ordered()
}

func (s *Service) Event(id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.table.Get(id)
	if !ok {
		return model.Event{}, fmt.Errorf("%w: event %q", model.ErrNotFound, id)
	}
	return ev, nil
}

func (s *Service) AddEvent(in model.EventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.table.Ordered()
	ev, err := s.table.Add(in)
	if err != nil {
		return model.Event{}, err
	}
	if err := s.commitTimetable(snapshot); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

func (s *Service) UpdateEvent(id string, in model.EventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.table.Ordered()
	ev, err := s.table.Update(id, in)
	if err != nil {
		return model.Event{}, err
	}
	if err := s.commitTimetable(snapshot); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// DeleteEvent removes a weekly event. Overrides that referenced it stay in
// the ledger: cancellations become inert and replacements stay on their
// dates as one-offs.
func (s *Service) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.table.Ordered()
	if !s.table.Delete(id) {
		return fmt.Errorf("%w: event %q", model.ErrNotFound, id)
	}
	return s.commitTimetable(snapshot)
}

// ScheduleTask blocks out weekly time for a task, named "Task: <title>".
func (s *Service) ScheduleTask(title, day, start, end string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.table.Ordered()
	ev, err := s.table.ScheduleTask(title, day, start, end)
	if err != nil {
		return model.Event{}, err
	}
	if err := s.commitTimetable(snapshot); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// OverrideOccurrence moves one dated occurrence of a weekly event.
func (s *Service) OverrideOccurrence(date, eventID, start, end string) (model.OneOffEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ledger.Entries()
	o, err := s.ledger.OverrideOccurrence(date, eventID, start, end)
	if err != nil {
		return model.OneOffEvent{}, err
	}
	if err := s.commitOverrides(snapshot); err != nil {
		return model.OneOffEvent{}, err
	}
	return o, nil
}

// RemoveOverride restores the weekly occurrence of eventID on date.
func (s *Service) RemoveOverride(date, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := model.ParseDate(date); err != nil {
		return err
	}
	snapshot := s.ledger.Entries()
	if !s.ledger.RemoveOverride(date, eventID) {
		return fmt.Errorf("%w: no override of %q on %s", model.ErrNotFound, eventID, date)
	}
	return s.commitOverrides(snapshot)
}

func (s *Service) AddAdHoc(date, name, start, end, category string) (model.OneOffEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ledger.Entries()
	o, err := s.ledger.AddAdHoc(date, name, start, end, category)
	if err != nil {
		return model.OneOffEvent{}, err
	}
	if err := s.commitOverrides(snapshot); err != nil {
		return model.OneOffEvent{}, err
	}
	return o, nil
}

// Day projects a single date.
func (s *Service) Day(date string) ([]model.ProjectedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.ProjectDate(date)
}

func (s *Service) Overview(date string) (schedule.Overview, error) {
	s.reloadTasks()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Overview(date, s.tasks)
}

// Upcoming covers today through today+days.
func (s *Service) Upcoming(days int) (schedule.Upcoming, error) {
	s.reloadTasks()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Upcoming(s.now(), days, s.tasks)
}

// Agenda is today and tomorrow.
func (s *Service) Agenda() []schedule.DayPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Agenda(s.now())
}

// Summary totals weekly minutes per event name.
func (s *Service) Summary() []model.NameTotal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.WeeklySummary()
}

// ExportICS renders the timetable and its overrides as iCalendar text.
func (s *Service) ExportICS() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return ics.Export(s.table, s.ledger, ics.ExportOptions{
		From: model.Today(now).AddDate(0, 0, -7*s.weeksBack),
		Now:  now,
	})
}

// WriteExport writes ExportICS to path atomically.
func (s *Service) WriteExport(path string) error {
	if err := store.WriteFile(path, []byte(s.ExportICS())); err != nil {
		return fmt.Errorf("write export %s: %w", path, err)
	}
	appLog.Info("ics export written", "path", path)
	return nil
}

// ImportReport summarizes an ICS import.
type ImportReport struct {
	Weekly   int `json:"weekly"`
	OneOffs  int `json:"one_offs"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// ImportICS adds the weekly and dated events of an iCalendar payload.
// Entries that fail validation or conflict with existing events are
// rejected one by one; the rest are kept. If either document cannot be
// saved, the whole import is undone.
func (s *Service) ImportICS(body []byte) (ImportReport, error) {
	res, err := ics.ParseICS(body)
	if err != nil {
		return ImportReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tableSnapshot := s.table.Ordered()
	ledgerSnapshot := s.ledger.Entries()

	report := ImportReport{Skipped: res.Skipped}
	for _, in := range res.Weekly {
		if _, err := s.table.Add(in); err != nil {
			report.Rejected++
			appLog.Warn("ics import: weekly event rejected", "name", in.Name, "day", in.Day, "start", in.Start, "reason", err.Error())
			continue
		}
		report.Weekly++
	}
	for _, d := range res.Dated {
		if _, err := s.ledger.AddAdHoc(d.Date, d.Name, d.Start.String(), d.End.String(), d.Category); err != nil {
			report.Rejected++
			appLog.Warn("ics import: dated event rejected", "name", d.Name, "date", d.Date, "start", d.Start, "reason", err.Error())
			continue
		}
		report.OneOffs++
	}

	if report.Weekly > 0 {
		if err := s.commitTimetable(tableSnapshot); err != nil {
			s.ledger.Rollback(ledgerSnapshot)
			return ImportReport{}, err
		}
	}
	if report.OneOffs > 0 {
		if err := s.commitOverrides(ledgerSnapshot); err != nil {
			if report.Weekly > 0 {
				s.table.Rollback(tableSnapshot)
				if rerr := s.saveTimetable(); rerr != nil {
					return ImportReport{}, errors.Join(err, rerr)
				}
			}
			return ImportReport{}, err
		}
	}
	return report, nil
}

// ImportFrom reads src (a path or an http(s) URL) and imports it.
func (s *Service) ImportFrom(ctx context.Context, src string) (ImportReport, error) {
	body, err := s.fetcher.Read(ctx, src)
	if err != nil {
		return ImportReport{}, err
	}
	return s.ImportICS(body)
}

func (s *Service) reloadTasks() {
	r, ok := s.tasks.(reloader)
	if !ok {
		return
	}
	if err := r.Reload(); err != nil {
		appLog.Warn("tasks reload failed; serving previous snapshot", "error", err.Error())
	}
}

// commitTimetable saves the timetable or restores snapshot.
func (s *Service) commitTimetable(snapshot []model.Event) error {
	if err := s.saveTimetable(); err != nil {
		s.table.Rollback(snapshot)
		return err
	}
	return nil
}

// commitOverrides saves the ledger or restores snapshot.
func (s *Service) commitOverrides(snapshot map[string]schedule.Entry) error {
	if err := s.saveOverrides(); err != nil {
		s.ledger.Rollback(snapshot)
		return err
	}
	return nil
}

func (s *Service) saveTimetable() error {
	if err := store.SaveTimetable(s.timetablePath, s.table); err != nil {
		appLog.Error("timetable save failed", err, "path", s.timetablePath)
		return err
	}
	return nil
}

func (s *Service) saveOverrides() error {
	if err := store.SaveOverrides(s.overridesPath, s.ledger); err != nil {
		appLog.Error("overrides save failed", err, "path", s.overridesPath)
		return err
	}
	return nil
}
