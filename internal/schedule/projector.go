package schedule

import (
	"fmt"
	"slices"
	"time"

	"planner/internal/model"
)

// TaskSource is the read-only view of the task store: every task whose
// deadline is exactly date (YYYY-MM-DD), done or not.
type TaskSource interface {
	TasksForDate(date string) ([]model.Task, error)
}

// Projector computes what actually happens on a calendar date. It never
// mutates the timetable or the ledger.
type Projector struct {
	table  *Timetable
	ledger *Ledger
}

func NewProjector(table *Timetable, ledger *Ledger) *Projector {
	return &Projector{table: table, ledger: ledger}
}

// ProjectDate returns the effective events of date: the weekday's recurring
// events minus that date's cancellations, merged with its additions, in
// start order. Ties keep weekly events first, then additions in insertion
// order.
func (p *Projector) ProjectDate(date string) ([]model.ProjectedEvent, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return projectDate(p.table, p.ledger, day), nil
}

func projectDate(t *Timetable, l *Ledger, day time.Time) []model.ProjectedEvent {
	key := model.FormatDate(day)

	var entry Entry
	if e, ok := l.entries[key]; ok {
		entry = *e
	}

	out := make([]model.ProjectedEvent, 0)
	weekday := model.WeekdayOf(day)
	for _, ev := range t.ForDay(weekday) {
		if slices.Contains(entry.Cancel, ev.ID) {
			continue
		}
		out = append(out, model.ProjectedEvent{
			Date:     key,
			EventID:  ev.ID,
			Source:   model.SourceWeekly,
			Name:     ev.Name,
			Start:    ev.Start,
			End:      ev.End,
			Category: model.CategoryOrDefault(ev.Category),
		})
	}
	for _, o := range entry.Add {
		if movedAway(t, o, weekday) {
			continue
		}
		src := model.SourceAdHoc
		if o.Origin != "" {
			src = model.SourceOverride
		}
		out = append(out, model.ProjectedEvent{
			Date:     key,
			EventID:  o.ID,
			Origin:   o.Origin,
			Source:   src,
			Name:     o.Name,
			Start:    o.Start,
			End:      o.End,
			Category: model.CategoryOrDefault(o.Category),
		})
	}

	slices.SortStableFunc(out, func(a, b model.ProjectedEvent) int {
		return int(a.Start) - int(b.Start)
	})
	return out
}

// movedAway reports whether o replaces an occurrence of a weekly event that
// has since been moved to another weekday. Such replacements are hidden;
// they show again if the event moves back. Replacements of deleted events
// stay visible as one-offs.
func movedAway(t *Timetable, o model.OneOffEvent, weekday model.Weekday) bool {
	if o.Origin == "" {
		return false
	}
	ev, ok := t.Get(o.Origin)
	return ok && ev.Day != weekday
}

// DayPlan is the projection of one date.
type DayPlan struct {
	Date    string                 `json:"date"`
	Weekday model.Weekday          `json:"weekday"`
	Events  []model.ProjectedEvent `json:"events"`
}

// Agenda returns the plans for today and tomorrow.
func (p *Projector) Agenda(today time.Time) []DayPlan {
	return p.span(model.Today(today), 1)
}

// span projects every date in [from, from+days].
func (p *Projector) span(from time.Time, days int) []DayPlan {
	plans := make([]DayPlan, 0, days+1)
	for i := 0; i <= days; i++ {
		d := from.AddDate(0, 0, i)
		plans = append(plans, DayPlan{
			Date:    model.FormatDate(d),
			Weekday: model.WeekdayOf(d),
			Events:  projectDate(p.table, p.ledger, d),
		})
	}
	return plans
}

// MaxHorizonDays bounds the upcoming window.
const MaxHorizonDays = 366

// CheckHorizon rejects windows outside [0, MaxHorizonDays].
func CheckHorizon(days int) error {
	if days < 0 || days > MaxHorizonDays {
		return fmt.Errorf("%w: %d days (want 0..%d)", model.ErrInvalidHorizon, days, MaxHorizonDays)
	}
	return nil
}

// Upcoming is everything due within a window of dates.
type Upcoming struct {
	From   string                 `json:"from"`
	To     string                 `json:"to"`
	Tasks  []model.Task           `json:"tasks"`
	Events []model.ProjectedEvent `json:"events"`
}

// Upcoming collects the open tasks and projected events of every date in
// [today, today+days]. Events are projected per date, so cancellations and
// additions apply and nothing outside the window is reported.
func (p *Projector) Upcoming(today time.Time, days int, tasks TaskSource) (Upcoming, error) {
	if err := CheckHorizon(days); err != nil {
		return Upcoming{}, err
	}
	from := model.Today(today)
	res := Upcoming{
		From:   model.FormatDate(from),
		To:     model.FormatDate(from.AddDate(0, 0, days)),
		Tasks:  make([]model.Task, 0),
		Events: make([]model.ProjectedEvent, 0),
	}

	for _, plan := range p.span(from, days) {
		res.Events = append(res.Events, plan.Events...)
		open, err := openTasks(tasks, plan.Date)
		if err != nil {
			return Upcoming{}, err
		}
		res.Tasks = append(res.Tasks, open...)
	}
	return res, nil
}

// Overview is the daily view: open tasks plus the projected events.
type Overview struct {
	Date   string                 `json:"date"`
	Tasks  []model.Task           `json:"tasks"`
	Events []model.ProjectedEvent `json:"events"`
}

func (p *Projector) Overview(date string, tasks TaskSource) (Overview, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return Overview{}, err
	}
	key := model.FormatDate(day)
	open, err := openTasks(tasks, key)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Date: key, Tasks: open, Events: projectDate(p.table, p.ledger, day)}, nil
}

// WeeklySummary totals the recurring minutes per event name, in order of
// first appearance in the timetable.
func (p *Projector) WeeklySummary() []model.NameTotal {
	totals := make([]model.NameTotal, 0)
	index := make(map[string]int)
	for _, ev := range p.table.Ordered() {
		i, ok := index[ev.Name]
		if !ok {
			i = len(totals)
			index[ev.Name] = i
			totals = append(totals, model.NameTotal{Name: ev.Name})
		}
		totals[i].Minutes += ev.Minutes()
	}
	return totals
}

func openTasks(src TaskSource, date string) ([]model.Task, error) {
	open := make([]model.Task, 0)
	if src == nil {
		return open, nil
	}
	all, err := src.TasksForDate(date)
	if err != nil {
		return nil, fmt.Errorf("tasks for %s: %w", date, err)
	}
	for _, t := range all {
		if !t.Done {
			open = append(open, t)
		}
	}
	return open, nil
}
