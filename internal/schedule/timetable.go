// Package schedule implements the weekly timetable, the per-date override
// ledger and the daily projection that combines them.
//
// None of the types here are safe for concurrent use; callers serialize
// access (see internal/planner).
package schedule

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	appLog "planner/internal/log"
	"planner/internal/model"
)

// TaskPrefix marks weekly events created from a scheduled task.
const TaskPrefix = "Task: "

// Timetable holds recurring weekly events with no same-day overlap, kept
// sorted by (day, start) after every mutation.
type Timetable struct {
	events []model.Event
	newID  func() string
}

// NewTimetable returns an empty timetable.
func NewTimetable() *Timetable {
	return &Timetable{newID: uuid.NewString}
}

// Add validates in and inserts it as a new event.
func (t *Timetable) Add(in model.EventInput) (model.Event, error) {
	ev, err := in.Parse()
	if err != nil {
		return model.Event{}, err
	}
	if clash, ok := t.conflict(ev.Day, ev.Start, ev.End, ""); ok {
		return model.Event{}, conflictWith(clash)
	}

	ev.ID = t.newID()
	t.events = append(t.events, ev)
	t.sort()

	appLog.Debug("timetable: event added", "id", ev.ID, "name", ev.Name, "day", ev.Day, "start", ev.Start)
	return ev, nil
}

// ScheduleTask books a task into a weekly slot as a "Task: <title>" event.
func (t *Timetable) ScheduleTask(title, day, start, end string) (model.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Event{}, model.ErrEmptyName
	}
	return t.Add(model.EventInput{
		Name:     TaskPrefix + title,
		Day:      day,
		Start:    start,
		End:      end,
		Category: "Task",
	})
}

// Update replaces the event with the given id. The event itself is ignored
// during the conflict check; its ID is preserved.
func (t *Timetable) Update(id string, in model.EventInput) (model.Event, error) {
	idx := t.indexOf(id)
	if idx < 0 {
		return model.Event{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	ev, err := in.Parse()
	if err != nil {
		return model.Event{}, err
	}
	if clash, ok := t.conflict(ev.Day, ev.Start, ev.End, id); ok {
		return model.Event{}, conflictWith(clash)
	}

	ev.ID = id
	t.events[idx] = ev
	t.sort()

	appLog.Debug("timetable: event updated", "id", id, "name", ev.Name, "day", ev.Day, "start", ev.Start)
	return ev, nil
}

// Delete removes the event with the given id and reports whether it existed.
func (t *Timetable) Delete(id string) bool {
	idx := t.indexOf(id)
	if idx < 0 {
		return false
	}
	t.events = slices.Delete(t.events, idx, idx+1)
	appLog.Debug("timetable: event deleted", "id", id)
	return true
}

// Restore inserts an already identified event, e.g. one read from disk.
// It is validated like Add; an empty ID gets a fresh one.
func (t *Timetable) Restore(ev model.Event) (model.Event, error) {
	if strings.TrimSpace(ev.Name) == "" {
		return model.Event{}, model.ErrEmptyName
	}
	if !ev.Day.Valid() {
		return model.Event{}, fmt.Errorf("%w: %d", model.ErrInvalidDay, int(ev.Day))
	}
	if err := model.CheckRange(ev.Start, ev.End); err != nil {
		return model.Event{}, err
	}
	if ev.ID == "" {
		ev.ID = t.newID()
	} else if t.indexOf(ev.ID) >= 0 {
		return model.Event{}, fmt.Errorf("duplicate event id %s", ev.ID)
	}
	if clash, ok := t.conflict(ev.Day, ev.Start, ev.End, ""); ok {
		return model.Event{}, conflictWith(clash)
	}

	t.events = append(t.events, ev)
	t.sort()
	return ev, nil
}

// Ordered returns a copy of all events in canonical (day, start) order.
func (t *Timetable) Ordered() []model.Event {
	return append(make([]model.Event, 0, len(t.events)), t.events...)
}

// Rollback replaces the whole timetable with a snapshot taken by Ordered.
func (t *Timetable) Rollback(snapshot []model.Event) {
	t.events = slices.Clone(snapshot)
	t.sort()
}

// ForDay returns the events of one weekday in start order.
func (t *Timetable) ForDay(day model.Weekday) []model.Event {
	var out []model.Event
	for _, ev := range t.events {
		if ev.Day == day {
			out = append(out, ev)
		}
	}
	return out
}

// Get looks an event up by its stable ID.
func (t *Timetable) Get(id string) (model.Event, bool) {
	idx := t.indexOf(id)
	if idx < 0 {
		return model.Event{}, false
	}
	return t.events[idx], true
}

// Lookup finds an event by its legacy (name, day, start) identity.
func (t *Timetable) Lookup(key model.Key) (model.Event, bool) {
	for _, ev := range t.events {
		if ev.Key() == key {
			return ev, true
		}
	}
	return model.Event{}, false
}

func (t *Timetable) Len() int {
	return len(t.events)
}

func (t *Timetable) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(t.events, func(ev model.Event) bool { return ev.ID == id })
}

// conflict returns the first event on day overlapping [start,end), skipping
// the event with ignoreID.
func (t *Timetable) conflict(day model.Weekday, start, end model.Clock, ignoreID string) (model.Event, bool) {
	for _, ev := range t.events {
		if ignoreID != "" && ev.ID == ignoreID {
			continue
		}
		if ev.Day == day && model.Overlaps(start, end, ev.Start, ev.End) {
			return ev, true
		}
	}
	return model.Event{}, false
}

// sort restores canonical order. Stable, so equal keys keep insertion order.
func (t *Timetable) sort() {
	slices.SortStableFunc(t.events, func(a, b model.Event) int {
		if a.Day != b.Day {
			return int(a.Day) - int(b.Day)
		}
		return int(a.Start) - int(b.Start)
	})
}

func conflictWith(ev model.Event) error {
	return &model.ConflictError{Name: ev.Name, Start: ev.Start, End: ev.End}
}
