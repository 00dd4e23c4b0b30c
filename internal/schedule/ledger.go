package schedule

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "planner/internal/log"
	"planner/internal/model"
)

// Entry holds the exceptions recorded for one calendar date.
type Entry struct {
	// Cancel lists weekly event IDs whose occurrence is suppressed on the
	// date, without duplicates, in the order they were cancelled.
	Cancel []string
	// Add lists one-off events for the date in insertion order.
	Add []model.OneOffEvent
}

func (e Entry) clone() Entry {
	return Entry{Cancel: slices.Clone(e.Cancel), Add: slices.Clone(e.Add)}
}

func (e Entry) empty() bool {
	return len(e.Cancel) == 0 && len(e.Add) == 0
}

// Ledger records per-date exceptions to the weekly timetable without
// touching the timetable itself. Entries are keyed by YYYY-MM-DD.
type Ledger struct {
	table   *Timetable
	entries map[string]*Entry
	newID   func() string
}

// NewLedger returns an empty ledger resolving event IDs against table.
func NewLedger(table *Timetable) *Ledger {
	return &Ledger{
		table:   table,
		entries: make(map[string]*Entry),
		newID:   uuid.NewString,
	}
}

// OverrideOccurrence moves the occurrence of the weekly event eventID on date
// to [start,end). The original occurrence is cancelled and a one-off copy
// carrying the event's name and category is added. Overriding the same
// occurrence again replaces the previous replacement.
//
// The new interval must not overlap anything else on that date.
func (l *Ledger) OverrideOccurrence(date, eventID, start, end string) (model.OneOffEvent, error) {
	day, key, err := parseDateKey(date)
	if err != nil {
		return model.OneOffEvent{}, err
	}
	ev, ok := l.table.Get(eventID)
	if !ok || ev.Day != model.WeekdayOf(day) {
		return model.OneOffEvent{}, fmt.Errorf("%w: %s on %s", model.ErrNotFound, eventID, key)
	}
	s, e, err := model.ParseRange(start, end)
	if err != nil {
		return model.OneOffEvent{}, err
	}

	for _, pe := range projectDate(l.table, l, day) {
		if pe.EventID == eventID || pe.Origin == eventID {
			continue
		}
		if model.Overlaps(s, e, pe.Start, pe.End) {
			return model.OneOffEvent{}, &model.ConflictError{Name: pe.Name, Start: pe.Start, End: pe.End}
		}
	}

	entry := l.entry(key)
	if !slices.Contains(entry.Cancel, eventID) {
		entry.Cancel = append(entry.Cancel, eventID)
	}
	entry.Add = slices.DeleteFunc(entry.Add, func(o model.OneOffEvent) bool { return o.Origin == eventID })

	oneOff := model.OneOffEvent{
		ID:       l.newID(),
		Origin:   eventID,
		Name:     ev.Name,
		Start:    s,
		End:      e,
		Category: ev.Category,
	}
	entry.Add = append(entry.Add, oneOff)

	appLog.Debug("ledger: occurrence overridden", "date", key, "event_id", eventID, "start", s, "end", e)
	return oneOff, nil
}

// AddAdHoc adds a non-recurring event on date after checking it against the
// date's full projection (weekly events minus cancellations, plus additions).
func (l *Ledger) AddAdHoc(date, name, start, end, category string) (model.OneOffEvent, error) {
	day, key, err := parseDateKey(date)
	if err != nil {
		return model.OneOffEvent{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.OneOffEvent{}, model.ErrEmptyName
	}
	s, e, err := model.ParseRange(start, end)
	if err != nil {
		return model.OneOffEvent{}, err
	}

	for _, pe := range projectDate(l.table, l, day) {
		if model.Overlaps(s, e, pe.Start, pe.End) {
			return model.OneOffEvent{}, &model.ConflictError{Name: pe.Name, Start: pe.Start, End: pe.End}
		}
	}

	oneOff := model.OneOffEvent{
		ID:       l.newID(),
		Name:     name,
		Start:    s,
		End:      e,
		Category: strings.TrimSpace(category),
	}
	entry := l.entry(key)
	entry.Add = append(entry.Add, oneOff)

	appLog.Debug("ledger: ad-hoc event added", "date", key, "name", name, "start", s, "end", e)
	return oneOff, nil
}

// RemoveOverride undoes OverrideOccurrence: the weekly occurrence is shown
// again and its replacement is dropped. It reports whether anything changed.
func (l *Ledger) RemoveOverride(date, eventID string) bool {
	_, key, err := parseDateKey(date)
	if err != nil {
		return false
	}
	entry, ok := l.entries[key]
	if !ok {
		return false
	}

	before := len(entry.Cancel) + len(entry.Add)
	entry.Cancel = slices.DeleteFunc(entry.Cancel, func(id string) bool { return id == eventID })
	entry.Add = slices.DeleteFunc(entry.Add, func(o model.OneOffEvent) bool { return o.Origin == eventID })
	changed := len(entry.Cancel)+len(entry.Add) != before

	if entry.empty() {
		delete(l.entries, key)
	}
	return changed
}

// CancellationsFor returns the set of event IDs cancelled on date.
func (l *Ledger) CancellationsFor(date string) map[string]struct{} {
	set := make(map[string]struct{})
	if entry := l.lookup(date); entry != nil {
		for _, id := range entry.Cancel {
			set[id] = struct{}{}
		}
	}
	return set
}

// AdditionsFor returns a copy of the one-off events recorded for date.
func (l *Ledger) AdditionsFor(date string) []model.OneOffEvent {
	if entry := l.lookup(date); entry != nil {
		return slices.Clone(entry.Add)
	}
	return nil
}

// Dates returns every date with an entry, ascending.
func (l *Ledger) Dates() []string {
	return slices.Sorted(maps.Keys(l.entries))
}

// Entries returns a deep copy of the whole ledger, for persistence.
func (l *Ledger) Entries() map[string]Entry {
	out := make(map[string]Entry, len(l.entries))
	for k, e := range l.entries {
		out[k] = e.clone()
	}
	return out
}

// Put replaces the entry of date wholesale. Used when loading from disk.
func (l *Ledger) Put(date string, e Entry) error {
	_, key, err := parseDateKey(date)
	if err != nil {
		return err
	}
	if e.empty() {
		delete(l.entries, key)
		return nil
	}
	c := e.clone()
	l.entries[key] = &c
	return nil
}

// Rollback replaces every entry with a snapshot taken by Entries.
func (l *Ledger) Rollback(snapshot map[string]Entry) {
	l.entries = make(map[string]*Entry, len(snapshot))
	for k, e := range snapshot {
		if e.empty() {
			continue
		}
		c := e.clone()
		l.entries[k] = &c
	}
}

func (l *Ledger) entry(key string) *Entry {
	e, ok := l.entries[key]
	if !ok {
		e = &Entry{}
		l.entries[key] = e
	}
	return e
}

func (l *Ledger) lookup(date string) *Entry {
	_, key, err := parseDateKey(date)
	if err != nil {
		return nil
	}
	return l.entries[key]
}

func parseDateKey(date string) (time.Time, string, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, "", err
	}
	return d, model.FormatDate(d), nil
}
