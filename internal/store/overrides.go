package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/schedule"
)

type overrideRecord struct {
	Cancel []string         `json:"cancel"`
	Add    []additionRecord `json:"add"`
}

type additionRecord struct {
	ID       string `json:"id,omitempty"`
	Origin   string `json:"origin,omitempty"`
	Name     string `json:"name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category,omitempty"`
}

// LoadOverrides reads the override document at path into a ledger bound to
// table. A missing file yields an empty ledger.
//
// Older documents list cancelled events by name. Such entries are resolved
// to the event of that name on the date's weekday; names that match nothing
// are dropped. Additions without an id get one, and a legacy addition whose
// name matches a resolved cancellation is linked to that event.
func LoadOverrides(path string, table *schedule.Timetable) (*schedule.Ledger, error) {
	ledger := schedule.NewLedger(table)

	var doc map[string]overrideRecord
	found, err := readDocument(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("load overrides %s: %w", path, err)
	}
	if !found {
		appLog.Info("override document not found; starting empty", "path", path)
		return ledger, nil
	}

	for date, rec := range doc {
		day, err := model.ParseDate(date)
		if err != nil {
			appLog.Warn("overrides: skipping entry with invalid date", "date", date)
			continue
		}
		weekday := model.WeekdayOf(day)

		var entry schedule.Entry
		legacy := make(map[string]string) // name -> event id
		for _, c := range rec.Cancel {
			id, ok := resolveCancel(table, weekday, c)
			if !ok {
				appLog.Warn("overrides: dropping unresolved cancellation", "date", date, "ref", c)
				continue
			}
			if id != c {
				legacy[c] = id
			}
			if !slices.Contains(entry.Cancel, id) {
				entry.Cancel = append(entry.Cancel, id)
			}
		}

		for _, a := range rec.Add {
			start, end, err := model.ParseRange(a.Start, a.End)
			if err != nil || strings.TrimSpace(a.Name) == "" {
				appLog.Warn("overrides: skipping invalid addition", "date", date, "name", a.Name, "start", a.Start, "end", a.End)
				continue
			}
			oneOff := model.OneOffEvent{
				ID:       a.ID,
				Origin:   a.Origin,
				Name:     a.Name,
				Start:    start,
				End:      end,
				Category: a.Category,
			}
			if oneOff.ID == "" {
				oneOff.ID = uuid.NewString()
			}
			if oneOff.Origin == "" {
				oneOff.Origin = legacy[a.Name]
			}
			if oneOff.Category == "" && oneOff.Origin != "" {
				if ev, ok := table.Get(oneOff.Origin); ok {
					oneOff.Category = ev.Category
				}
			}
			entry.Add = append(entry.Add, oneOff)
		}

		if err := ledger.Put(date, entry); err != nil {
			appLog.Warn("overrides: skipping entry", "date", date, "err", err)
		}
	}

	appLog.Info("overrides loaded", "path", path, "dates", len(ledger.Dates()))
	return ledger, nil
}

// resolveCancel maps a cancel reference to an event id. Known ids and
// well-formed ids of since-deleted events are kept; anything else is
// treated as a legacy event name on weekday.
func resolveCancel(table *schedule.Timetable, weekday model.Weekday, ref string) (string, bool) {
	if _, ok := table.Get(ref); ok {
		return ref, true
	}
	for _, ev := range table.ForDay(weekday) {
		if ev.Name == ref {
			return ev.ID, true
		}
	}
	if uuid.Validate(ref) == nil {
		return ref, true
	}
	return "", false
}

// SaveOverrides writes the whole ledger keyed by date.
func SaveOverrides(path string, ledger *schedule.Ledger) error {
	doc := make(map[string]overrideRecord)
	for date, e := range ledger.Entries() {
		rec := overrideRecord{
			Cancel: append([]string{}, e.Cancel...),
			Add:    make([]additionRecord, 0, len(e.Add)),
		}
		for _, a := range e.Add {
			rec.Add = append(rec.Add, additionRecord{
				ID:       a.ID,
				Origin:   a.Origin,
				Name:     a.Name,
				Start:    a.Start.String(),
				End:      a.End.String(),
				Category: a.Category,
			})
		}
		doc[date] = rec
	}
	if err := writeDocument(path, doc); err != nil {
		return fmt.Errorf("save overrides %s: %w", path, err)
	}
	return nil
}
