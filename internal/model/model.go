package model

import "strings"

// DefaultCategory is shown for events that were stored without a category.
const DefaultCategory = "General"

// Event is a recurring weekly timetable entry.
type Event struct {
	// ID is assigned once at creation and survives renames and moves, so
	// overrides keep pointing at the same event.
	ID string `json:"id"`

	Name     string  `json:"name"`
	Day      Weekday `json:"day"`
	Start    Clock   `json:"start"`
	End      Clock   `json:"end"`
	Category string  `json:"category,omitempty"`
}

// Key is the legacy value identity of an event: (name, day, start).
type Key struct {
	Name  string
	Day   Weekday
	Start Clock
}

func (e Event) Key() Key {
	return Key{Name: e.Name, Day: e.Day, Start: e.Start}
}

// Minutes is the event's duration.
func (e Event) Minutes() int {
	return int(e.End - e.Start)
}

// EventInput carries unvalidated caller values for add/update.
type EventInput struct {
	Name     string `json:"name"`
	Day      string `json:"day"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category,omitempty"`
}

// Parse validates the input and returns an Event without an ID.
func (in EventInput) Parse() (Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Event{}, ErrEmptyName
	}
	day, err := ParseWeekday(in.Day)
	if err != nil {
		return Event{}, err
	}
	start, end, err := ParseRange(in.Start, in.End)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Name:     name,
		Day:      day,
		Start:    start,
		End:      end,
		Category: strings.TrimSpace(in.Category),
	}, nil
}

// OneOffEvent is an addition that exists on a single date only.
type OneOffEvent struct {
	ID string `json:"id"`
	// Origin is the ID of the weekly event whose occurrence this replaces.
	// Empty for ad-hoc events.
	Origin string `json:"origin,omitempty"`

	Name     string `json:"name"`
	Start    Clock  `json:"start"`
	End      Clock  `json:"end"`
	Category string `json:"category,omitempty"`
}

// Source tells where a projected event came from.
type Source string

const (
	SourceWeekly   Source = "weekly"
	SourceOverride Source = "override"
	SourceAdHoc    Source = "adhoc"
)

// ProjectedEvent is one entry of the effective schedule of a calendar date.
type ProjectedEvent struct {
	Date string `json:"date"`
	// EventID is the weekly event ID or the one-off ID.
	EventID string `json:"event_id"`
	// Origin is set on overrides to the replaced weekly event.
	Origin string `json:"origin,omitempty"`
	Source Source `json:"source"`

	Name     string `json:"name"`
	Start    Clock  `json:"start"`
	End      Clock  `json:"end"`
	Category string `json:"category"`
}

// Task is the read-only view of a to-do item owned by the task store.
type Task struct {
	Title    string `json:"title"`
	Deadline string `json:"deadline"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Done     bool   `json:"done"`
}

// NameTotal is the weekly time spent on events sharing a name.
type NameTotal struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

// CategoryOrDefault returns c, or DefaultCategory when c is blank.
func CategoryOrDefault(c string) string {
	if strings.TrimSpace(c) == "" {
		return DefaultCategory
	}
	return c
}
