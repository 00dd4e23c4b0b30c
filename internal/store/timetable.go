package store

import (
	"fmt"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/schedule"
)

// timetableRecord is one element of the timetable document. Fields are
// kept as strings so a single bad row can be skipped without rejecting the
// whole file.
type timetableRecord struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Day      string `json:"day"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category,omitempty"`
}

// LoadTimetable reads the timetable document at path. A missing file yields
// an empty timetable. Rows that fail validation (unknown day, malformed
// time, inverted range, overlap with an earlier row, duplicate id) are
// skipped and logged.
func LoadTimetable(path string) (*schedule.Timetable, error) {
	table := schedule.NewTimetable()

	var records []timetableRecord
	found, err := readDocument(path, &records)
	if err != nil {
		return nil, fmt.Errorf("load timetable %s: %w", path, err)
	}
	if !found {
		appLog.Info("timetable document not found; starting empty", "path", path)
		return table, nil
	}

	skipped := 0
	for i, rec := range records {
		ev, err := model.EventInput{
			Name:     rec.Name,
			Day:      rec.Day,
			Start:    rec.Start,
			End:      rec.End,
			Category: rec.Category,
		}.Parse()
		if err == nil {
			ev.ID = rec.ID
			_, err = table.Restore(ev)
		}
		if err != nil {
			skipped++
			appLog.Warn("timetable: skipping invalid record", "index", i, "name", rec.Name, "day", rec.Day, "err", err)
		}
	}

	appLog.Info("timetable loaded", "path", path, "events", table.Len(), "skipped", skipped)
	return table, nil
}

// SaveTimetable writes the timetable as a JSON array in canonical order.
func SaveTimetable(path string, table *schedule.Timetable) error {
	events := table.Ordered()
	records := make([]timetableRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, timetableRecord{
			ID:       ev.ID,
			Name:     ev.Name,
			Day:      ev.Day.String(),
			Start:    ev.Start.String(),
			End:      ev.End.String(),
			Category: ev.Category,
		})
	}
	if err := writeDocument(path, records); err != nil {
		return fmt.Errorf("save timetable %s: %w", path, err)
	}
	return nil
}
