package ics_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/ics"
	"planner/internal/model"
	"planner/internal/schedule"
)

func exportFixture(t *testing.T) (string, model.Event, model.OneOffEvent) {
	t.Helper()
	table := schedule.NewTimetable()
	ledger := schedule.NewLedger(table)

	math, err := table.Add(model.EventInput{Name: "Math", Day: "Wednesday", Start: "09:00", End: "10:00", Category: "School"})
	require.NoError(t, err)
	_, err = table.Add(model.EventInput{Name: "Gym", Day: "Friday", Start: "18:00", End: "19:30", Category: "Health"})
	require.NoError(t, err)

	// Moved on the second Wednesday, cancelled outright on the third.
	_, err = ledger.OverrideOccurrence("2024-06-12", math.ID, "11:00", "12:00")
	require.NoError(t, err)
	require.NoError(t, ledger.Put("2024-06-19", schedule.Entry{Cancel: []string{math.ID}}))

	dentist, err := ledger.AddAdHoc("2024-06-07", "Dentist", "14:00", "15:00", "Errands")
	require.NoError(t, err)

	out := ics.Export(table, ledger, ics.ExportOptions{
		From: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Now:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	return out, math, dentist
}

func TestExport(t *testing.T) {
	out, math, dentist := exportFixture(t)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "UID:"+math.ID)
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=WE")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=FR")
	assert.Contains(t, out, "DTSTART:20240605T090000")
	assert.Contains(t, out, "DTSTART:20240607T180000")
	assert.Contains(t, out, "CATEGORIES:School")

	assert.Contains(t, out, "RECURRENCE-ID:20240612T090000")
	assert.Contains(t, out, "DTSTART:20240612T110000")
	assert.Contains(t, out, "EXDATE:20240619T090000")
	assert.NotContains(t, out, "EXDATE:20240612T090000")

	assert.Contains(t, out, "UID:"+dentist.ID)
	assert.Contains(t, out, "SUMMARY:Dentist")
	assert.Contains(t, out, "DTSTART:20240607T140000")
}

func TestExport_SkipsReplacementOfMovedEvent(t *testing.T) {
	table := schedule.NewTimetable()
	ledger := schedule.NewLedger(table)
	math, err := table.Add(model.EventInput{Name: "Math", Day: "Wednesday", Start: "09:00", End: "10:00"})
	require.NoError(t, err)
	_, err = ledger.OverrideOccurrence("2024-06-12", math.ID, "11:00", "12:00")
	require.NoError(t, err)
	_, err = table.Update(math.ID, model.EventInput{Name: "Math", Day: "Thursday", Start: "09:00", End: "10:00"})
	require.NoError(t, err)

	out := ics.Export(table, ledger, ics.ExportOptions{From: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=TH")
	assert.NotContains(t, out, "DTSTART:20240612T110000")
	assert.NotContains(t, out, "RECURRENCE-ID")
}

func TestExport_Empty(t *testing.T) {
	table := schedule.NewTimetable()
	out := ics.Export(table, schedule.NewLedger(table), ics.ExportOptions{})
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestParseICS_RoundTrip(t *testing.T) {
	out, _, _ := exportFixture(t)

	res, err := ics.ParseICS([]byte(out))
	require.NoError(t, err)

	assert.ElementsMatch(t, []model.EventInput{
		{Name: "Math", Day: "Wednesday", Start: "09:00", End: "10:00", Category: "School"},
		{Name: "Gym", Day: "Friday", Start: "18:00", End: "19:30", Category: "Health"},
	}, res.Weekly)
	require.Len(t, res.Dated, 1)
	assert.Equal(t, ics.DatedEvent{
		Date:     "2024-06-07",
		Name:     "Dentist",
		Start:    model.MustClock("14:00"),
		End:      model.MustClock("15:00"),
		Category: "Errands",
	}, res.Dated[0])
	assert.Equal(t, 1, res.Skipped, "the RECURRENCE-ID instance has no weekly equivalent")
}

const foreignCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:a\r\n" +
	"SUMMARY:Lab\r\n" +
	"DTSTART:20240603T130000\r\n" +
	"DTEND:20240603T150000\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO,TH\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:b\r\n" +
	"SUMMARY:Seminar\r\n" +
	"DTSTART:20240604T100000\r\n" +
	"DTEND:20240604T110000\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:c\r\n" +
	"SUMMARY:Holiday\r\n" +
	"DTSTART;VALUE=DATE:20240610\r\n" +
	"DTEND;VALUE=DATE:20240611\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:d\r\n" +
	"SUMMARY:Biweekly\r\n" +
	"DTSTART:20240605T080000\r\n" +
	"DTEND:20240605T090000\r\n" +
	"RRULE:FREQ=WEEKLY;INTERVAL=2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:e\r\n" +
	"SUMMARY:Overnight\r\n" +
	"DTSTART:20240605T220000\r\n" +
	"DTEND:20240606T020000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS_ForeignCalendar(t *testing.T) {
	res, err := ics.ParseICS([]byte(foreignCalendar))
	require.NoError(t, err)

	assert.Equal(t, []model.EventInput{
		{Name: "Lab", Day: "Monday", Start: "13:00", End: "15:00"},
		{Name: "Lab", Day: "Thursday", Start: "13:00", End: "15:00"},
		{Name: "Seminar", Day: "Tuesday", Start: "10:00", End: "11:00"},
	}, res.Weekly)
	assert.Empty(t, res.Dated)
	assert.Equal(t, 3, res.Skipped)
}

func TestParseICS_Empty(t *testing.T) {
	_, err := ics.ParseICS([]byte("  \n"))
	assert.Error(t, err)
}

func TestFetcher_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		fmt.Fprint(w, foreignCalendar)
	}))
	defer srv.Close()

	f := ics.NewFetcher(0)
	ctx := context.Background()

	body, err := f.Read(ctx, srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.Equal(t, foreignCalendar, string(body))

	_, err = f.Read(ctx, srv.URL+"/missing.ics")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(foreignCalendar), 0o600))
	body, err = f.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, foreignCalendar, string(body))

	_, err = f.Read(ctx, "")
	assert.Error(t, err)
}
