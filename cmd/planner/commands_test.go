package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/model"
	"planner/internal/planner"
	"planner/internal/schedule"
)

type fakeRunner struct {
	exported string
	imported string
}

func (f *fakeRunner) Overview(date string) (schedule.Overview, error) {
	if date == "bad" {
		return schedule.Overview{}, model.ErrInvalidDate
	}
	return schedule.Overview{
		Date:  date,
		Tasks: []model.Task{{Title: "Essay", Deadline: date}},
		Events: []model.ProjectedEvent{
			{Name: "Math", Start: model.MustClock("09:00"), End: model.MustClock("10:00"), Category: "School", Source: model.SourceWeekly},
			{Name: "Dentist", Start: model.MustClock("14:00"), End: model.MustClock("15:00"), Category: "General", Source: model.SourceAdHoc},
		},
	}, nil
}

func (f *fakeRunner) Agenda() []schedule.DayPlan {
	return []schedule.DayPlan{
		{Date: "2024-06-03", Weekday: model.Monday, Events: []model.ProjectedEvent{}},
		{Date: "2024-06-04", Weekday: model.Tuesday, Events: []model.ProjectedEvent{}},
	}
}

func (f *fakeRunner) Upcoming(days int) (schedule.Upcoming, error) {
	return schedule.Upcoming{From: "2024-06-03", To: "2024-06-10", Tasks: []model.Task{}, Events: []model.ProjectedEvent{}}, nil
}

func (f *fakeRunner) Summary() []model.NameTotal {
	return []model.NameTotal{{Name: "Math", Minutes: 150}, {Name: "Gym", Minutes: 45}}
}

func (f *fakeRunner) WriteExport(path string) error {
	f.exported = path
	return nil
}

func (f *fakeRunner) ImportFrom(_ context.Context, src string) (planner.ImportReport, error) {
	f.imported = src
	if src == "missing.ics" {
		return planner.ImportReport{}, errors.New("no such file")
	}
	return planner.ImportReport{Weekly: 3, OneOffs: 1, Skipped: 2}, nil
}

func run(t *testing.T, f flagConfig) (string, *fakeRunner, error) {
	t.Helper()
	fake := &fakeRunner{}
	var out bytes.Buffer
	err := runOnce(context.Background(), &out, fake, f)
	return out.String(), fake, err
}

func noModes() flagConfig {
	return flagConfig{upcoming: -1}
}

func TestRunOnce_Date(t *testing.T) {
	f := noModes()
	f.date = "2024-06-05"
	out, _, err := run(t, f)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-06-05\nTasks:\n  - Essay (due 2024-06-05)\nEvents:\n")
	assert.Contains(t, out, "09:00-10:00")
	assert.Contains(t, out, "[School]")
	assert.Contains(t, out, "adhoc")

	f.date = "bad"
	_, _, err = run(t, f)
	assert.ErrorIs(t, err, model.ErrInvalidDate)
}

func TestRunOnce_Agenda(t *testing.T) {
	f := noModes()
	f.agenda = true
	out, _, err := run(t, f)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03 (Monday)\n  no events\n\n2024-06-04 (Tuesday)\n  no events\n", out)
}

func TestRunOnce_Upcoming(t *testing.T) {
	f := noModes()
	f.upcoming = 7
	out, _, err := run(t, f)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03 .. 2024-06-10\nTasks:\n  no open tasks\nEvents:\n  no events\n", out)
}

func TestRunOnce_UpcomingRejectsHugeHorizon(t *testing.T) {
	f := noModes()
	f.upcoming = schedule.MaxHorizonDays + 1
	out, _, err := run(t, f)
	assert.ErrorIs(t, err, model.ErrInvalidHorizon)
	assert.Empty(t, out)

	f.upcoming = math.MaxInt
	_, _, err = run(t, f)
	assert.ErrorIs(t, err, model.ErrInvalidHorizon)

	f.upcoming = schedule.MaxHorizonDays
	_, _, err = run(t, f)
	assert.NoError(t, err)
}

func TestRunOnce_Summary(t *testing.T) {
	f := noModes()
	f.summary = true
	out, _, err := run(t, f)
	require.NoError(t, err)
	assert.Equal(t, "Math  2h30m\nGym   45m\n", out)
}

func TestRunOnce_ExportImport(t *testing.T) {
	f := noModes()
	f.export = "/tmp/out.ics"
	_, fake, err := run(t, f)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.ics", fake.exported)

	f = noModes()
	f.importFr = "cal.ics"
	out, fake, err := run(t, f)
	require.NoError(t, err)
	assert.Equal(t, "cal.ics", fake.imported)
	assert.Equal(t, "imported 3 weekly and 1 dated events (0 rejected, 2 unsupported)\n", out)

	f.importFr = "missing.ics"
	_, _, err = run(t, f)
	assert.Error(t, err)
}

func TestOneShot(t *testing.T) {
	assert.False(t, noModes().oneShot())
	f := noModes()
	f.upcoming = 0
	assert.True(t, f.oneShot())
}

func TestFormatMinutes(t *testing.T) {
	for in, want := range map[int]string{0: "0m", 45: "45m", 60: "1h", 90: "1h30m"} {
		assert.Equal(t, want, formatMinutes(in))
	}
}
