package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/model"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want model.Clock
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"25:61", 0, false},
		{"12:60", 0, false},
		{"9:5", 0, false},
		{"9:05", 0, false},
		{"abc", 0, false},
		{"ab:cd", 0, false},
		{"", 0, false},
		{"-1:00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := model.ParseClock(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, model.ErrInvalidTimeFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestOverlaps(t *testing.T) {
	c := model.MustClock
	assert.True(t, model.Overlaps(c("09:00"), c("10:00"), c("09:30"), c("10:30")))
	assert.True(t, model.Overlaps(c("09:00"), c("10:00"), c("08:00"), c("11:00")))
	assert.True(t, model.Overlaps(c("09:00"), c("10:00"), c("09:00"), c("10:00")))
	assert.False(t, model.Overlaps(c("09:00"), c("10:00"), c("10:00"), c("11:00")))
	assert.False(t, model.Overlaps(c("10:00"), c("11:00"), c("09:00"), c("10:00")))
}

func TestParseRange(t *testing.T) {
	_, _, err := model.ParseRange("10:00", "10:00")
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	_, _, err = model.ParseRange("23:00", "01:00")
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	_, _, err = model.ParseRange("10:00", "9:00")
	assert.ErrorIs(t, err, model.ErrInvalidTimeFormat)

	s, e, err := model.ParseRange("08:15", "09:45")
	require.NoError(t, err)
	assert.Equal(t, 90, int(e-s))
}

func TestWeekday(t *testing.T) {
	d, err := model.ParseWeekday("wednesday")
	require.NoError(t, err)
	assert.Equal(t, model.Wednesday, d)
	assert.Equal(t, "Wednesday", d.String())

	_, err = model.ParseWeekday("Funday")
	assert.ErrorIs(t, err, model.ErrInvalidDay)

	// 2024-06-03 was a Monday, 2024-06-09 a Sunday.
	assert.Equal(t, model.Monday, model.WeekdayOf(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, model.Sunday, model.WeekdayOf(time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)))
}

func TestEventJSON(t *testing.T) {
	ev := model.Event{
		ID:    "abc",
		Name:  "Math",
		Day:   model.Tuesday,
		Start: model.MustClock("08:00"),
		End:   model.MustClock("09:30"),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Math","day":"Tuesday","start":"08:00","end":"09:30"}`, string(data))

	var bad model.Event
	err = json.Unmarshal([]byte(`{"name":"x","day":"Monday","start":"8:00","end":"09:00"}`), &bad)
	assert.True(t, errors.Is(err, model.ErrInvalidTimeFormat))
}

func TestEventInputParse(t *testing.T) {
	ev, err := model.EventInput{Name: "  Gym ", Day: "friday", Start: "18:00", End: "19:00"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, "Gym", ev.Name)
	assert.Equal(t, model.Friday, ev.Day)
	assert.Equal(t, 60, ev.Minutes())

	_, err = model.EventInput{Name: " ", Day: "Friday", Start: "18:00", End: "19:00"}.Parse()
	assert.ErrorIs(t, err, model.ErrEmptyName)
}

func TestConflictErrorMatchesSentinel(t *testing.T) {
	var err error = &model.ConflictError{Name: "Math", Start: 540, End: 600}
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Contains(t, err.Error(), `"Math" 09:00-10:00`)
}
