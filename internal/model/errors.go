package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimeFormat = errors.New("invalid time format (HH:MM)")
	ErrInvalidRange      = errors.New("start must be before end")
	ErrInvalidDay        = errors.New("invalid day of week")
	ErrInvalidDate       = errors.New("invalid date (YYYY-MM-DD)")
	ErrEmptyName         = errors.New("event name is required")
	ErrConflict          = errors.New("timetable conflict detected")
	ErrNotFound          = errors.New("event not found")
	ErrInvalidHorizon    = errors.New("invalid horizon")
)

// ConflictError names the event an interval clashed with.
type ConflictError struct {
	Name  string
	Start Clock
	End   Clock
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: overlaps %q %s-%s", ErrConflict, e.Name, e.Start, e.End)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
