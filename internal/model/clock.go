package model

import (
	"fmt"
)

// MinutesPerDay bounds Clock values: a Clock is always in [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// Clock is a naive wall-clock time of day, stored as minutes since midnight.
type Clock int

// ParseClock parses a strict 24-hour "HH:MM" string. Both fields must be
// exactly two digits, so "9:5" and "09:5" are rejected along with
// out-of-range values like "25:61".
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// MustClock is ParseClock for literals known to be valid. It panics otherwise.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Valid reports whether c is within a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTimeFormat, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) share
// at least one minute. Back-to-back intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return !(e1 <= s2 || e2 <= s1)
}

// ParseRange parses start and end and enforces start < end.
func ParseRange(start, end string) (Clock, Clock, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	if err := CheckRange(s, e); err != nil {
		return 0, 0, err
	}
	return s, e, nil
}

// CheckRange enforces start < end on already parsed clocks.
func CheckRange(start, end Clock) error {
	if !start.Valid() || !end.Valid() {
		return fmt.Errorf("%w: %d-%d minutes", ErrInvalidTimeFormat, int(start), int(end))
	}
	if start >= end {
		return fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return nil
}
