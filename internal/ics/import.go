package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "planner/internal/log"
	"planner/internal/model"
)

// DatedEvent is a single timed VEVENT that does not recur.
type DatedEvent struct {
	Date     string
	Name     string
	Start    model.Clock
	End      model.Clock
	Category string
}

// ImportResult is what ParseICS could map onto the planner's model.
type ImportResult struct {
	// Weekly holds VEVENTs recurring every week, one entry per BYDAY.
	Weekly []model.EventInput
	// Dated holds single timed VEVENTs.
	Dated []DatedEvent
	// Skipped counts VEVENTs that have no planner equivalent (all-day,
	// multi-day, non-weekly rules, recurrence overrides).
	Skipped int
}

// ParseError reports a payload that is not a usable iCalendar document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse ics: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// ParseICS maps an iCalendar payload onto weekly events and dated one-offs.
//
//   - A VEVENT with RRULE FREQ=WEEKLY and INTERVAL 1 becomes one weekly
//     event per BYDAY (or the DTSTART weekday when BYDAY is absent).
//   - A VEVENT without RRULE becomes a dated event on its DTSTART date.
//   - Times are taken as wall clock; UTC values are converted to local time.
//
// Individual VEVENTs that fail to map are logged and counted as skipped.
func ParseICS(body []byte) (ImportResult, error) {
	var res ImportResult
	if len(bytes.TrimSpace(body)) == 0 {
		return res, &ParseError{Err: errors.New("empty body")}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return res, &ParseError{Err: err}
	}

	for _, ve := range cal.Events() {
		if err := importVEvent(ve, &res); err != nil {
			res.Skipped++
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			appLog.Debug("ics vevent skipped", "uid", uid, "reason", err.Error())
		}
	}

	appLog.Info("ics parse completed",
		"weekly", len(res.Weekly),
		"dated", len(res.Dated),
		"skipped", res.Skipped,
	)
	return res, nil
}

func importVEvent(ve *ical.VEvent, res *ImportResult) error {
	if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
		return errors.New("recurrence override")
	}

	name := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		name = strings.TrimSpace(p.Value)
	}
	if name == "" {
		return errors.New("missing SUMMARY")
	}
	category := ""
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		// Only the first of a comma-separated list maps to a category.
		category = strings.TrimSpace(strings.SplitN(p.Value, ",", 2)[0])
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return errors.New("missing DTSTART")
	}
	start, allDay, err := propertyTime(startProp)
	if err != nil {
		return err
	}
	if allDay {
		return errors.New("all-day event")
	}

	endProp := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if endProp == nil {
		return errors.New("missing DTEND")
	}
	end, _, err := propertyTime(endProp)
	if err != nil {
		return err
	}
	if !model.Today(start).Equal(model.Today(end)) {
		return errors.New("event spans days")
	}

	startClock := clockOf(start)
	endClock := clockOf(end)
	if startClock >= endClock {
		return model.ErrInvalidRange
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil {
		res.Dated = append(res.Dated, DatedEvent{
			Date:     model.FormatDate(start),
			Name:     name,
			Start:    startClock,
			End:      endClock,
			Category: category,
		})
		return nil
	}

	opt, err := rrule.StrToROption(rruleProp.Value)
	if err != nil {
		return fmt.Errorf("rrule: %w", err)
	}
	if opt.Freq != rrule.WEEKLY || opt.Interval > 1 {
		return fmt.Errorf("unsupported rrule %q", rruleProp.Value)
	}

	days := make([]model.Weekday, 0, len(opt.Byweekday))
	for _, wd := range opt.Byweekday {
		days = append(days, fromRRuleWeekday(wd))
	}
	if len(days) == 0 {
		days = append(days, model.WeekdayOf(start))
	}
	for _, day := range days {
		res.Weekly = append(res.Weekly, model.EventInput{
			Name:     name,
			Day:      day.String(),
			Start:    startClock.String(),
			End:      endClock.String(),
			Category: category,
		})
	}
	return nil
}

// propertyTime reads a DTSTART/DTEND value. TZID-qualified and floating
// values keep their wall clock; UTC values move to time.Local.
func propertyTime(p *ical.IANAProperty) (time.Time, bool, error) {
	allDay := false
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	t, err := parseICSTime(p.Value)
	if err != nil {
		return time.Time{}, false, err
	}
	if !strings.Contains(p.Value, "T") {
		allDay = true
	}
	return t, allDay, nil
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.Local(), nil
	}
	if strings.Contains(v, "T") {
		return time.Parse(floatingLayout, v)
	}
	return time.Parse("20060102", v)
}

func clockOf(t time.Time) model.Clock {
	return model.Clock(t.Hour()*60 + t.Minute())
}
