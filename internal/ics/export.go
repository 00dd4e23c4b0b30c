package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/schedule"
)

const (
	productID = "-//planner//timetable//EN"

	// Floating (zone-less) local date-time, as the planner has no time zones.
	floatingLayout = "20060102T150405"
)

type recurrenceOverride struct {
	event    model.Event
	date     time.Time
	addition model.OneOffEvent
}

type datedOneOff struct {
	date     time.Time
	addition model.OneOffEvent
}

// ExportOptions controls ICS export.
type ExportOptions struct {
	// From is the first date recurrences may start on. Zero means today.
	From time.Time
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Export renders the weekly timetable and the override ledger as an
// iCalendar document:
//
//   - every weekly event becomes a VEVENT with a weekly RRULE whose DTSTART
//     is its first occurrence on or after opts.From
//   - a cancelled occurrence with a replacement becomes a VEVENT with the
//     same UID and a RECURRENCE-ID, a bare cancellation becomes an EXDATE
//   - ad-hoc additions (and replacements whose weekly event is gone) become
//     standalone VEVENTs
func Export(table *schedule.Timetable, ledger *schedule.Ledger, opts ExportOptions) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.From.IsZero() {
		opts.From = opts.Now
	}
	from := model.Today(opts.From)

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	firstStart := make(map[string]time.Time)
	for _, ev := range table.Ordered() {
		firstStart[ev.ID] = firstOnOrAfter(from, ev.Day)
	}

	exDates := make(map[string][]time.Time)
	var recurrences []recurrenceOverride
	var standalone []datedOneOff

	for _, key := range ledger.Dates() {
		date, err := model.ParseDate(key)
		if err != nil {
			continue
		}
		replaced := make(map[string]bool)
		for _, add := range ledger.AdditionsFor(key) {
			ev, ok := table.Get(add.Origin)
			if add.Origin != "" && ok && ev.Day != model.WeekdayOf(date) {
				// Replacement of an event since moved to another weekday.
				continue
			}
			if add.Origin != "" && ok && !date.Before(firstStart[ev.ID]) {
				recurrences = append(recurrences, recurrenceOverride{event: ev, date: date, addition: add})
				replaced[ev.ID] = true
				continue
			}
			standalone = append(standalone, datedOneOff{date: date, addition: add})
		}
		for id := range ledger.CancellationsFor(key) {
			ev, ok := table.Get(id)
			if !ok || replaced[id] || ev.Day != model.WeekdayOf(date) || date.Before(firstStart[id]) {
				continue
			}
			exDates[id] = append(exDates[id], at(date, ev.Start))
		}
	}

	for _, ev := range table.Ordered() {
		first := firstStart[ev.ID]
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(opts.Now)
		ve.SetSummary(ev.Name)
		ve.SetProperty(ical.ComponentPropertyDtStart, at(first, ev.Start).Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, at(first, ev.End).Format(floatingLayout))
		ve.AddProperty(ical.ComponentPropertyRrule, weeklyRule(ev.Day))
		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.Category)
		}
		for _, ex := range exDates[ev.ID] {
			ve.AddProperty(ical.ComponentPropertyExdate, ex.Format(floatingLayout))
		}
	}

	for _, r := range recurrences {
		ve := cal.AddEvent(r.event.ID)
		ve.SetDtStampTime(opts.Now)
		ve.SetSummary(r.addition.Name)
		ve.SetProperty(ical.ComponentProperty("RECURRENCE-ID"), at(r.date, r.event.Start).Format(floatingLayout))
		setOneOffTimes(ve, r.date, r.addition)
	}

	for _, s := range standalone {
		ve := cal.AddEvent(s.addition.ID)
		ve.SetDtStampTime(opts.Now)
		ve.SetSummary(s.addition.Name)
		setOneOffTimes(ve, s.date, s.addition)
	}

	appLog.Debug("ics export built",
		"weekly", table.Len(),
		"recurrence_overrides", len(recurrences),
		"standalone", len(standalone),
	)
	return cal.Serialize()
}

func setOneOffTimes(ve *ical.VEvent, date time.Time, o model.OneOffEvent) {
	ve.SetProperty(ical.ComponentPropertyDtStart, at(date, o.Start).Format(floatingLayout))
	ve.SetProperty(ical.ComponentPropertyDtEnd, at(date, o.End).Format(floatingLayout))
	if o.Category != "" {
		ve.SetProperty(ical.ComponentPropertyCategories, o.Category)
	}
}

// weeklyRule renders "FREQ=WEEKLY;BYDAY=XX" for day.
func weeklyRule(day model.Weekday) string {
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{toRRuleWeekday(day)},
	}
	return opt.RRuleString()
}

var rruleWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func toRRuleWeekday(day model.Weekday) rrule.Weekday {
	return rruleWeekdays[day]
}

// fromRRuleWeekday relies on rrule-go counting Monday as 0, like Weekday.
func fromRRuleWeekday(wd rrule.Weekday) model.Weekday {
	return model.Weekday(wd.Day())
}

func firstOnOrAfter(from time.Time, day model.Weekday) time.Time {
	delta := (int(day) - int(model.WeekdayOf(from)) + 7) % 7
	return from.AddDate(0, 0, delta)
}

func at(date time.Time, c model.Clock) time.Time {
	return date.Add(time.Duration(c) * time.Minute)
}
