package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"planner/internal/model"
	"planner/internal/planner"
	"planner/internal/schedule"
)

// runner is the part of planner.Service the one-shot commands use.
type runner interface {
	Overview(date string) (schedule.Overview, error)
	Agenda() []schedule.DayPlan
	Upcoming(days int) (schedule.Upcoming, error)
	Summary() []model.NameTotal
	WriteExport(path string) error
	ImportFrom(ctx context.Context, src string) (planner.ImportReport, error)
}

func runOnce(ctx context.Context, w io.Writer, svc runner, f flagConfig) error {
	switch {
	case f.date != "":
		ov, err := svc.Overview(f.date)
		if err != nil {
			return err
		}
		printOverview(w, ov)
	case f.agenda:
		for i, plan := range svc.Agenda() {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printDay(w, plan)
		}
	case f.upcoming >= 0:
		if err := schedule.CheckHorizon(f.upcoming); err != nil {
			return err
		}
		up, err := svc.Upcoming(f.upcoming)
		if err != nil {
			return err
		}
		printUpcoming(w, up)
	case f.summary:
		printSummary(w, svc.Summary())
	case f.export != "":
		return svc.WriteExport(f.export)
	case f.importFr != "":
		report, err := svc.ImportFrom(ctx, f.importFr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "imported %d weekly and %d dated events (%d rejected, %d unsupported)\n",
			report.Weekly, report.OneOffs, report.Rejected, report.Skipped)
	}
	return nil
}

func printDay(w io.Writer, plan schedule.DayPlan) {
	fmt.Fprintf(w, "%s (%s)\n", plan.Date, plan.Weekday)
	printEvents(w, plan.Events)
}

func printEvents(w io.Writer, events []model.ProjectedEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "  no events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ev := range events {
		note := ""
		if ev.Source != model.SourceWeekly {
			note = string(ev.Source)
		}
		fmt.Fprintf(tw, "  %s-%s\t%s\t[%s]\t%s\n", ev.Start, ev.End, ev.Name, ev.Category, note)
	}
	tw.Flush()
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  no open tasks")
		return
	}
	for _, t := range tasks {
		line := "  - " + t.Title
		if t.Deadline != "" {
			line += " (due " + t.Deadline + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printOverview(w io.Writer, ov schedule.Overview) {
	fmt.Fprintf(w, "%s\n", ov.Date)
	fmt.Fprintln(w, "Tasks:")
	printTasks(w, ov.Tasks)
	fmt.Fprintln(w, "Events:")
	printEvents(w, ov.Events)
}

func printUpcoming(w io.Writer, up schedule.Upcoming) {
	fmt.Fprintf(w, "%s .. %s\n", up.From, up.To)
	fmt.Fprintln(w, "Tasks:")
	printTasks(w, up.Tasks)
	fmt.Fprintln(w, "Events:")
	if len(up.Events) == 0 {
		fmt.Fprintln(w, "  no events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ev := range up.Events {
		fmt.Fprintf(tw, "  %s\t%s-%s\t%s\n", ev.Date, ev.Start, ev.End, ev.Name)
	}
	tw.Flush()
}

func printSummary(w io.Writer, totals []model.NameTotal) {
	if len(totals) == 0 {
		fmt.Fprintln(w, "timetable is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, formatMinutes(t.Minutes))
	}
	tw.Flush()
}

// formatMinutes renders 90 as "1h30m" and 45 as "45m".
func formatMinutes(m int) string {
	var b strings.Builder
	if h := m / 60; h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if rest := m % 60; rest > 0 || m == 0 {
		fmt.Fprintf(&b, "%dm", rest)
	}
	return b.String()
}
