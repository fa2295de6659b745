package alarm

import (
	"time"

	"github.com/adiazny/calalarm-lambda/internal/pkg/calendar"
)

type Summary struct {
	Start time.Time
	End   time.Time
	Title string
}

type Report struct {
	GeneratedAt time.Time
	// Events holds zero or one entry.
	Events []Summary
}

// Events without reminders alarm at their start.
func ResolveAlarmTime(e *calendar.Event) (time.Time, bool) {
	if e == nil {
		return time.Time{}, false
	}

	lead := 0
	if len(e.ReminderMinutes) > 0 {
		lead = e.ReminderMinutes[0]
	}

	return e.Start.Add(-time.Duration(lead) * time.Minute), true
}

// Ties go to the event listed first.
func FindEarliest(events []*calendar.Event) *calendar.Event {
	var (
		first     *calendar.Event
		firstTime time.Time
	)

	for _, e := range events {
		if e == nil || !e.Status.Attending() {
			continue
		}

		at, ok := ResolveAlarmTime(e)
		if !ok {
			continue
		}

		if first == nil || at.Before(firstTime) {
			first = e
			firstTime = at
		}
	}

	return first
}

func SelectNext(now time.Time, today, tomorrow []*calendar.Event) Report {
	event := FindEarliest(tomorrow)

	if candidate := FindEarliest(today); candidate != nil {
		if at, ok := ResolveAlarmTime(candidate); ok && at.After(now) {
			event = candidate
		}
	}

	report := Report{
		GeneratedAt: now,
		Events:      make([]Summary, 0, 1),
	}

	if event != nil {
		report.Events = append(report.Events, Summary{
			Start: event.Start,
			End:   event.End,
			Title: event.Title,
		})
	}

	return report
}
