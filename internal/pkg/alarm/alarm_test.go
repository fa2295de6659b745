package alarm_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/adiazny/calalarm-lambda/internal/pkg/alarm"
	"github.com/adiazny/calalarm-lambda/internal/pkg/calendar"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestResolveAlarmTime(t *testing.T) {
	start := at(t, "2024-01-01 09:00")

	tests := []struct {
		name   string
		event  *calendar.Event
		want   time.Time
		wantOK bool
	}{
		{
			name:   "no reminders fires at start",
			event:  &calendar.Event{Start: start, ReminderMinutes: []int{}},
			want:   start,
			wantOK: true,
		},
		{
			name:   "nil reminders fires at start",
			event:  &calendar.Event{Start: start},
			want:   start,
			wantOK: true,
		},
		{
			name:   "first reminder only",
			event:  &calendar.Event{Start: start, ReminderMinutes: []int{15, 30}},
			want:   start.Add(-15 * time.Minute),
			wantOK: true,
		},
		{
			name:   "nil event is unresolvable",
			event:  nil,
			want:   time.Time{},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got, ok := alarm.ResolveAlarmTime(tt.event)

			if ok != tt.wantOK {
				t.Errorf("ResolveAlarmTime() ok = %v, want %v", ok, tt.wantOK)
				return
			}

			if !got.Equal(tt.want) {
				t.Errorf("ResolveAlarmTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindEarliest(t *testing.T) {
	declinedEarly := &calendar.Event{Title: "declined", Start: at(t, "2024-01-01 06:00"), Status: calendar.StatusDeclined}
	acceptedLate := &calendar.Event{Title: "accepted", Start: at(t, "2024-01-01 10:00"), Status: calendar.StatusAccepted}
	tieFirst := &calendar.Event{Title: "first", Start: at(t, "2024-01-01 09:00"), Status: calendar.StatusAccepted}
	tieSecond := &calendar.Event{Title: "second", Start: at(t, "2024-01-01 09:00"), Status: calendar.StatusAccepted}
	reminderWins := &calendar.Event{Title: "reminder", Start: at(t, "2024-01-01 09:30"), Status: calendar.StatusOwner, ReminderMinutes: []int{60}}
	tentative := &calendar.Event{Title: "tentative", Start: at(t, "2024-01-01 11:00"), Status: calendar.StatusTentative}
	invited := &calendar.Event{Title: "invited", Start: at(t, "2024-01-01 05:00"), Status: calendar.StatusNoResponse}
	none := &calendar.Event{Title: "none", Start: at(t, "2024-01-01 04:00"), Status: calendar.StatusNone}

	tests := []struct {
		name   string
		events []*calendar.Event
		want   *calendar.Event
	}{
		{
			name:   "empty input",
			events: []*calendar.Event{},
			want:   nil,
		},
		{
			name:   "declined earliest is skipped",
			events: []*calendar.Event{declinedEarly, acceptedLate},
			want:   acceptedLate,
		},
		{
			name:   "tie keeps input order",
			events: []*calendar.Event{tieFirst, tieSecond},
			want:   tieFirst,
		},
		{
			name:   "tie keeps input order reversed",
			events: []*calendar.Event{tieSecond, tieFirst},
			want:   tieSecond,
		},
		{
			name:   "reminder lead time moves alarm earlier",
			events: []*calendar.Event{tieFirst, reminderWins},
			want:   reminderWins,
		},
		{
			name:   "tentative is attending",
			events: []*calendar.Event{invited, tentative, none},
			want:   tentative,
		},
		{
			name:   "only non attending events",
			events: []*calendar.Event{declinedEarly, invited, none},
			want:   nil,
		},
		{
			name:   "nil entries are skipped",
			events: []*calendar.Event{nil, acceptedLate, nil},
			want:   acceptedLate,
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := alarm.FindEarliest(tt.events)

			if got != tt.want {
				t.Errorf("FindEarliest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectNext(t *testing.T) {
	now := at(t, "2024-01-01 08:00")

	todayPast := &calendar.Event{
		Title:           "standup",
		Start:           now.Add(14 * time.Minute),
		End:             now.Add(30 * time.Minute),
		Status:          calendar.StatusAccepted,
		ReminderMinutes: []int{15},
	}
	todayFuture := &calendar.Event{
		Title:           "dentist",
		Start:           now.Add(15 * time.Minute),
		End:             now.Add(time.Hour),
		Status:          calendar.StatusOwner,
		ReminderMinutes: []int{10},
	}
	todayNow := &calendar.Event{
		Title:  "right now",
		Start:  now,
		End:    now.Add(time.Hour),
		Status: calendar.StatusAccepted,
	}
	tomorrow := &calendar.Event{
		Title:  "flight",
		Start:  at(t, "2024-01-02 06:00"),
		End:    at(t, "2024-01-02 09:00"),
		Status: calendar.StatusOwner,
	}
	declinedTomorrow := &calendar.Event{
		Title:  "declined",
		Start:  at(t, "2024-01-02 05:00"),
		End:    at(t, "2024-01-02 06:00"),
		Status: calendar.StatusDeclined,
	}

	summaryOf := func(e *calendar.Event) []alarm.Summary {
		return []alarm.Summary{{Start: e.Start, End: e.End, Title: e.Title}}
	}

	tests := []struct {
		name     string
		today    []*calendar.Event
		tomorrow []*calendar.Event
		want     alarm.Report
	}{
		{
			name:     "past alarm today falls through to tomorrow",
			today:    []*calendar.Event{todayPast},
			tomorrow: []*calendar.Event{tomorrow},
			want:     alarm.Report{GeneratedAt: now, Events: summaryOf(tomorrow)},
		},
		{
			name:     "future alarm today wins",
			today:    []*calendar.Event{todayFuture},
			tomorrow: []*calendar.Event{tomorrow},
			want:     alarm.Report{GeneratedAt: now, Events: summaryOf(todayFuture)},
		},
		{
			name:     "alarm exactly now is stale",
			today:    []*calendar.Event{todayNow},
			tomorrow: []*calendar.Event{tomorrow},
			want:     alarm.Report{GeneratedAt: now, Events: summaryOf(tomorrow)},
		},
		{
			name:     "no attending events either day",
			today:    []*calendar.Event{},
			tomorrow: []*calendar.Event{declinedTomorrow},
			want:     alarm.Report{GeneratedAt: now, Events: []alarm.Summary{}},
		},
		{
			name:     "past alarm today and nothing tomorrow",
			today:    []*calendar.Event{todayPast},
			tomorrow: nil,
			want:     alarm.Report{GeneratedAt: now, Events: []alarm.Summary{}},
		},
		{
			name:     "earliest today is past even though a later one is future",
			today:    []*calendar.Event{todayFuture, todayPast},
			tomorrow: []*calendar.Event{tomorrow},
			want:     alarm.Report{GeneratedAt: now, Events: summaryOf(tomorrow)},
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := alarm.SelectNext(now, tt.today, tt.tomorrow)

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectNext() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectNext_MorningAfterEarlyMeeting(t *testing.T) {
	now := at(t, "2024-01-01 08:00")

	today := []*calendar.Event{{
		Title:           "early call",
		Start:           at(t, "2024-01-01 07:30"),
		End:             at(t, "2024-01-01 08:30"),
		Status:          calendar.StatusAccepted,
		ReminderMinutes: []int{15},
	}}
	tomorrow := []*calendar.Event{{
		Title:           "gym",
		Start:           at(t, "2024-01-02 06:00"),
		End:             at(t, "2024-01-02 07:00"),
		Status:          calendar.StatusOwner,
		ReminderMinutes: []int{},
	}}

	report := alarm.SelectNext(now, today, tomorrow)

	if len(report.Events) != 1 {
		t.Fatalf("SelectNext() returned %d events, want 1", len(report.Events))
	}

	got := report.Events[0]
	if got.Title != "gym" || got.Start.Format("2006-01-02 15:04:05") != "2024-01-02 06:00:00" {
		t.Errorf("SelectNext() event = %+v, want gym at 2024-01-02 06:00:00", got)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Errorf("SelectNext() GeneratedAt = %v, want %v", report.GeneratedAt, now)
	}
}
