package calendar

import (
	"context"
	"errors"
	"time"
)

var ErrNoAccess = errors.New("no access to calendar")

type AttendanceStatus int

const (
	StatusNone AttendanceStatus = iota
	StatusOwner
	StatusAccepted
	StatusTentative
	StatusDeclined
	StatusNoResponse
)

var AttendingStatuses = map[AttendanceStatus]struct{}{
	StatusOwner:     {},
	StatusAccepted:  {},
	StatusTentative: {},
}

func (s AttendanceStatus) Attending() bool {
	_, ok := AttendingStatuses[s]
	return ok
}

func (s AttendanceStatus) String() string {
	switch s {
	case StatusOwner:
		return "owner"
	case StatusAccepted:
		return "accepted"
	case StatusTentative:
		return "tentative"
	case StatusDeclined:
		return "declined"
	case StatusNoResponse:
		return "no-response"
	default:
		return "none"
	}
}

type Event struct {
	Start  time.Time
	End    time.Time
	Title  string
	Status AttendanceStatus
	// Popup reminder offsets in provider order.
	ReminderMinutes []int
}

// Reader lists the events of a calendar that overlap [from, to).
type Reader interface {
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*Event, error)
}
