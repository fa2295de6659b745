package alarm

import "time"

const day = 24 * time.Hour

type Clock interface {
	Now() time.Time
}

type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

type Window struct {
	todayStart time.Time
}

func NewWindow(now time.Time) Window {
	return Window{todayStart: StartOfDay(now)}
}

func (w Window) Today() Interval {
	return Interval{Start: w.todayStart, End: w.todayStart.Add(day)}
}

func (w Window) Tomorrow() Interval {
	start := w.todayStart.Add(day)
	return Interval{Start: start, End: start.Add(day)}
}
