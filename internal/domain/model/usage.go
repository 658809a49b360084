package model

import "time"

// UsageLimits caps free-tier turns. A limit <= 0 disables that dimension.
type UsageLimits struct {
	Daily int
	Total int
}

type UsageCounter struct {
	UserID    int64
	Day       time.Time // start of the counting day
	DailyUsed int
	TotalUsed int
}

// Unlimited is returned by Remaining for a disabled dimension.
const Unlimited = -1

// Remaining returns the turns left for the given day. daily_used is
// considered zero when the counter belongs to an earlier calendar date.
func (c UsageCounter) Remaining(l UsageLimits, day time.Time) (daily, total int) {
	dailyUsed := c.DailyUsed
	if CalendarDay(c.Day).Before(CalendarDay(day)) {
		dailyUsed = 0
	}
	daily, total = Unlimited, Unlimited
	if l.Daily > 0 {
		daily = max(l.Daily-dailyUsed, 0)
	}
	if l.Total > 0 {
		total = max(l.Total-c.TotalUsed, 0)
	}
	return daily, total
}

// Allows reports whether one more turn fits within the limits on day.
func (c UsageCounter) Allows(l UsageLimits, day time.Time) bool {
	daily, total := c.Remaining(l, day)
	return daily != 0 && total != 0
}

// DayStart truncates t to midnight in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CalendarDay maps t to midnight UTC of the date t shows in its own zone,
// which is how a stored DATE reads back. Compare days through it, never
// as instants.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
