package model

import "time"

const Day = 24 * time.Hour

// SubscriptionGrant is the paid entitlement of a user. Until only moves forward.
type SubscriptionGrant struct {
	UserID    int64
	Until     time.Time
	UpdatedAt time.Time
}

func (g *SubscriptionGrant) IsActive(now time.Time) bool {
	return g != nil && g.Until.After(now)
}

// ExtendFrom returns the new expiry when days are added at now.
func ExtendFrom(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(days) * Day)
}

type ReminderKind string

const (
	Reminder1d ReminderKind = "1d"
	Reminder2d ReminderKind = "2d"
)

// ReminderKinds lists the kinds in sweep order.
func ReminderKinds() []ReminderKind { return []ReminderKind{Reminder1d, Reminder2d} }

// Lead is how long before expiry the reminder fires.
func (k ReminderKind) Lead() time.Duration {
	switch k {
	case Reminder2d:
		return 2 * Day
	default:
		return Day
	}
}

// Window returns the half-open [from, to) expiry interval the kind covers.
func (k ReminderKind) Window(now time.Time, width time.Duration) (time.Time, time.Time) {
	from := now.Add(k.Lead())
	return from, from.Add(width)
}
