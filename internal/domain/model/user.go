package model

import "time"

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

// User is the bookkeeping record kept for every chat partner.
type User struct {
	TelegramID   int64
	Username     string
	LanguageCode string
	Status       UserStatus
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
}

// StatusFromMembership maps a platform chat-member status to ours.
func StatusFromMembership(s string) UserStatus {
	switch s {
	case "kicked", "left":
		return UserBlocked
	default:
		return UserActive
	}
}
