package model

import "time"

type PushSubscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// ReminderCandidate is a user eligible for the reminder sweep together with
// their delivery endpoints and the number of instances due.
type ReminderCandidate struct {
	User          User
	Subscriptions []PushSubscription
	DueCount      int
}
