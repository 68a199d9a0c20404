package model

import "time"

// User is a household member. Points, level, streak and last completion are
// owned by the gamification engine; the rest is profile data.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Color           string     `json:"color"`
	Avatar          string     `json:"avatar"`
	Points          int        `json:"points"`
	Level           int        `json:"level"`
	Streak          int        `json:"streak"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	NotifTime       *string    `json:"notif_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Streak int    `json:"streak"`
}
