// Package gamification turns chore completions into points, levels and
// streaks.
package gamification

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

// PointsPerLevel is the number of points needed to climb one level.
const PointsPerLevel = 500

// Level returns the level for a point total. Level 1 starts at 0 points.
func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// ApplyCompletion returns u updated for a completion worth difficulty points
// at now. Streaks count UTC calendar days: a second completion on the same
// day leaves the streak alone, the next day extends it and any longer gap
// starts over at 1.
func ApplyCompletion(u model.User, difficulty int, now time.Time) model.User {
	if difficulty > 0 {
		u.Points += difficulty
	}
	u.Level = Level(u.Points)

	if u.LastCompletedAt == nil {
		u.Streak = 1
	} else {
		switch gap := daysBetween(*u.LastCompletedAt, now); {
		case gap == 0:
			if u.Streak < 1 {
				u.Streak = 1
			}
		case gap == 1:
			u.Streak++
		default:
			u.Streak = 1
		}
	}

	at := now.UTC()
	u.LastCompletedAt = &at
	return u
}

// daysBetween counts calendar-day boundaries from a to b in UTC. Negative
// gaps (clock skew, backdated completions) are treated as a reset.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	n := int(db.Sub(da).Hours() / 24)
	if n < 0 {
		return 2
	}
	return n
}

// Leaderboard ranks users by points, breaking ties by streak and then name.
// Ranks are 1-based and unique.
func Leaderboard(users []model.User) []model.LeaderboardEntry {
	sorted := slices.Clone(users)
	slices.SortStableFunc(sorted, func(a, b model.User) int {
		if a.Points != b.Points {
			return cmp.Compare(b.Points, a.Points)
		}
		if a.Streak != b.Streak {
			return cmp.Compare(b.Streak, a.Streak)
		}
		return strings.Compare(a.Name, b.Name)
	})

	entries := make([]model.LeaderboardEntry, 0, len(sorted))
	for i, u := range sorted {
		entries = append(entries, model.LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Color:  u.Color,
			Avatar: u.Avatar,
			Points: u.Points,
			Level:  u.Level,
			Streak: u.Streak,
		})
	}
	return entries
}
