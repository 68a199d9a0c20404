package gamification

import (
	"testing"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 4, day, hour, 0, 0, 0, time.UTC)
}

func TestLevelLaw(t *testing.T) {
	tests := []struct {
		points, want int
	}{
		{0, 1}, {1, 1}, {499, 1}, {500, 2}, {999, 2}, {1000, 3}, {2499, 5}, {2500, 6},
	}
	for _, tt := range tests {
		if got := Level(tt.points); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestLevelHoldsAfterEveryCompletion(t *testing.T) {
	u := model.User{Level: 1}
	now := at(1, 9)
	for i := 0; i < 300; i++ {
		u = ApplyCompletion(u, 7, now)
		if u.Level != u.Points/500+1 {
			t.Fatalf("after %d completions points=%d level=%d", i+1, u.Points, u.Level)
		}
	}
	if u.Points != 2100 {
		t.Errorf("points = %d, want 2100", u.Points)
	}
}

func TestStreakLaw(t *testing.T) {
	tests := []struct {
		name   string
		last   *time.Time
		streak int
		now    time.Time
		want   int
	}{
		{"first ever", nil, 0, at(10, 9), 1},
		{"same day", ptr(at(10, 8)), 3, at(10, 23), 3},
		{"next day", ptr(at(10, 23)), 3, at(11, 0), 4},
		{"gap of two days", ptr(at(10, 9)), 3, at(12, 9), 1},
		{"long gap", ptr(at(1, 9)), 9, at(20, 9), 1},
		{"backdated", ptr(at(12, 9)), 4, at(10, 9), 1},
	}

	for _, tt := range tests {
		u := model.User{Streak: tt.streak, Level: 1, LastCompletedAt: tt.last}
		got := ApplyCompletion(u, 1, tt.now)
		if got.Streak != tt.want {
			t.Errorf("%s: streak = %d, want %d", tt.name, got.Streak, tt.want)
		}
		if got.LastCompletedAt == nil || !got.LastCompletedAt.Equal(tt.now) {
			t.Errorf("%s: last_completed_at = %v, want %v", tt.name, got.LastCompletedAt, tt.now)
		}
	}
}

func TestStreakUsesUTCCalendarDays(t *testing.T) {
	// 23:30 and 00:30 UTC are different calendar days even an hour apart
	est := time.FixedZone("EST", -5*3600)
	last := time.Date(2024, 4, 10, 18, 30, 0, 0, est) // 23:30 UTC
	now := time.Date(2024, 4, 10, 19, 30, 0, 0, est)  // 00:30 UTC on the 11th

	got := ApplyCompletion(model.User{Streak: 2, LastCompletedAt: &last}, 1, now)
	if got.Streak != 3 {
		t.Errorf("streak = %d, want 3", got.Streak)
	}
}

func TestApplyCompletionDishes(t *testing.T) {
	u := model.User{ID: 1, Name: "U1", Points: 10, Level: 1}
	got := ApplyCompletion(u, 5, at(3, 19))
	if got.Points != 15 {
		t.Errorf("points = %d, want 15", got.Points)
	}
	if u.Points != 10 {
		t.Error("input user mutated")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	users := []model.User{
		{ID: 1, Name: "Carol", Points: 50, Streak: 1},
		{ID: 2, Name: "Bob", Points: 100, Streak: 0},
		{ID: 3, Name: "Alice", Points: 50, Streak: 4},
		{ID: 4, Name: "Dave", Points: 50, Streak: 1},
	}

	board := Leaderboard(users)
	wantIDs := []int64{2, 3, 1, 4}
	for i, id := range wantIDs {
		if board[i].UserID != id {
			t.Errorf("board[%d] = user %d, want %d", i, board[i].UserID, id)
		}
		if board[i].Rank != i+1 {
			t.Errorf("board[%d].Rank = %d, want %d", i, board[i].Rank, i+1)
		}
	}
	if users[0].ID != 1 {
		t.Error("input slice reordered")
	}
}

func ptr(t time.Time) *time.Time { return &t }
