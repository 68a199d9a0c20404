package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/choreledger/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, us *UserStore, name string) int64 {
	t.Helper()
	u, err := us.Create(context.Background(), name, "#2563eb", "")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.Create(context.Background(), "Alice", "#ff0000", "alice.png")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.Points != 0 || u.Level != 1 || u.Streak != 0 {
		t.Errorf("progress = %d/%d/%d, want 0/1/0", u.Points, u.Level, u.Streak)
	}
	if u.LastCompletedAt != nil {
		t.Error("expected nil last_completed_at")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u != nil {
		t.Error("expected nil for non-existent user")
	}
}

func TestUserUpdateProfile(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()
	id := createUser(t, us, "Alice")

	notif := "20:00"
	u, err := us.UpdateProfile(ctx, id, "Alicia", "#00ff00", "a.png", &notif)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.Name != "Alicia" {
		t.Errorf("name = %q, want %q", u.Name, "Alicia")
	}
	if u.NotifTime == nil || *u.NotifTime != "20:00" {
		t.Errorf("notif_time = %v, want 20:00", u.NotifTime)
	}

	u, err = us.UpdateProfile(ctx, id, "Alicia", "#00ff00", "a.png", nil)
	if err != nil {
		t.Fatalf("clear notif time: %v", err)
	}
	if u.NotifTime != nil {
		t.Errorf("notif_time = %v, want nil", *u.NotifTime)
	}
}

func TestUserUpdateProgress(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()
	id := createUser(t, us, "Alice")

	u, _ := us.GetByID(ctx, id)
	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	u.Points = 130
	u.Level = 2
	u.Streak = 3
	u.LastCompletedAt = &at
	if err := us.UpdateProgress(ctx, u); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	got, err := us.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Points != 130 || got.Level != 2 || got.Streak != 3 {
		t.Errorf("progress = %d/%d/%d, want 130/2/3", got.Points, got.Level, got.Streak)
	}
	if got.LastCompletedAt == nil || !got.LastCompletedAt.Equal(at) {
		t.Errorf("last_completed_at = %v, want %v", got.LastCompletedAt, at)
	}
}

func TestUserListByPoints(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	set := func(name string, points, streak int) {
		id := createUser(t, us, name)
		u, _ := us.GetByID(ctx, id)
		u.Points, u.Streak = points, streak
		if err := us.UpdateProgress(ctx, u); err != nil {
			t.Fatalf("update progress: %v", err)
		}
	}
	set("Carol", 50, 1)
	set("Bob", 100, 1)
	set("Alice", 50, 4)
	set("Dave", 50, 1)

	users, err := us.ListByPoints(ctx)
	if err != nil {
		t.Fatalf("list by points: %v", err)
	}
	want := []string{"Bob", "Alice", "Carol", "Dave"}
	for i, name := range want {
		if users[i].Name != name {
			t.Errorf("users[%d] = %q, want %q", i, users[i].Name, name)
		}
	}
}

func TestUserAllExist(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	b := createUser(t, us, "Bob")

	ok, err := us.AllExist(ctx, []int64{a, b})
	if err != nil {
		t.Fatalf("all exist: %v", err)
	}
	if !ok {
		t.Error("expected both users to exist")
	}

	ok, err = us.AllExist(ctx, []int64{a, 9999})
	if err != nil {
		t.Fatalf("all exist: %v", err)
	}
	if ok {
		t.Error("expected missing user to be reported")
	}
}

func TestUserListWithNotifTime(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	createUser(t, us, "Bob")

	notif := "08:00"
	if _, err := us.UpdateProfile(ctx, a, "Alice", "", "", &notif); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	users, err := us.ListWithNotifTime(ctx)
	if err != nil {
		t.Fatalf("list with notif time: %v", err)
	}
	if len(users) != 1 || users[0].ID != a {
		t.Fatalf("got %d users, want only Alice", len(users))
	}
}
