package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

func setupChoreTestDB(t *testing.T) (*ChoreStore, *UserStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewChoreStore(db), NewUserStore(db)
}

func createChore(t *testing.T, cs *ChoreStore, title string, assignees ...int64) *model.Chore {
	t.Helper()
	c := &model.Chore{
		Title:       title,
		Icon:        model.IconHelp,
		Frequency:   model.FrequencyWeekly,
		Difficulty:  2,
		AssigneeIDs: assignees,
	}
	if err := cs.Create(context.Background(), c); err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestChoreCreateKeepsAssigneeOrder(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	b := createUser(t, us, "Bob")
	c := createUser(t, us, "Carol")

	chore := createChore(t, cs, "Dishes", c, a, b)
	if chore.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	got, err := cs.GetByID(ctx, chore.ID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	want := []int64{c, a, b}
	if len(got.AssigneeIDs) != len(want) {
		t.Fatalf("assignees = %v, want %v", got.AssigneeIDs, want)
	}
	for i := range want {
		if got.AssigneeIDs[i] != want[i] {
			t.Errorf("assignees[%d] = %d, want %d", i, got.AssigneeIDs[i], want[i])
		}
	}
}

func TestChoreCustomInterval(t *testing.T) {
	cs, _ := setupChoreTestDB(t)
	ctx := context.Background()

	interval := 3
	c := &model.Chore{Title: "Plants", Icon: model.IconHelp, Frequency: model.FrequencyCustom, CustomInterval: &interval}
	if err := cs.Create(ctx, c); err != nil {
		t.Fatalf("create chore: %v", err)
	}
	got, _ := cs.GetByID(ctx, c.ID)
	if got.CustomInterval == nil || *got.CustomInterval != 3 {
		t.Errorf("custom_interval = %v, want 3", got.CustomInterval)
	}
}

func TestChoreUpdateReplacesAssignees(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	b := createUser(t, us, "Bob")

	c := createChore(t, cs, "Trash", a)
	c.Title = "Take out trash"
	c.AssigneeIDs = []int64{b, a}
	if err := cs.Update(ctx, c); err != nil {
		t.Fatalf("update chore: %v", err)
	}

	got, _ := cs.GetByID(ctx, c.ID)
	if got.Title != "Take out trash" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.AssigneeIDs) != 2 || got.AssigneeIDs[0] != b {
		t.Errorf("assignees = %v, want [%d %d]", got.AssigneeIDs, b, a)
	}
}

func TestChoreDeleteCascades(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	c := createChore(t, cs, "Dishes", a)

	in := &model.ChoreInstance{ChoreID: c.ID, AssignedUserID: &a, DueDate: time.Now().UTC()}
	if err := cs.CreateInstance(ctx, in); err != nil {
		t.Fatalf("create instance: %v", err)
	}

	if err := cs.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	got, err := cs.GetInstance(ctx, in.ID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if got != nil {
		t.Error("expected instance to be deleted with its chore")
	}
}

func TestInstanceLifecycle(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	c := createChore(t, cs, "Dishes", a)

	due := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	in := &model.ChoreInstance{ChoreID: c.ID, AssignedUserID: &a, DueDate: due}
	if err := cs.CreateInstance(ctx, in); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if in.Status != model.StatusPending {
		t.Errorf("status = %q, want PENDING", in.Status)
	}

	first, err := cs.FirstPendingInstance(ctx, c.ID)
	if err != nil {
		t.Fatalf("first pending: %v", err)
	}
	if first == nil || first.ID != in.ID {
		t.Fatalf("first pending = %v, want instance %d", first, in.ID)
	}
	if !first.DueDate.Equal(due) {
		t.Errorf("due_date = %v, want %v", first.DueDate, due)
	}

	at := due.Add(time.Hour)
	changed, err := cs.MarkCompleted(ctx, in.ID, at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !changed {
		t.Error("expected first completion to change the row")
	}
	changed, err = cs.MarkCompleted(ctx, in.ID, at)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if changed {
		t.Error("expected second completion to be a no-op")
	}

	got, _ := cs.GetInstance(ctx, in.ID)
	if got.Status != model.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("status = %q completed_at = %v", got.Status, got.CompletedAt)
	}

	if err := cs.SetInstanceStatus(ctx, in.ID, model.StatusPending, nil); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ = cs.GetInstance(ctx, in.ID)
	if got.Status != model.StatusPending || got.CompletedAt != nil {
		t.Errorf("after revert status = %q completed_at = %v", got.Status, got.CompletedAt)
	}
}

func TestInstanceClearAssignee(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	c := createChore(t, cs, "Dishes")

	in := &model.ChoreInstance{ChoreID: c.ID, AssignedUserID: &a, DueDate: time.Now().UTC()}
	if err := cs.CreateInstance(ctx, in); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if err := cs.SetInstanceAssignee(ctx, in.ID, nil); err != nil {
		t.Fatalf("set assignee: %v", err)
	}
	got, _ := cs.GetInstance(ctx, in.ID)
	if got.AssignedUserID != nil {
		t.Errorf("assigned_user_id = %d, want nil", *got.AssignedUserID)
	}
}

func TestListDetailsFilters(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	b := createUser(t, us, "Bob")
	c := createChore(t, cs, "Dishes", a, b)

	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	mk := func(user int64, due time.Time, status model.InstanceStatus) {
		in := &model.ChoreInstance{ChoreID: c.ID, AssignedUserID: &user, DueDate: due, Status: status}
		if err := cs.CreateInstance(ctx, in); err != nil {
			t.Fatalf("create instance: %v", err)
		}
	}
	mk(a, base.AddDate(0, 0, -1), model.StatusMissed)
	mk(a, base, model.StatusPending)
	mk(a, base.AddDate(0, 0, 3), model.StatusPending)
	mk(b, base, model.StatusPending)
	mk(a, base.AddDate(0, 1, 0), model.StatusCompleted)

	tomorrow := base.AddDate(0, 0, 1)
	mine, err := cs.ListDetails(ctx, InstanceFilter{
		AssignedUserID: &a,
		Statuses:       []model.InstanceStatus{model.StatusPending, model.StatusMissed},
		DueBefore:      &tomorrow,
	})
	if err != nil {
		t.Fatalf("list details: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d instances, want 2", len(mine))
	}
	if mine[0].ChoreTitle != "Dishes" || mine[0].AssigneeName != "Alice" {
		t.Errorf("detail = %q/%q", mine[0].ChoreTitle, mine[0].AssigneeName)
	}
	if !mine[0].DueDate.Before(mine[1].DueDate) {
		t.Error("expected ascending due dates")
	}

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	month, err := cs.ListDetails(ctx, InstanceFilter{DueFrom: &from, DueBefore: &to})
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(month) != 4 {
		t.Errorf("got %d instances in May, want 4", len(month))
	}

	limited, err := cs.ListDetails(ctx, InstanceFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d, want 1", len(limited))
	}
}

func TestCountDueForUser(t *testing.T) {
	cs, us := setupChoreTestDB(t)
	ctx := context.Background()
	a := createUser(t, us, "Alice")
	c := createChore(t, cs, "Dishes", a)

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	for _, due := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)} {
		in := &model.ChoreInstance{ChoreID: c.ID, AssignedUserID: &a, DueDate: due}
		if err := cs.CreateInstance(ctx, in); err != nil {
			t.Fatalf("create instance: %v", err)
		}
	}

	n, err := cs.CountDueForUser(ctx, a, now)
	if err != nil {
		t.Fatalf("count due: %v", err)
	}
	if n != 2 {
		t.Errorf("due count = %d, want 2", n)
	}
}
