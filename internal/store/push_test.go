package store

import (
	"context"
	"testing"
)

func setupPushTestDB(t *testing.T) (*PushStore, int64, int64) {
	t.Helper()
	db := setupTestDB(t)
	us := NewUserStore(db)
	return NewPushStore(db), createUser(t, us, "Alice"), createUser(t, us, "Bob")
}

func TestCreateSubscription(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)

	sub, err := ps.CreateSubscription(context.Background(), alice, "https://push.example.com/1", "p256dh-key", "auth-key")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	ps, alice, bob := setupPushTestDB(t)
	ctx := context.Background()

	first, _ := ps.CreateSubscription(ctx, alice, "https://push.example.com/1", "key1", "auth1")
	second, err := ps.CreateSubscription(ctx, bob, "https://push.example.com/1", "key2", "auth2")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d", second.ID, first.ID)
	}
	if second.UserID != bob || second.P256dh != "key2" {
		t.Errorf("subscription = %+v, want moved to bob with new keys", second)
	}

	subs, _ := ps.ListByUser(ctx, alice)
	if len(subs) != 0 {
		t.Errorf("alice has %d subscriptions, want 0", len(subs))
	}
}

func TestDeleteSubscriptions(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)
	ctx := context.Background()

	ps.CreateSubscription(ctx, alice, "https://push.example.com/1", "k", "a")
	ps.CreateSubscription(ctx, alice, "https://push.example.com/2", "k", "a")
	ps.CreateSubscription(ctx, alice, "https://push.example.com/3", "k", "a")

	if err := ps.DeleteByEndpoint(ctx, "https://push.example.com/1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ := ps.ListByUser(ctx, alice)
	if len(subs) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(subs))
	}

	n, err := ps.DeleteByUser(ctx, alice)
	if err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
}

func TestReminderDedup(t *testing.T) {
	ps, alice, bob := setupPushTestDB(t)
	ctx := context.Background()

	sent, err := ps.WasReminded(ctx, alice, "2024-05-10")
	if err != nil {
		t.Fatalf("was reminded: %v", err)
	}
	if sent {
		t.Error("expected no reminder yet")
	}

	recorded, err := ps.RecordReminder(ctx, alice, "2024-05-10")
	if err != nil {
		t.Fatalf("record reminder: %v", err)
	}
	if !recorded {
		t.Error("expected first record to insert")
	}
	recorded, _ = ps.RecordReminder(ctx, alice, "2024-05-10")
	if recorded {
		t.Error("expected duplicate record to be ignored")
	}

	sent, _ = ps.WasReminded(ctx, alice, "2024-05-10")
	if !sent {
		t.Error("expected reminder recorded")
	}
	sent, _ = ps.WasReminded(ctx, bob, "2024-05-10")
	if sent {
		t.Error("expected bob unaffected")
	}

	if err := ps.CleanupReminders(ctx, "2024-05-11"); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sent, _ = ps.WasReminded(ctx, alice, "2024-05-10")
	if sent {
		t.Error("expected old reminder cleaned up")
	}
}
