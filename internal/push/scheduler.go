package push

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/store"
)

// DefaultWindow is how far from a user's notification time a sweep may
// still remind them.
const DefaultWindow = 30 * time.Minute

// Reminder notifies users of their due chores around their chosen time.
type Reminder struct {
	svc    *Service
	users  *store.UserStore
	chores *store.ChoreStore
	subs   *store.PushStore
	window time.Duration
	logger *slog.Logger
}

func NewReminder(db *sql.DB, svc *Service, window time.Duration, logger *slog.Logger) *Reminder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Reminder{
		svc:    svc,
		users:  store.NewUserStore(db),
		chores: store.NewChoreStore(db),
		subs:   store.NewPushStore(db),
		window: window,
		logger: logger.With("component", "reminder"),
	}
}

// SweepResult summarizes one reminder sweep.
type SweepResult struct {
	RunID    string `json:"run_id"`
	Checked  int    `json:"checked"`
	Reminded int    `json:"reminded"`
	Delivery
}

// ParseNotifTime parses an "HH:MM" UTC time of day into minutes after
// midnight.
func ParseNotifTime(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("notification time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("notification time %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("notification time %q: bad minute", s)
	}
	return h*60 + m, nil
}

// occurrence returns the instant of the daily notification time nearest to
// now, which may fall on the previous or next UTC day.
func occurrence(now time.Time, minutes int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	at := day.Add(time.Duration(minutes) * time.Minute)
	switch d := now.Sub(at); {
	case d > 12*time.Hour:
		at = at.AddDate(0, 0, 1)
	case d < -12*time.Hour:
		at = at.AddDate(0, 0, -1)
	}
	return at
}

func reminderPayload(name string, due int) Payload {
	body := fmt.Sprintf("You have %d pending chores due. Time to keep the streak!", due)
	if due == 1 {
		body = "You have 1 pending chore due. Time to keep the streak!"
	}
	return Payload{
		Title: fmt.Sprintf("Hey %s!", name),
		Body:  body,
		URL:   "/",
		Tag:   "chore-reminder",
	}
}

// Sweep reminds every user whose notification time lies within the window
// around now and who has pending chores due at or before now. Each user is
// reminded at most once per notification day. Delivery failures never abort
// the sweep.
func (r *Reminder) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	now = now.UTC()
	res := SweepResult{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", res.RunID)

	users, err := r.users.ListWithNotifTime(ctx)
	if err != nil {
		return res, fmt.Errorf("reminder sweep: %w", err)
	}

	for _, u := range users {
		minutes, err := ParseNotifTime(*u.NotifTime)
		if err != nil {
			logger.Warn("skipping user with malformed notification time", "user_id", u.ID, "error", err)
			continue
		}
		at := occurrence(now, minutes)
		if d := now.Sub(at); d > r.window || d < -r.window {
			continue
		}
		res.Checked++

		reminded, err := r.remind(ctx, u, now, at.Format(time.DateOnly))
		if err != nil {
			logger.Error("reminder failed", "user_id", u.ID, "error", err)
			continue
		}
		res.Delivery.add(reminded)
		if reminded.Sent > 0 {
			res.Reminded++
		}
	}

	if err := r.subs.CleanupReminders(ctx, now.AddDate(0, 0, -2).Format(time.DateOnly)); err != nil {
		logger.Warn("cleanup sent reminders", "error", err)
	}

	logger.Info("reminder sweep finished",
		"checked", res.Checked, "reminded", res.Reminded,
		"sent", res.Sent, "expired", res.Expired, "failed", res.Failed)
	return res, nil
}

func (r *Reminder) remind(ctx context.Context, u model.User, now time.Time, day string) (Delivery, error) {
	done, err := r.subs.WasReminded(ctx, u.ID, day)
	if err != nil || done {
		return Delivery{}, err
	}
	subs, err := r.subs.ListByUser(ctx, u.ID)
	if err != nil || len(subs) == 0 {
		return Delivery{}, err
	}
	due, err := r.chores.CountDueForUser(ctx, u.ID, now)
	if err != nil || due == 0 {
		return Delivery{}, err
	}

	d := r.svc.deliver(ctx, subs, reminderPayload(u.Name, due))
	if d.Sent > 0 {
		if _, err := r.subs.RecordReminder(ctx, u.ID, day); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Scheduler runs the reminder sweep on a fixed interval inside the server
// process, for deployments without an external cron.
type Scheduler struct {
	mu       sync.RWMutex
	reminder *Reminder
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(reminder *Reminder, interval time.Duration) *Scheduler {
	return &Scheduler{
		reminder: reminder,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the scheduler loop. A non-positive interval leaves it off.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.reminder.Sweep(ctx, s.now()); err != nil {
					s.reminder.logger.Error("scheduled sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
