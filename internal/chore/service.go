// Package chore runs the chore lifecycle: creating chores, completing and
// un-completing their instances, and the dashboard and calendar read views.
package chore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/choreledger/internal/database"
	"github.com/dukerupert/choreledger/internal/gamification"
	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/recurrence"
	"github.com/dukerupert/choreledger/internal/store"
)

// NextUpLimit caps the dashboard's list of upcoming instances.
const NextUpLimit = 5

// Service manages chores, their instances and completions.
type Service struct {
	db        *sql.DB
	users     *store.UserStore
	chores    *store.ChoreStore
	transfers *store.TransferStore
	logger    *slog.Logger
}

// NewService returns a Service backed by db.
func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		users:     store.NewUserStore(db),
		chores:    store.NewChoreStore(db),
		transfers: store.NewTransferStore(db),
		logger:    logger.With("component", "chore"),
	}
}

// Input is the editable shape of a chore. FirstDueDate sets the due date of
// the first instance on create, and retargets the current pending instance
// on update.
type Input struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Icon           string     `json:"icon"`
	Frequency      string     `json:"frequency"`
	CustomInterval *int       `json:"custom_interval"`
	Difficulty     int        `json:"difficulty"`
	AssigneeIDs    []int64    `json:"assignee_ids"`
	FirstDueDate   *time.Time `json:"first_due_date"`
}

func (s *Service) validate(ctx context.Context, in Input) (model.Chore, error) {
	var c model.Chore

	c.Title = strings.TrimSpace(in.Title)
	if c.Title == "" {
		return c, model.Invalid("title", "is required")
	}
	c.Description = strings.TrimSpace(in.Description)

	freq, err := model.ParseFrequency(in.Frequency)
	if err != nil {
		return c, model.Invalid("frequency", err.Error())
	}
	c.Frequency = freq

	if freq == model.FrequencyCustom {
		if in.CustomInterval == nil || *in.CustomInterval <= 0 {
			return c, model.Invalid("custom_interval", "must be a positive number of days for CUSTOM chores")
		}
		v := *in.CustomInterval
		c.CustomInterval = &v
	}

	if in.Difficulty < 0 {
		return c, model.Invalid("difficulty", "must not be negative")
	}
	c.Difficulty = in.Difficulty

	icon, ok := model.ParseIcon(in.Icon)
	if !ok && in.Icon != "" {
		s.logger.Debug("unknown icon replaced", "icon", in.Icon, "fallback", icon)
	}
	c.Icon = icon

	c.AssigneeIDs = append([]int64{}, in.AssigneeIDs...)
	exist, err := s.users.AllExist(ctx, c.AssigneeIDs)
	if err != nil {
		return c, err
	}
	if !exist {
		return c, model.Invalid("assignee_ids", "references an unknown user")
	}
	return c, nil
}

// CreateChore stores a chore and its first pending instance, assigned to
// the first entry of the rotation and due at FirstDueDate or now.
func (s *Service) CreateChore(ctx context.Context, in Input, now time.Time) (*model.ChoreWithNext, error) {
	c, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	first := &model.ChoreInstance{DueDate: now.UTC(), Status: model.StatusPending}
	if in.FirstDueDate != nil {
		first.DueDate = in.FirstDueDate.UTC()
	}
	if len(c.AssigneeIDs) > 0 {
		a := c.AssigneeIDs[0]
		first.AssignedUserID = &a
	}

	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		chores := s.chores.WithTx(tx)
		if err := chores.Create(ctx, &c); err != nil {
			return err
		}
		first.ChoreID = c.ID
		return chores.CreateInstance(ctx, first)
	})
	if err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}

	s.logger.Info("chore created", "chore_id", c.ID, "title", c.Title, "frequency", c.Frequency)
	return &model.ChoreWithNext{Chore: c, NextInstance: first}, nil
}

// UpdateChore rewrites a chore's definition. Existing instances keep their
// assignee; the rotation applies from the next completion.
func (s *Service) UpdateChore(ctx context.Context, id int64, in Input) (*model.ChoreWithNext, error) {
	existing, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	if existing == nil {
		return nil, model.ErrChoreNotFound
	}

	c, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt

	var next *model.ChoreInstance
	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		chores := s.chores.WithTx(tx)
		if err := chores.Update(ctx, &c); err != nil {
			return err
		}
		pending, err := chores.FirstPendingInstance(ctx, id)
		if err != nil {
			return err
		}
		if pending != nil && in.FirstDueDate != nil {
			if err := chores.SetInstanceDueDate(ctx, pending.ID, *in.FirstDueDate); err != nil {
				return err
			}
			pending.DueDate = in.FirstDueDate.UTC()
		}
		next = pending
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update chore %d: %w", id, err)
	}

	s.logger.Info("chore updated", "chore_id", id)
	return &model.ChoreWithNext{Chore: c, NextInstance: next}, nil
}

// DeleteChore removes a chore with all its instances and their transfer
// requests.
func (s *Service) DeleteChore(ctx context.Context, id int64) error {
	existing, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	if existing == nil {
		return model.ErrChoreNotFound
	}
	if err := s.chores.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete chore %d: %w", id, err)
	}
	s.logger.Info("chore deleted", "chore_id", id)
	return nil
}

// Completion is the outcome of completing an instance.
type Completion struct {
	Instance *model.ChoreInstance `json:"instance"`
	Next     *model.ChoreInstance `json:"next_instance"`
	User     *model.User          `json:"user,omitempty"`
	// AlreadyCompleted is set when the call changed nothing.
	AlreadyCompleted bool `json:"already_completed"`
}

// CompleteInstance marks the instance completed, schedules the next one and
// credits the assignee, all in one transaction. Completing an instance that
// is already completed is a no-op, so a double submit neither creates a
// second next instance nor awards points twice.
func (s *Service) CompleteInstance(ctx context.Context, instanceID int64, now time.Time) (*Completion, error) {
	now = now.UTC()
	res := &Completion{}

	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		chores := s.chores.WithTx(tx)
		users := s.users.WithTx(tx)

		in, err := chores.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		if in == nil {
			return model.ErrInstanceNotFound
		}
		res.Instance = in

		changed, err := chores.MarkCompleted(ctx, instanceID, now)
		if err != nil {
			return err
		}
		if !changed {
			res.AlreadyCompleted = true
			return nil
		}
		in.Status = model.StatusCompleted
		in.CompletedAt = &now

		c, err := chores.GetByID(ctx, in.ChoreID)
		if err != nil {
			return err
		}
		if c == nil {
			return model.ErrChoreNotFound
		}

		if next, ok := recurrence.GenerateNextInstance(*in, *c, now); ok {
			if err := chores.CreateInstance(ctx, next); err != nil {
				return err
			}
			res.Next = next
		}

		if in.AssignedUserID == nil {
			return nil
		}
		u, err := users.GetByID(ctx, *in.AssignedUserID)
		if err != nil {
			return err
		}
		if u == nil {
			return nil
		}
		updated := gamification.ApplyCompletion(*u, c.Difficulty, now)
		if err := users.UpdateProgress(ctx, &updated); err != nil {
			return err
		}
		res.User = &updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete instance %d: %w", instanceID, err)
	}

	if res.AlreadyCompleted {
		s.logger.Debug("instance already completed", "instance_id", instanceID)
		return res, nil
	}
	attrs := []any{"instance_id", instanceID}
	if res.Next != nil {
		attrs = append(attrs, "next_instance_id", res.Next.ID, "next_due", res.Next.DueDate)
	}
	if res.User != nil {
		attrs = append(attrs, "user_id", res.User.ID, "points", res.User.Points, "streak", res.User.Streak)
	}
	s.logger.Info("instance completed", attrs...)
	return res, nil
}

// UncompleteInstance puts a completed instance back to pending. The next
// instance and any points awarded by the completion stay in place.
func (s *Service) UncompleteInstance(ctx context.Context, instanceID int64) (*model.ChoreInstance, error) {
	in, err := s.chores.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("uncomplete instance: %w", err)
	}
	if in == nil {
		return nil, model.ErrInstanceNotFound
	}
	if in.Status != model.StatusCompleted {
		return in, nil
	}

	if err := s.chores.SetInstanceStatus(ctx, instanceID, model.StatusPending, nil); err != nil {
		return nil, fmt.Errorf("uncomplete instance %d: %w", instanceID, err)
	}
	in.Status = model.StatusPending
	in.CompletedAt = nil

	s.logger.Info("instance uncompleted", "instance_id", instanceID)
	return in, nil
}

// TaskView is an instance as shown on the dashboard and calendar.
type TaskView struct {
	model.InstanceDetail
	DisplayStatus Status `json:"display_status"`
}

func views(details []model.InstanceDetail, today time.Time) []TaskView {
	out := make([]TaskView, 0, len(details))
	for _, d := range details {
		out = append(out, TaskView{InstanceDetail: d, DisplayStatus: ComputeStatus(d.ChoreInstance, today)})
	}
	return out
}

// Dashboard is one user's view of their chores.
type Dashboard struct {
	User              model.User               `json:"user"`
	MyTasks           []TaskView               `json:"my_tasks"`
	NextUp            []TaskView               `json:"next_up"`
	IncomingTransfers []model.IncomingTransfer `json:"incoming_transfers"`
}

// Dashboard collects what userID has to do: pending or missed instances due
// before tomorrow, the next few upcoming ones, and transfer requests
// awaiting their answer.
func (s *Service) Dashboard(ctx context.Context, userID int64, now time.Time) (*Dashboard, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if u == nil {
		return nil, model.ErrUserNotFound
	}

	tomorrow := startOfDay(now).AddDate(0, 0, 1)

	mine, err := s.chores.ListDetails(ctx, store.InstanceFilter{
		AssignedUserID: &userID,
		Statuses:       []model.InstanceStatus{model.StatusPending, model.StatusMissed},
		DueBefore:      &tomorrow,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard tasks: %w", err)
	}

	upcoming, err := s.chores.ListDetails(ctx, store.InstanceFilter{
		AssignedUserID: &userID,
		Statuses:       []model.InstanceStatus{model.StatusPending},
		DueFrom:        &tomorrow,
		Limit:          NextUpLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard next up: %w", err)
	}

	incoming, err := s.transfers.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard transfers: %w", err)
	}
	if incoming == nil {
		incoming = []model.IncomingTransfer{}
	}

	return &Dashboard{
		User:              *u,
		MyTasks:           views(mine, now),
		NextUp:            views(upcoming, now),
		IncomingTransfers: incoming,
	}, nil
}

// Calendar returns every instance due in the given UTC calendar month.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month, now time.Time) ([]TaskView, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	details, err := s.chores.ListDetails(ctx, store.InstanceFilter{DueFrom: &from, DueBefore: &to})
	if err != nil {
		return nil, fmt.Errorf("calendar %d-%02d: %w", year, month, err)
	}
	return views(details, now), nil
}

// ChoreView is a chore with its earliest pending instance and a readable
// schedule.
type ChoreView struct {
	model.ChoreWithNext
	Schedule string `json:"schedule"`
}

// List returns all chores, newest first.
func (s *Service) List(ctx context.Context) ([]ChoreView, error) {
	chores, err := s.chores.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}

	out := make([]ChoreView, 0, len(chores))
	for _, c := range chores {
		next, err := s.chores.FirstPendingInstance(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list chores: %w", err)
		}
		out = append(out, ChoreView{
			ChoreWithNext: model.ChoreWithNext{Chore: c, NextInstance: next},
			Schedule:      recurrence.Describe(c.Frequency, c.CustomInterval),
		})
	}
	return out, nil
}

// Leaderboard ranks every user.
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	users, err := s.users.ListByPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return gamification.Leaderboard(users), nil
}
