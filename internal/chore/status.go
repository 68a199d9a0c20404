package chore

import (
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

// Status is how an instance is presented, which adds "overdue" to the stored
// lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusMissed    Status = "missed"
	StatusUpcoming  Status = "upcoming"
)

// ComputeStatus classifies an instance relative to today (UTC). A pending
// instance due before today is overdue; one due after today is upcoming.
func ComputeStatus(in model.ChoreInstance, today time.Time) Status {
	switch in.Status {
	case model.StatusCompleted:
		return StatusCompleted
	case model.StatusMissed:
		return StatusMissed
	}

	start := startOfDay(today)
	due := in.DueDate.UTC()
	switch {
	case due.Before(start):
		return StatusOverdue
	case !due.Before(start.AddDate(0, 0, 1)):
		return StatusUpcoming
	}
	return StatusPending
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
