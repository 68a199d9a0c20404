// Package recurrence computes when a recurring chore comes due again and who
// does it next. Everything here is pure; persistence lives in package chore.
package recurrence

import (
	"fmt"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

// NextDueDate returns the due date that follows a completion at now. The
// interval is measured from the completion, not the previous due date, so an
// overdue chore does not pile up missed cycles.
//
// Month arithmetic clamps to the last day of the target month: Jan 31 plus
// one month is Feb 28 (or 29).
func NextDueDate(freq model.Frequency, customInterval *int, now time.Time) (time.Time, error) {
	switch freq {
	case model.FrequencyDaily:
		return now.AddDate(0, 0, 1), nil
	case model.FrequencyWeekly:
		return now.AddDate(0, 0, 7), nil
	case model.FrequencyBiweekly:
		return now.AddDate(0, 0, 14), nil
	case model.FrequencyMonthly:
		return addMonths(now, 1), nil
	case model.FrequencyQuarterly:
		return addMonths(now, 3), nil
	case model.FrequencyYearly:
		return addMonths(now, 12), nil
	case model.FrequencyCustom:
		if customInterval == nil || *customInterval <= 0 {
			return time.Time{}, fmt.Errorf("custom frequency without interval")
		}
		return now.AddDate(0, 0, *customInterval), nil
	}
	return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextAssignee picks who gets the next instance. With fewer than two
// assignees the current one keeps it. Otherwise the rotation advances from
// current's position in the list; an assignee no longer in the list restarts
// the rotation at the first entry.
func NextAssignee(assigneeIDs []int64, current *int64) *int64 {
	if len(assigneeIDs) <= 1 {
		if current == nil {
			return nil
		}
		v := *current
		return &v
	}

	idx := -1
	if current != nil {
		for i, id := range assigneeIDs {
			if id == *current {
				idx = i
				break
			}
		}
	}
	next := assigneeIDs[0]
	if idx >= 0 {
		next = assigneeIDs[(idx+1)%len(assigneeIDs)]
	}
	return &next
}

// GenerateNextInstance builds the pending instance that follows completing
// instance at now. It reports false when the chore cannot recur, which only
// happens for a CUSTOM chore with no interval.
func GenerateNextInstance(instance model.ChoreInstance, chore model.Chore, now time.Time) (*model.ChoreInstance, bool) {
	due, err := NextDueDate(chore.Frequency, chore.CustomInterval, now)
	if err != nil {
		return nil, false
	}
	return &model.ChoreInstance{
		ChoreID:        chore.ID,
		AssignedUserID: NextAssignee(chore.AssigneeIDs, instance.AssignedUserID),
		DueDate:        due,
		Status:         model.StatusPending,
	}, true
}
