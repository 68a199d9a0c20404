package model

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
	FrequencyCustom    Frequency = "CUSTOM"
)

// ParseFrequency normalizes s and rejects anything outside the known set.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencyYearly, FrequencyCustom:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

type InstanceStatus string

const (
	StatusPending   InstanceStatus = "PENDING"
	StatusCompleted InstanceStatus = "COMPLETED"
	StatusMissed    InstanceStatus = "MISSED"
)

type Chore struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Icon           Icon      `json:"icon"`
	Frequency      Frequency `json:"frequency"`
	CustomInterval *int      `json:"custom_interval"`
	Difficulty     int       `json:"difficulty"`
	AssigneeIDs    []int64   `json:"assignee_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ChoreInstance struct {
	ID             int64          `json:"id"`
	ChoreID        int64          `json:"chore_id"`
	AssignedUserID *int64         `json:"assigned_user_id"`
	DueDate        time.Time      `json:"due_date"`
	Status         InstanceStatus `json:"status"`
	CompletedAt    *time.Time     `json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ChoreWithNext pairs a chore with its earliest pending instance, if any.
type ChoreWithNext struct {
	Chore
	NextInstance *ChoreInstance `json:"next_instance"`
}

// InstanceDetail is an instance joined with the display fields of its chore
// and assignee, used by the dashboard and calendar views.
type InstanceDetail struct {
	ChoreInstance
	ChoreTitle      string `json:"chore_title"`
	ChoreIcon       Icon   `json:"chore_icon"`
	ChoreDifficulty int    `json:"chore_difficulty"`
	AssigneeName    string `json:"assignee_name,omitempty"`
	AssigneeColor   string `json:"assignee_color,omitempty"`
	AssigneeAvatar  string `json:"assignee_avatar,omitempty"`
}
