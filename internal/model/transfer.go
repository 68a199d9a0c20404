package model

import "time"

type TransferStatus string

const (
	TransferPending  TransferStatus = "PENDING"
	TransferAccepted TransferStatus = "ACCEPTED"
	TransferRejected TransferStatus = "REJECTED"
)

type TransferRequest struct {
	ID              int64          `json:"id"`
	ChoreInstanceID int64          `json:"chore_instance_id"`
	FromUserID      int64          `json:"from_user_id"`
	ToUserID        int64          `json:"to_user_id"`
	Status          TransferStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IncomingTransfer is a pending request with what the recipient needs to decide.
type IncomingTransfer struct {
	TransferRequest
	FromUserName string    `json:"from_user_name"`
	ChoreTitle   string    `json:"chore_title"`
	DueDate      time.Time `json:"due_date"`
}
