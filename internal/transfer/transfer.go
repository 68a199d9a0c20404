// Package transfer implements the hand-off workflow for chore instances: one
// user asks another to take over a pending chore, and the recipient accepts
// or rejects.
package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/choreledger/internal/database"
	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/store"
)

// Service opens and resolves chore transfer requests.
type Service struct {
	db        *sql.DB
	users     *store.UserStore
	chores    *store.ChoreStore
	transfers *store.TransferStore
	logger    *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		users:     store.NewUserStore(db),
		chores:    store.NewChoreStore(db),
		transfers: store.NewTransferStore(db),
		logger:    logger.With("component", "transfer"),
	}
}

// Request opens a pending transfer of instanceID from fromUserID to toUserID.
func (s *Service) Request(ctx context.Context, instanceID, fromUserID, toUserID int64) (*model.TransferRequest, error) {
	if fromUserID == toUserID {
		return nil, model.Invalid("to_user_id", "cannot transfer a chore to yourself")
	}

	in, err := s.chores.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("request transfer: %w", err)
	}
	if in == nil {
		return nil, model.ErrInstanceNotFound
	}
	if in.Status != model.StatusPending {
		return nil, model.Invalid("instance", "only pending chores can be transferred")
	}

	ok, err := s.users.AllExist(ctx, []int64{fromUserID, toUserID})
	if err != nil {
		return nil, fmt.Errorf("request transfer: %w", err)
	}
	if !ok {
		return nil, model.ErrUserNotFound
	}

	req, err := s.transfers.Create(ctx, instanceID, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("request transfer: %w", err)
	}
	s.logger.Info("transfer requested", "transfer_id", req.ID, "instance_id", instanceID, "from", fromUserID, "to", toUserID)
	return req, nil
}

// Respond resolves a pending request. Accepting reassigns the instance to
// the recipient in the same transaction that records the decision, and is
// refused while the instance is no longer pending.
func (s *Service) Respond(ctx context.Context, requestID int64, accept bool) (*model.TransferRequest, error) {
	status := model.TransferRejected
	if accept {
		status = model.TransferAccepted
	}

	var resolved *model.TransferRequest
	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		transfers := s.transfers.WithTx(tx)

		req, err := transfers.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return model.ErrTransferNotFound
		}
		if req.Status != model.TransferPending {
			return model.ErrAlreadyResolved
		}

		if accept {
			in, err := s.chores.WithTx(tx).GetInstance(ctx, req.ChoreInstanceID)
			if err != nil {
				return err
			}
			if in == nil {
				return model.ErrInstanceNotFound
			}
			if in.Status != model.StatusPending {
				return model.Invalid("instance", "chore is no longer pending")
			}
		}

		changed, err := transfers.Resolve(ctx, requestID, status)
		if err != nil {
			return err
		}
		if !changed {
			return model.ErrAlreadyResolved
		}

		if accept {
			to := req.ToUserID
			if err := s.chores.WithTx(tx).SetInstanceAssignee(ctx, req.ChoreInstanceID, &to); err != nil {
				return err
			}
		}

		resolved, err = transfers.GetByID(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("respond to transfer %d: %w", requestID, err)
	}

	s.logger.Info("transfer resolved", "transfer_id", requestID, "status", status)
	return resolved, nil
}

// ListIncoming returns the pending requests addressed to userID.
func (s *Service) ListIncoming(ctx context.Context, userID int64) ([]model.IncomingTransfer, error) {
	out, err := s.transfers.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming transfers: %w", err)
	}
	if out == nil {
		out = []model.IncomingTransfer{}
	}
	return out, nil
}
