package billing

import (
	"context"
	"time"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"go.vocdoni.io/dvote/log"
)

// Status is the reconciled subscription state of a user. Paid is only true
// when the owning gateway confirms a live subscription, any doubt (missing
// record, gateway failure, expired period) resolves to unpaid. ExpireTime is
// nil whenever the user is unpaid, so it serializes as null.
type Status struct {
	Paid        bool              `json:"paid"`
	LastPayment *db.PaymentRecord `json:"lastPayment,omitempty"`
	ExpireTime  *time.Time        `json:"expireTime"`
}

// Status reconciles the subscription state of the user against the gateway
// that owns their latest payment record.
func (s *Service) Status(ctx context.Context, userID uint64) (*Status, error) {
	record, err := s.db.LastPaymentRecord(userID)
	if err != nil {
		if err == db.ErrNotFound {
			return &Status{Paid: false}, nil
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	live, expireTime := s.recordLiveness(ctx, record)
	status := &Status{
		Paid:        live,
		LastPayment: record,
	}
	if live {
		status.ExpireTime = &expireTime
	}
	return status, nil
}

// Cancel cancels the subscription behind the latest payment record of the
// user with the given reason. A user without payment records is a no-op.
func (s *Service) Cancel(ctx context.Context, userID uint64, reason string) error {
	record, err := s.db.LastPaymentRecord(userID)
	if err != nil {
		if err == db.ErrNotFound {
			return nil
		}
		return errors.ErrInternalStorageError.WithErr(err)
	}
	if err := s.cancelAtGateway(ctx, record, reason); err != nil {
		log.Warnw("could not cancel subscription",
			"userId", userID,
			"method", record.PaymentMethod,
			"transactionId", record.TransactionID,
			"error", err)
		return errors.ErrCancelFailed.WithErr(err)
	}
	log.Infow("subscription cancelled",
		"userId", userID,
		"method", record.PaymentMethod,
		"transactionId", record.TransactionID,
		"reason", reason)
	return nil
}
