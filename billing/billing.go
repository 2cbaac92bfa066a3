// Package billing implements the subscription lifecycle of the backend on top
// of the Stripe and PayPal gateways: purchase, status reconciliation,
// cancellation and payment history. The local database only keeps an
// append-only trace of activations, subscription liveness is always resolved
// against the owning gateway.
package billing

import (
	"context"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/paypal"
	"github.com/tappio/backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// CancelReasonNewPlan is the gateway-side reason attached to cancellations
// triggered by the purchase of a new plan.
const CancelReasonNewPlan = "Purchased new plan"

// StripeGateway is the surface of the Stripe client the billing service uses.
type StripeGateway interface {
	CreateCustomer(email, cardToken string) (string, error)
	CreateSubscription(customerID, priceID string, metadata map[string]string) (*stripe.SubscriptionInfo, error)
	Subscription(id string) (*stripe.SubscriptionInfo, error)
	CancelSubscription(id string) error
	Invoices(customerID string) ([]*stripe.Invoice, error)
}

// PayPalGateway is the surface of the PayPal client the billing service uses.
type PayPalGateway interface {
	Subscription(ctx context.Context, id string) (*paypal.Subscription, error)
	CancelSubscription(ctx context.Context, id, reason string) error
	SubscriptionTransactions(ctx context.Context, id string, start, end time.Time) ([]*paypal.Transaction, error)
}

// Config holds the dependencies of the billing service. Mail is optional, if
// it is nil no cancellation failure emails are sent.
type Config struct {
	DB        *db.MongoStorage
	Stripe    StripeGateway
	PayPal    PayPalGateway
	Mail      notifications.NotificationService
	WebAppURL string
}

// Service implements the billing operations.
type Service struct {
	db        *db.MongoStorage
	stripe    StripeGateway
	paypal    PayPalGateway
	mail      notifications.NotificationService
	webAppURL string
}

// New creates a new billing service from the given config.
func New(conf *Config) (*Service, error) {
	if conf == nil {
		return nil, fmt.Errorf("billing config is required")
	}
	if conf.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if conf.Stripe == nil || conf.PayPal == nil {
		return nil, fmt.Errorf("both payment gateways are required")
	}
	return &Service{
		db:        conf.DB,
		stripe:    conf.Stripe,
		paypal:    conf.PayPal,
		mail:      conf.Mail,
		webAppURL: conf.WebAppURL,
	}, nil
}

// recordLiveness asks the owning gateway whether the subscription behind the
// record is still live. It returns the liveness and the end of the current
// billing period. Gateway errors are resolved as not live, a subscription
// that cannot be confirmed is never reported as paid.
func (s *Service) recordLiveness(ctx context.Context, record *db.PaymentRecord) (bool, time.Time) {
	switch record.PaymentMethod {
	case db.MethodStripe:
		sub, err := s.stripe.Subscription(record.TransactionID)
		if err != nil {
			log.Warnw("could not resolve stripe subscription",
				"transactionId", record.TransactionID, "error", err)
			return false, time.Time{}
		}
		if sub.Status == stripeapi.SubscriptionStatusActive && time.Now().Before(sub.CurrentPeriodEnd) {
			return true, sub.CurrentPeriodEnd
		}
	case db.MethodPayPal:
		sub, err := s.paypal.Subscription(ctx, record.TransactionID)
		if err != nil {
			log.Warnw("could not resolve paypal subscription",
				"transactionId", record.TransactionID, "error", err)
			return false, time.Time{}
		}
		next := sub.BillingInfo.NextBillingTime
		if sub.Status == paypal.SubscriptionStatusActive && time.Now().Before(next) {
			return true, next
		}
	}
	return false, time.Time{}
}

// cancelAtGateway cancels the subscription behind the record at its gateway.
func (s *Service) cancelAtGateway(ctx context.Context, record *db.PaymentRecord, reason string) error {
	switch record.PaymentMethod {
	case db.MethodStripe:
		return s.stripe.CancelSubscription(record.TransactionID)
	case db.MethodPayPal:
		return s.paypal.CancelSubscription(ctx, record.TransactionID, reason)
	}
	return fmt.Errorf("unknown payment method %q", record.PaymentMethod)
}

// activePriorRecords returns the latest record of each payment method whose
// subscription is still live at its gateway. These are the subscriptions that
// a new purchase must supersede.
func (s *Service) activePriorRecords(ctx context.Context, userID uint64) []*db.PaymentRecord {
	var active []*db.PaymentRecord
	for _, method := range []db.PaymentMethod{db.MethodStripe, db.MethodPayPal} {
		record, err := s.db.LastPaymentRecordByMethod(userID, method)
		if err != nil {
			if err != db.ErrNotFound {
				log.Warnw("could not get last payment record",
					"userId", userID, "method", method, "error", err)
			}
			continue
		}
		if live, _ := s.recordLiveness(ctx, record); live {
			active = append(active, record)
		}
	}
	return active
}
