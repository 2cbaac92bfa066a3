package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/notifications/mailtemplates"
	"github.com/tappio/backend/paypal"
	"go.vocdoni.io/dvote/log"
)

// PurchaseRequest carries the parameters of a plan purchase. CardToken is
// required for Stripe purchases, SubscriptionID is the gateway-approved
// subscription required for PayPal purchases.
type PurchaseRequest struct {
	PlanID         uint64
	Method         db.PaymentMethod
	Tenure         db.Tenure
	CardToken      string
	SubscriptionID string
}

// PurchaseResult is the outcome of a successful purchase.
type PurchaseResult struct {
	Record     *db.PaymentRecord `json:"record"`
	ExpireTime time.Time         `json:"expireTime"`
}

// Purchase activates a subscription for the user at the requested gateway and
// records it. Any still-live prior subscription of the user is cancelled after
// the new one is active, so a purchase can never leave the user without a
// plan. If a prior subscription cannot be cancelled the user is notified by
// email and the purchase still succeeds.
func (s *Service) Purchase(ctx context.Context, user *db.User, req *PurchaseRequest) (*PurchaseResult, error) {
	if !db.IsValidPaymentMethod(req.Method) {
		return nil, errors.ErrPaymentMethodUnknown.Withf("method %q", req.Method)
	}
	if !db.IsValidTenure(req.Tenure) {
		return nil, errors.ErrTenureUnknown.Withf("tenure %q", req.Tenure)
	}
	plan, err := s.db.Plan(req.PlanID)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, errors.ErrPlanNotFound
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}

	// resolve the subscriptions the new purchase has to supersede before
	// activating the new one
	priors := s.activePriorRecords(ctx, user.ID)

	record := &db.PaymentRecord{
		UserID:        user.ID,
		PlanID:        plan.ID,
		PaymentMethod: req.Method,
		Tenure:        req.Tenure,
	}
	var expireTime time.Time
	switch req.Method {
	case db.MethodStripe:
		expireTime, err = s.purchaseStripe(user, plan, req, record)
	case db.MethodPayPal:
		expireTime, err = s.purchasePayPal(ctx, req, record)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.db.SetPaymentRecord(record); err != nil {
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	log.Infow("subscription activated",
		"userId", user.ID,
		"planId", plan.ID,
		"method", record.PaymentMethod,
		"tenure", record.Tenure,
		"transactionId", record.TransactionID)

	// best-effort cancellation of the superseded subscriptions
	for _, prior := range priors {
		if prior.TransactionID == record.TransactionID {
			continue
		}
		if err := s.cancelAtGateway(ctx, prior, CancelReasonNewPlan); err != nil {
			log.Warnw("could not cancel superseded subscription",
				"userId", user.ID,
				"method", prior.PaymentMethod,
				"transactionId", prior.TransactionID,
				"error", err)
			s.sendCancelFailedEmail(ctx, user, fmt.Sprintf("%s-%s", plan.Name, prior.TransactionID))
		}
	}
	return &PurchaseResult{Record: record, ExpireTime: expireTime}, nil
}

// purchaseStripe charges the user through Stripe and fills the payment record.
// The Stripe customer of a previous purchase is reused, otherwise a new one is
// created from the card token.
func (s *Service) purchaseStripe(user *db.User, plan *db.Plan, req *PurchaseRequest, record *db.PaymentRecord) (time.Time, error) {
	customerID := ""
	if lastStripe, err := s.db.LastPaymentRecordByMethod(user.ID, db.MethodStripe); err == nil {
		customerID = lastStripe.CustomerID
	}
	if customerID == "" {
		var err error
		customerID, err = s.stripe.CreateCustomer(user.Email, req.CardToken)
		if err != nil {
			return time.Time{}, errors.ErrPaymentFailed.WithErr(err)
		}
	}
	subscription, err := s.stripe.CreateSubscription(customerID, plan.StripePriceID(req.Tenure), map[string]string{
		"userId": fmt.Sprintf("%d", user.ID),
		"planId": fmt.Sprintf("%d", plan.ID),
		"tenure": string(req.Tenure),
	})
	if err != nil {
		return time.Time{}, errors.ErrPaymentFailed.WithErr(err)
	}
	record.CustomerID = customerID
	record.TransactionID = subscription.ID
	record.CreatedAt = subscription.CurrentPeriodStart
	return subscription.CurrentPeriodEnd, nil
}

// purchasePayPal validates the PayPal subscription the user approved on the
// frontend and fills the payment record from it. Only an ACTIVE subscription
// is accepted.
func (s *Service) purchasePayPal(ctx context.Context, req *PurchaseRequest, record *db.PaymentRecord) (time.Time, error) {
	subscription, err := s.paypal.Subscription(ctx, req.SubscriptionID)
	if err != nil {
		if err == paypal.ErrNotFound {
			return time.Time{}, errors.ErrSubscriptionNotFound
		}
		return time.Time{}, errors.ErrPaymentGatewayError.WithErr(err)
	}
	if subscription.Status != paypal.SubscriptionStatusActive {
		return time.Time{}, errors.ErrSubscriptionNotActive.Withf("status %q", subscription.Status)
	}
	record.CustomerID = subscription.Subscriber.PayerID
	record.TransactionID = subscription.ID
	record.CreatedAt = subscription.StartTime
	return subscription.BillingInfo.NextBillingTime, nil
}

// sendCancelFailedEmail notifies the user that a superseded subscription could
// not be cancelled and needs manual attention.
func (s *Service) sendCancelFailedEmail(ctx context.Context, user *db.User, subscription string) {
	if s.mail == nil {
		return
	}
	notification, err := mailtemplates.CancelFailedNotification.ExecTemplate(struct {
		Name         string
		Subscription string
		Link         string
	}{user.FirstName, subscription, s.webAppURL})
	if err != nil {
		log.Warnw("could not compose cancellation email", "error", err)
		return
	}
	notification.ToName = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
	notification.ToAddress = user.Email
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.mail.SendNotification(ctx, notification); err != nil {
		log.Warnw("could not send cancellation email", "to", user.Email, "error", err)
	}
}
