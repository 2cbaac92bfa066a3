package api

import (
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"

	"github.com/tappio/backend/billing"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// maxWebhookBodyBytes limits the size of accepted webhook payloads.
const maxWebhookBodyBytes = int64(65536)

// purchaseHandler activates a subscription for the authenticated user through
// the selected payment gateway.
func (a *API) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &PurchaseRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	result, err := a.billing.Purchase(r.Context(), user, &billing.PurchaseRequest{
		PlanID:         req.PlanID,
		Method:         db.PaymentMethod(req.Method),
		Tenure:         db.Tenure(req.Tenure),
		CardToken:      req.CardToken,
		SubscriptionID: req.SubscriptionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpWriteJSON(w, PurchaseResponse{
		Record:     result.Record,
		ExpireTime: result.ExpireTime,
	})
}

// subscriptionStatusHandler returns the paid status of the authenticated user.
func (a *API) subscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	status, err := a.billing.Status(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpWriteJSON(w, status)
}

// cancelSubscriptionHandler cancels the current subscription of the
// authenticated user at its payment gateway.
func (a *API) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &CancelRequest{}
	// the body is optional
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && err != io.EOF {
		errors.ErrMalformedBody.Write(w)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "Cancelled by user"
	}
	if err := a.billing.Cancel(r.Context(), user.ID, reason); err != nil {
		writeServiceError(w, err)
		return
	}
	httpWriteOK(w)
}

// paymentHistoryHandler returns the payment history of the authenticated
// user across both payment gateways.
func (a *API) paymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	history, err := a.billing.History(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpWriteJSON(w, PaymentHistoryResponse{History: history})
}

// stripeWebhookHandler receives stripe webhook events, verifies their
// signature and hands them to the stripe service.
func (a *API) stripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if a.stripeWebhook == nil {
		log.Errorf("stripe webhook: service not available")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		errors.ErrMalformedBody.Withf("could not read webhook body: %v", err).Write(w)
		return
	}
	signatureHeader := r.Header.Get("Stripe-Signature")
	if signatureHeader == "" {
		errors.ErrInvalidWebhookSignature.With("missing Stripe-Signature header").Write(w)
		return
	}
	if err := a.stripeWebhook.HandleWebhookEvent(payload, signatureHeader); err != nil {
		if goerrors.Is(err, stripe.ErrInvalidSignature) {
			errors.ErrInvalidWebhookSignature.WithErr(err).Write(w)
			return
		}
		errors.ErrWebhookProcessingFailed.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// writeServiceError writes a coded error from the billing service, falling
// back to a generic internal error for anything else.
func writeServiceError(w http.ResponseWriter, err error) {
	if e, ok := err.(errors.Error); ok {
		e.Write(w)
		return
	}
	errors.ErrGenericInternalServerError.WithErr(err).Write(w)
}
