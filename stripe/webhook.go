package stripe

import (
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v81"
	"go.vocdoni.io/dvote/log"
)

// ErrInvalidSignature is returned when a webhook payload does not carry a
// valid Stripe signature.
var ErrInvalidSignature = fmt.Errorf("invalid webhook signature")

// Service processes Stripe webhook events with idempotency. Events are
// deduplicated by their Stripe event ID, so gateway retries of an already
// processed event are acknowledged without side effects.
type Service struct {
	client      *Client
	eventStore  *MemoryEventStore
	lockManager *LockManager
}

// NewService creates a new webhook processing service on top of the given
// Stripe client.
func NewService(client *Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	return &Service{
		client:      client,
		eventStore:  NewMemoryEventStore(0),
		lockManager: NewLockManager(),
	}, nil
}

// HandleWebhookEvent validates the payload signature and processes the event.
// A signature failure is reported as ErrInvalidSignature so that callers can
// reject the request instead of retrying it.
func (s *Service) HandleWebhookEvent(payload []byte, signatureHeader string) error {
	event, err := s.client.DecodeEvent(payload, signatureHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	// skip events already processed (idempotency across Stripe retries)
	if s.eventStore.EventExists(event.ID) {
		log.Debugf("stripe webhook: event %s already processed, skipping", event.ID)
		return nil
	}
	if err := s.handleEvent(event); err != nil {
		return err
	}
	s.eventStore.MarkProcessed(event.ID)
	return nil
}

func (s *Service) handleEvent(event *stripeapi.Event) error {
	switch event.Type {
	case stripeapi.EventTypeInvoiceCreated:
		return s.handleInvoiceCreated(event)
	default:
		log.Debugf("stripe webhook: received unhandled event type %s (id %s)", event.Type, event.ID)
		return nil
	}
}

// handleInvoiceCreated acknowledges a renewal invoice. Renewals are tracked on
// the gateway side, no local payment record is written for them, the invoice
// is only logged for traceability.
func (s *Service) handleInvoiceCreated(event *stripeapi.Event) error {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("error parsing invoice from event %s: %w", event.ID, err)
	}
	subscriptionID := ""
	if invoice.Subscription != nil {
		subscriptionID = invoice.Subscription.ID
	}
	unlock := s.lockManager.Lock(subscriptionID)
	defer unlock()

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	log.Infow("stripe webhook: invoice created",
		"event", event.ID,
		"invoice", invoice.ID,
		"subscription", subscriptionID,
		"customer", customerID,
		"amountDue", invoice.AmountDue,
		"number", invoice.Number)
	return nil
}
