// Package stripe provides integration with the Stripe payment service,
// handling customers, subscriptions, invoices and webhook events.
package stripe

import (
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

// Config holds the Stripe API credentials.
type Config struct {
	APIKey        string
	WebhookSecret string
}

// Client wraps a constructed Stripe API client. Every instance carries its own
// credentials, no global state is touched.
type Client struct {
	api           *stripeclient.API
	webhookSecret string
}

// NewClient creates a new Stripe client with the given configuration.
func NewClient(config *Config) *Client {
	return &Client{
		api:           stripeclient.New(config.APIKey, nil),
		webhookSecret: config.WebhookSecret,
	}
}

// SubscriptionInfo is the subset of a Stripe subscription the backend cares
// about.
type SubscriptionInfo struct {
	ID                 string
	Status             stripeapi.SubscriptionStatus
	CustomerID         string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// Invoice is the subset of a Stripe invoice exposed in the payment history.
type Invoice struct {
	CreatedAt        time.Time
	PaymentIntentID  string
	SubscriptionID   string
	InvoicePDF       string
	HostedInvoiceURL string
	Number           string
}

// CreateCustomer creates a Stripe customer for the given email, attaching the
// card token collected by the frontend as its payment source. It returns the
// new customer ID.
func (c *Client) CreateCustomer(email, cardToken string) (string, error) {
	params := &stripeapi.CustomerParams{
		Email:  stripeapi.String(email),
		Source: stripeapi.String(cardToken),
	}
	customer, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return customer.ID, nil
}

// CreateSubscription subscribes the customer to the given price. The payment
// is charged immediately, if the charge cannot be completed the subscription
// is not created and an error is returned.
func (c *Client) CreateSubscription(customerID, priceID string, metadata map[string]string) (*SubscriptionInfo, error) {
	params := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(customerID),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(priceID)},
		},
		PaymentBehavior:    stripeapi.String("error_if_incomplete"),
		BillingCycleAnchor: stripeapi.Int64(time.Now().Unix()),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	subscription, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return subscriptionInfo(subscription), nil
}

// Subscription retrieves the subscription with the given ID.
func (c *Client) Subscription(id string) (*SubscriptionInfo, error) {
	subscription, err := c.api.Subscriptions.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return subscriptionInfo(subscription), nil
}

// CancelSubscription cancels the subscription with the given ID. The
// cancellation is only considered successful if Stripe reports the
// subscription as canceled afterwards.
func (c *Client) CancelSubscription(id string) error {
	subscription, err := c.api.Subscriptions.Cancel(id, nil)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if subscription.Status != stripeapi.SubscriptionStatusCanceled {
		return fmt.Errorf("subscription %s not canceled, status is %s", id, subscription.Status)
	}
	return nil
}

// Invoices lists the invoices of the given customer.
func (c *Client) Invoices(customerID string) ([]*Invoice, error) {
	params := &stripeapi.InvoiceListParams{
		Customer: stripeapi.String(customerID),
	}
	var invoices []*Invoice
	iter := c.api.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, invoiceInfo(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// DecodeEvent decodes a Stripe webhook event from the given payload and
// signature header. It verifies the webhook signature and returns the decoded
// event or an error if validation fails.
func (c *Client) DecodeEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return &event, nil
}

func subscriptionInfo(subscription *stripeapi.Subscription) *SubscriptionInfo {
	info := &SubscriptionInfo{
		ID:                 subscription.ID,
		Status:             subscription.Status,
		CurrentPeriodStart: time.Unix(subscription.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(subscription.CurrentPeriodEnd, 0),
	}
	if subscription.Customer != nil {
		info.CustomerID = subscription.Customer.ID
	}
	return info
}

func invoiceInfo(invoice *stripeapi.Invoice) *Invoice {
	info := &Invoice{
		CreatedAt:        time.Unix(invoice.Created, 0),
		InvoicePDF:       invoice.InvoicePDF,
		HostedInvoiceURL: invoice.HostedInvoiceURL,
		Number:           invoice.Number,
	}
	if invoice.PaymentIntent != nil {
		info.PaymentIntentID = invoice.PaymentIntent.ID
	}
	if invoice.Subscription != nil {
		info.SubscriptionID = invoice.Subscription.ID
	}
	return info
}
