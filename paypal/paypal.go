// Package paypal implements a minimal client for the PayPal billing REST API.
// Only the subscription endpoints the backend needs are covered: fetch a
// subscription, cancel it and list its transactions.
package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SubscriptionStatusActive is the PayPal status of a live subscription. Any
// other status means the subscription cannot be trusted as paid.
const SubscriptionStatusActive = "ACTIVE"

// ErrNotFound is returned when PayPal doesn't know the requested subscription.
var ErrNotFound = fmt.Errorf("subscription not found on paypal")

// Config holds the credentials and endpoint of the PayPal REST API. The URL
// selects the environment (sandbox or live).
type Config struct {
	URL      string
	ClientID string
	Secret   string
}

// Client is a PayPal billing API client. It authenticates every request with
// the basic credentials of the merchant account.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// New creates a new PayPal client from the given config.
func New(conf Config) (*Client, error) {
	if conf.URL == "" || conf.ClientID == "" || conf.Secret == "" {
		return nil, fmt.Errorf("paypal url and credentials are required")
	}
	token := base64.StdEncoding.EncodeToString([]byte(conf.ClientID + ":" + conf.Secret))
	return &Client{
		baseURL:    conf.URL,
		authHeader: "Basic " + token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Subscription is the subset of a PayPal billing subscription the backend
// cares about.
type Subscription struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Subscriber struct {
		PayerID string `json:"payer_id"`
	} `json:"subscriber"`
	StartTime   time.Time `json:"start_time"`
	BillingInfo struct {
		NextBillingTime time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
}

// Transaction is a single payment collected under a subscription.
type Transaction struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Time       string `json:"time"`
	PayerEmail string `json:"payer_email"`
	PayerName  struct {
		GivenName string `json:"given_name"`
		Surname   string `json:"surname"`
	} `json:"payer_name"`
	AmountWithBreakdown struct {
		GrossAmount struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"gross_amount"`
	} `json:"amount_with_breakdown"`
}

// Subscription fetches the subscription with the given ID.
func (c *Client) Subscription(ctx context.Context, id string) (*Subscription, error) {
	endpoint := fmt.Sprintf("%s/v1/billing/subscriptions/%s", c.baseURL, url.PathEscape(id))
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("paypal returned status %d fetching subscription", status)
	}
	sub := &Subscription{}
	if err := json.Unmarshal(body, sub); err != nil {
		return nil, fmt.Errorf("could not decode paypal subscription: %w", err)
	}
	return sub, nil
}

// CancelSubscription cancels the subscription with the given ID. PayPal
// acknowledges a successful cancellation with a 204.
func (c *Client) CancelSubscription(ctx context.Context, id, reason string) error {
	endpoint := fmt.Sprintf("%s/v1/billing/subscriptions/%s/cancel", c.baseURL, url.PathEscape(id))
	payload, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return err
	}
	_, status, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("paypal returned status %d cancelling subscription", status)
	}
	return nil
}

// SubscriptionTransactions lists the transactions collected under the
// subscription between start and end.
func (c *Client) SubscriptionTransactions(ctx context.Context, id string, start, end time.Time) ([]*Transaction, error) {
	endpoint := fmt.Sprintf("%s/v1/billing/subscriptions/%s/transactions?start_time=%s&end_time=%s",
		c.baseURL, url.PathEscape(id),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)))
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("paypal returned status %d listing transactions", status)
	}
	var result struct {
		Transactions []*Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not decode paypal transactions: %w", err)
	}
	return result.Transactions, nil
}

// do performs an authenticated request and returns the response body and
// status code. Transport failures are returned as errors, API failures are
// left to the caller via the status code.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("paypal request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read paypal response: %w", err)
	}
	return body, resp.StatusCode, nil
}
