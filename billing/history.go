package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"go.vocdoni.io/dvote/log"
)

// paypalHistoryLookback is how far back PayPal transactions are fetched.
const paypalHistoryLookback = 10 // years

// HistoryEntry is a single payment in the aggregated history of a user. The
// gateway-specific fields are only set for entries of that gateway.
type HistoryEntry struct {
	Date          time.Time        `json:"date"`
	TransactionID string           `json:"transactionId"`
	PlanID        uint64           `json:"planId"`
	Tenure        db.Tenure        `json:"tenure"`
	Type          string           `json:"type"`
	PaymentMethod db.PaymentMethod `json:"paymentMethod"`
	PaymentID     string           `json:"paymentId"`
	// stripe invoices
	InvoicePDF       string `json:"invoicePdf,omitempty"`
	HostedInvoiceURL string `json:"hostedInvoiceUrl,omitempty"`
	Number           string `json:"number,omitempty"`
	// paypal transactions
	PayerEmail string `json:"payerEmail,omitempty"`
	PayerName  string `json:"payerName,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Status     string `json:"status,omitempty"`
}

// History aggregates the payment history of the user from both gateways:
// Stripe invoices of the user's customer joined to their payment records, and
// the transactions of every PayPal subscription the user ever purchased. The
// PayPal subscriptions are queried concurrently. The result is ordered newest
// first.
func (s *Service) History(ctx context.Context, userID uint64) ([]*HistoryEntry, error) {
	records, err := s.db.PaymentRecordsByUser(userID)
	if err != nil {
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	var stripeRecords, paypalRecords []*db.PaymentRecord
	for _, record := range records {
		switch record.PaymentMethod {
		case db.MethodStripe:
			stripeRecords = append(stripeRecords, record)
		case db.MethodPayPal:
			paypalRecords = append(paypalRecords, record)
		}
	}

	history := []*HistoryEntry{}
	if len(stripeRecords) > 0 {
		entries, err := s.stripeHistory(stripeRecords)
		if err != nil {
			return nil, err
		}
		history = append(history, entries...)
	}
	if len(paypalRecords) > 0 {
		history = append(history, s.paypalHistory(ctx, paypalRecords)...)
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history, nil
}

// stripeHistory lists the invoices of the user's Stripe customer and joins
// each one to the payment record of its subscription. Invoices that don't
// match any record are logged and skipped, a gap at the gateway must not take
// the whole history down.
func (s *Service) stripeHistory(records []*db.PaymentRecord) ([]*HistoryEntry, error) {
	// records are newest first, all of them share the customer
	invoices, err := s.stripe.Invoices(records[0].CustomerID)
	if err != nil {
		return nil, errors.ErrPaymentGatewayError.WithErr(err)
	}
	byTransaction := make(map[string]*db.PaymentRecord, len(records))
	for _, record := range records {
		byTransaction[record.TransactionID] = record
	}
	var entries []*HistoryEntry
	for _, invoice := range invoices {
		record, ok := byTransaction[invoice.SubscriptionID]
		if !ok {
			log.Warnw("stripe invoice without matching payment record, skipping",
				"subscription", invoice.SubscriptionID, "number", invoice.Number)
			continue
		}
		entries = append(entries, &HistoryEntry{
			Date:             invoice.CreatedAt,
			TransactionID:    invoice.SubscriptionID,
			PlanID:           record.PlanID,
			Tenure:           record.Tenure,
			Type:             "recurring",
			PaymentMethod:    db.MethodStripe,
			PaymentID:        invoice.PaymentIntentID,
			InvoicePDF:       invoice.InvoicePDF,
			HostedInvoiceURL: invoice.HostedInvoiceURL,
			Number:           invoice.Number,
		})
	}
	return entries, nil
}

// paypalHistory fetches the transactions of every PayPal subscription
// concurrently. A failing subscription lookup is logged and skipped.
func (s *Service) paypalHistory(ctx context.Context, records []*db.PaymentRecord) []*HistoryEntry {
	end := time.Now()
	start := end.AddDate(-paypalHistoryLookback, 0, 0)

	var mu sync.Mutex
	var entries []*HistoryEntry
	var wg sync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		go func(record *db.PaymentRecord) {
			defer wg.Done()
			transactions, err := s.paypal.SubscriptionTransactions(ctx, record.TransactionID, start, end)
			if err != nil {
				log.Warnw("could not list paypal transactions",
					"transactionId", record.TransactionID, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, txn := range transactions {
				date, err := time.Parse(time.RFC3339, txn.Time)
				if err != nil {
					date = time.Time{}
				}
				entries = append(entries, &HistoryEntry{
					Date:          date,
					TransactionID: record.TransactionID,
					PlanID:        record.PlanID,
					Tenure:        record.Tenure,
					Type:          "recurring",
					PaymentMethod: db.MethodPayPal,
					PaymentID:     txn.ID,
					PayerEmail:    txn.PayerEmail,
					PayerName:     txn.PayerName.GivenName + " " + txn.PayerName.Surname,
					Amount:        txn.AmountWithBreakdown.GrossAmount.Value + txn.AmountWithBreakdown.GrossAmount.CurrencyCode,
					Status:        txn.Status,
				})
			}
		}(record)
	}
	wg.Wait()
	return entries
}
