package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/tappio/backend/billing"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/paypal"
)

// createTestPlan inserts a subscription plan and returns its ID.
func createTestPlan(t *testing.T) uint64 {
	t.Helper()
	planID, err := testDB.SetPlan(&db.Plan{
		Name:                "Pro",
		MonthlyPrice:        999,
		YearlyPrice:         9990,
		StripeMonthlyPrice:  "price_monthly",
		StripeYearlyPrice:   "price_yearly",
		PayPalMonthlyPlanID: "P-MONTHLY",
		PayPalYearlyPlanID:  "P-YEARLY",
	})
	if err != nil {
		t.Fatal(err)
	}
	return planID
}

func TestPurchaseAndStatus(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	token := createTestUser(t, testUserEmail, db.UserRoleDefault)
	planID := createTestPlan(t)

	// purchase requires authentication
	status, _ := doRequest(t, http.MethodPost, paymentsEndpoint, "", PurchaseRequest{
		PlanID: planID, Method: "stripe", Tenure: "month", CardToken: "tok_visa",
	})
	c.Assert(status, qt.Equals, http.StatusUnauthorized)

	// an unknown method is rejected by the validation middleware
	status, _ = doRequest(t, http.MethodPost, paymentsEndpoint, token, PurchaseRequest{
		PlanID: planID, Method: "bitcoin", Tenure: "month",
	})
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// before any purchase the status is unpaid with a null expire time
	status, data := doRequest(t, http.MethodGet, paymentsEndpoint, token, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	subStatus := billing.Status{}
	c.Assert(json.Unmarshal(data, &subStatus), qt.IsNil)
	c.Assert(subStatus.Paid, qt.IsFalse)
	c.Assert(strings.Contains(string(data), `"expireTime":null`), qt.IsTrue)

	// a stripe purchase activates the subscription
	status, data = doRequest(t, http.MethodPost, paymentsEndpoint, token, PurchaseRequest{
		PlanID: planID, Method: "stripe", Tenure: "month", CardToken: "tok_visa",
	})
	c.Assert(status, qt.Equals, http.StatusOK)
	purchase := PurchaseResponse{}
	c.Assert(json.Unmarshal(data, &purchase), qt.IsNil)
	c.Assert(purchase.Record.PaymentMethod, qt.Equals, db.MethodStripe)
	c.Assert(purchase.ExpireTime.After(time.Now()), qt.IsTrue)

	// and the status reflects it
	status, data = doRequest(t, http.MethodGet, paymentsEndpoint, token, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(json.Unmarshal(data, &subStatus), qt.IsNil)
	c.Assert(subStatus.Paid, qt.IsTrue)

	// purchasing an unknown plan fails
	status, _ = doRequest(t, http.MethodPost, paymentsEndpoint, token, PurchaseRequest{
		PlanID: planID + 100, Method: "stripe", Tenure: "month", CardToken: "tok_visa",
	})
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// history contains no entries, the fake gateway has no invoices
	status, data = doRequest(t, http.MethodGet, paymentsHistoryEndpoint, token, nil)
	c.Assert(status, qt.Equals, http.StatusOK)

	// cancel the subscription
	status, _ = doRequest(t, http.MethodPost, paymentsCancelEndpoint, token, CancelRequest{})
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(len(testStripe.cancelled) > 0, qt.IsTrue)

	// cancelled at the gateway means unpaid again
	status, data = doRequest(t, http.MethodGet, paymentsEndpoint, token, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(json.Unmarshal(data, &subStatus), qt.IsNil)
	c.Assert(subStatus.Paid, qt.IsFalse)
}

func TestPurchasePayPalThroughAPI(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	token := createTestUser(t, testUserEmail, db.UserRoleDefault)
	planID := createTestPlan(t)

	// a missing paypal subscription is rejected
	status, _ := doRequest(t, http.MethodPost, paymentsEndpoint, token, PurchaseRequest{
		PlanID: planID, Method: "paypal", Tenure: "month", SubscriptionID: "I-MISSING",
	})
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// an approved, active subscription is recorded
	sub := &paypal.Subscription{ID: "I-ACTIVE", Status: paypal.SubscriptionStatusActive}
	sub.Subscriber.PayerID = "PAYER1"
	sub.StartTime = time.Now()
	sub.BillingInfo.NextBillingTime = time.Now().Add(30 * 24 * time.Hour)
	testPayPal.subscriptions["I-ACTIVE"] = sub

	status, data := doRequest(t, http.MethodPost, paymentsEndpoint, token, PurchaseRequest{
		PlanID: planID, Method: "paypal", Tenure: "month", SubscriptionID: "I-ACTIVE",
	})
	c.Assert(status, qt.Equals, http.StatusOK)
	purchase := PurchaseResponse{}
	c.Assert(json.Unmarshal(data, &purchase), qt.IsNil)
	c.Assert(purchase.Record.PaymentMethod, qt.Equals, db.MethodPayPal)
	c.Assert(purchase.Record.TransactionID, qt.Equals, "I-ACTIVE")
}

// signStripePayload builds a valid Stripe-Signature header for the payload.
func signStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(fmt.Appendf(nil, "%d.", ts.Unix()))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhookEndpoint(t *testing.T) {
	c := qt.New(t)
	payload := fmt.Appendf(nil, `{
		"id": "evt_api_1",
		"api_version": %q,
		"type": "invoice.created",
		"data": {
			"object": {
				"id": "in_1",
				"subscription": "sub_1",
				"customer": "cus_1",
				"amount_due": 999,
				"number": "INV-0001"
			}
		}
	}`, stripeapi.APIVersion)

	// a request without a signature header is rejected
	status, _ := doRequest(t, http.MethodPost, paymentsWebhookStripeEndpoint, "", payload)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// a correctly signed payload is acknowledged
	req, err := http.NewRequest(http.MethodPost, testServer.URL+paymentsWebhookStripeEndpoint,
		bytes.NewReader(payload))
	c.Assert(err, qt.IsNil)
	req.Header.Set("Stripe-Signature", signStripePayload(payload, testWebhookKey, time.Now()))
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() { _ = resp.Body.Close() }()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	// a payload signed with the wrong secret is rejected
	req, err = http.NewRequest(http.MethodPost, testServer.URL+paymentsWebhookStripeEndpoint,
		bytes.NewReader(payload))
	c.Assert(err, qt.IsNil)
	req.Header.Set("Stripe-Signature", signStripePayload(payload, "whsec_wrong", time.Now()))
	resp, err = http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() { _ = resp.Body.Close() }()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
}
