package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/notifications/mailtemplates"
	"github.com/tappio/backend/paypal"
	"github.com/tappio/backend/stripe"
	"github.com/tappio/backend/test"
)

var testDB *db.MongoStorage

func TestMain(m *testing.M) {
	ctx := context.Background()
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to start MongoDB container: %v", err))
	}
	mongoURI, err := dbContainer.Endpoint(ctx, "mongodb")
	if err != nil {
		panic(fmt.Sprintf("failed to get MongoDB endpoint: %v", err))
	}
	testDB, err = db.New(mongoURI, test.RandomDatabaseName())
	if err != nil {
		panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
	}
	if err := mailtemplates.Load("../notifications/mailtemplates/assets"); err != nil {
		panic(fmt.Sprintf("failed to load mail templates: %v", err))
	}
	code := m.Run()
	testDB.Close()
	if err := dbContainer.Terminate(ctx); err != nil {
		panic(fmt.Sprintf("failed to stop MongoDB container: %v", err))
	}
	os.Exit(code)
}

// fakeStripe implements StripeGateway in memory.
type fakeStripe struct {
	subscriptions map[string]*stripe.SubscriptionInfo
	invoices      []*stripe.Invoice
	customers     int
	created       int
	cancelled     []string
	cancelErr     error
	lookupErr     error
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{subscriptions: map[string]*stripe.SubscriptionInfo{}}
}

func (f *fakeStripe) CreateCustomer(_, _ string) (string, error) {
	f.customers++
	return fmt.Sprintf("cus_%d", f.customers), nil
}

func (f *fakeStripe) CreateSubscription(customerID, _ string, _ map[string]string) (*stripe.SubscriptionInfo, error) {
	f.created++
	sub := &stripe.SubscriptionInfo{
		ID:                 fmt.Sprintf("sub_%d", f.created),
		Status:             stripeapi.SubscriptionStatusActive,
		CustomerID:         customerID,
		CurrentPeriodStart: time.Now(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour),
	}
	f.subscriptions[sub.ID] = sub
	return sub, nil
}

func (f *fakeStripe) Subscription(id string) (*stripe.SubscriptionInfo, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription")
	}
	return sub, nil
}

func (f *fakeStripe) CancelSubscription(id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	if sub, ok := f.subscriptions[id]; ok {
		sub.Status = stripeapi.SubscriptionStatusCanceled
	}
	return nil
}

func (f *fakeStripe) Invoices(_ string) ([]*stripe.Invoice, error) {
	return f.invoices, nil
}

// fakePayPal implements PayPalGateway in memory.
type fakePayPal struct {
	subscriptions map[string]*paypal.Subscription
	transactions  map[string][]*paypal.Transaction
	cancelled     []string
	cancelErr     error
}

func newFakePayPal() *fakePayPal {
	return &fakePayPal{
		subscriptions: map[string]*paypal.Subscription{},
		transactions:  map[string][]*paypal.Transaction{},
	}
}

func (f *fakePayPal) addSubscription(id, status string, next time.Time) {
	sub := &paypal.Subscription{ID: id, Status: status, StartTime: time.Now()}
	sub.Subscriber.PayerID = "PAYER-" + id
	sub.BillingInfo.NextBillingTime = next
	f.subscriptions[id] = sub
}

func (f *fakePayPal) Subscription(_ context.Context, id string) (*paypal.Subscription, error) {
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, paypal.ErrNotFound
	}
	return sub, nil
}

func (f *fakePayPal) CancelSubscription(_ context.Context, id, _ string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	if sub, ok := f.subscriptions[id]; ok {
		sub.Status = "CANCELLED"
	}
	return nil
}

func (f *fakePayPal) SubscriptionTransactions(_ context.Context, id string, _, _ time.Time) ([]*paypal.Transaction, error) {
	txns, ok := f.transactions[id]
	if !ok {
		return nil, paypal.ErrNotFound
	}
	return txns, nil
}

// fakeMail captures the notifications handed to it.
type fakeMail struct {
	sent []*notifications.Notification
}

func (f *fakeMail) Init(_ any) error { return nil }

func (f *fakeMail) SendNotification(_ context.Context, n *notifications.Notification) error {
	f.sent = append(f.sent, n)
	return nil
}

func testService(t *testing.T) (*Service, *fakeStripe, *fakePayPal) {
	t.Helper()
	fs := newFakeStripe()
	fp := newFakePayPal()
	service, err := New(&Config{DB: testDB, Stripe: fs, PayPal: fp})
	if err != nil {
		t.Fatal(err)
	}
	return service, fs, fp
}

func testUserAndPlan(c *qt.C) (*db.User, *db.Plan) {
	userID, err := testDB.SetUser(&db.User{
		Email:     "billing@example.com",
		Password:  "secret",
		FirstName: "Billing",
		LastName:  "Tester",
	})
	c.Assert(err, qt.IsNil)
	plan := &db.Plan{
		Name:                "Pro",
		MonthlyPrice:        999,
		YearlyPrice:         9990,
		StripeMonthlyPrice:  "price_m",
		StripeYearlyPrice:   "price_y",
		PayPalMonthlyPlanID: "P-M",
		PayPalYearlyPlanID:  "P-Y",
	}
	planID, err := testDB.SetPlan(plan)
	c.Assert(err, qt.IsNil)
	plan.ID = planID
	user, err := testDB.User(userID)
	c.Assert(err, qt.IsNil)
	return user, plan
}

func errorCode(c *qt.C, err error) int {
	c.Helper()
	coded, ok := err.(errors.Error)
	c.Assert(ok, qt.IsTrue, qt.Commentf("expected coded error, got %T: %v", err, err))
	return coded.Code
}

func TestPurchaseStripe(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, fs, _ := testService(t)
	user, plan := testUserAndPlan(c)

	// unknown plan
	_, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID: 999,
		Method: db.MethodStripe,
		Tenure: db.TenureMonth,
	})
	c.Assert(errorCode(c, err), qt.Equals, errors.ErrPlanNotFound.Code)

	// first purchase creates a customer and a subscription
	result, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Record.CustomerID, qt.Equals, "cus_1")
	c.Assert(result.Record.TransactionID, qt.Equals, "sub_1")
	c.Assert(result.ExpireTime.After(time.Now()), qt.IsTrue)

	record, err := testDB.LastPaymentRecord(user.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(record.TransactionID, qt.Equals, "sub_1")
	c.Assert(record.PaymentMethod, qt.Equals, db.MethodStripe)

	// second purchase reuses the customer and cancels the live prior
	result, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID: plan.ID,
		Method: db.MethodStripe,
		Tenure: db.TenureYear,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Record.CustomerID, qt.Equals, "cus_1")
	c.Assert(result.Record.TransactionID, qt.Equals, "sub_2")
	c.Assert(fs.customers, qt.Equals, 1)
	c.Assert(fs.cancelled, qt.DeepEquals, []string{"sub_1"})
}

func TestPurchasePayPal(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, _, fp := testService(t)
	user, plan := testUserAndPlan(c)

	// unknown subscription at the gateway
	_, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:         plan.ID,
		Method:         db.MethodPayPal,
		Tenure:         db.TenureMonth,
		SubscriptionID: "I-MISSING",
	})
	c.Assert(errorCode(c, err), qt.Equals, errors.ErrSubscriptionNotFound.Code)

	// not yet activated subscription
	fp.addSubscription("I-PENDING", "APPROVAL_PENDING", time.Now().AddDate(0, 1, 0))
	_, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:         plan.ID,
		Method:         db.MethodPayPal,
		Tenure:         db.TenureMonth,
		SubscriptionID: "I-PENDING",
	})
	c.Assert(errorCode(c, err), qt.Equals, errors.ErrSubscriptionNotActive.Code)

	// active subscription gets recorded
	fp.addSubscription("I-ACTIVE", paypal.SubscriptionStatusActive, time.Now().AddDate(0, 1, 0))
	result, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:         plan.ID,
		Method:         db.MethodPayPal,
		Tenure:         db.TenureMonth,
		SubscriptionID: "I-ACTIVE",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Record.TransactionID, qt.Equals, "I-ACTIVE")
	c.Assert(result.Record.CustomerID, qt.Equals, "PAYER-I-ACTIVE")

	record, err := testDB.LastPaymentRecordByMethod(user.ID, db.MethodPayPal)
	c.Assert(err, qt.IsNil)
	c.Assert(record.TransactionID, qt.Equals, "I-ACTIVE")
}

func TestPurchaseSupersedesOtherGateway(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, fs, fp := testService(t)
	user, plan := testUserAndPlan(c)

	// live paypal subscription from a previous purchase
	fp.addSubscription("I-OLD", paypal.SubscriptionStatusActive, time.Now().AddDate(0, 1, 0))
	_, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:         plan.ID,
		Method:         db.MethodPayPal,
		Tenure:         db.TenureMonth,
		SubscriptionID: "I-OLD",
	})
	c.Assert(err, qt.IsNil)

	// buying through stripe must cancel the paypal subscription
	_, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(fp.cancelled, qt.DeepEquals, []string{"I-OLD"})
	c.Assert(fs.cancelled, qt.HasLen, 0)
}

func TestPurchaseCancelFailureNotifies(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	fs := newFakeStripe()
	fp := newFakePayPal()
	fm := &fakeMail{}
	service, err := New(&Config{DB: testDB, Stripe: fs, PayPal: fp, Mail: fm})
	c.Assert(err, qt.IsNil)
	user, plan := testUserAndPlan(c)

	// live prior subscription
	_, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)

	// the gateway refuses to cancel the prior, the new purchase must still
	// succeed and the user must be told about the dangling subscription
	fs.cancelErr = fmt.Errorf("stripe is down")
	result, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID: plan.ID,
		Method: db.MethodStripe,
		Tenure: db.TenureYear,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Record.TransactionID, qt.Equals, "sub_2")
	c.Assert(fs.cancelled, qt.HasLen, 0)
	c.Assert(fm.sent, qt.HasLen, 1)
	c.Assert(fm.sent[0].ToAddress, qt.Equals, user.Email)
	c.Assert(strings.Contains(fm.sent[0].Body, "sub_1"), qt.IsTrue)

	// a cancellable prior sends nothing
	fs.cancelErr = nil
	_, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID: plan.ID,
		Method: db.MethodStripe,
		Tenure: db.TenureMonth,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(fm.sent, qt.HasLen, 1)
}

func TestStatus(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, fs, _ := testService(t)
	user, plan := testUserAndPlan(c)

	// no payment records, not paid and a null expire time on the wire
	status, err := service.Status(context.Background(), user.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(status.Paid, qt.IsFalse)
	c.Assert(status.LastPayment, qt.IsNil)
	c.Assert(status.ExpireTime, qt.IsNil)
	encoded, err := json.Marshal(status)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(encoded), `"expireTime":null`), qt.IsTrue)
	c.Assert(strings.Contains(string(encoded), "0001-01-01"), qt.IsFalse)

	// live stripe subscription, paid
	result, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)

	status, err = service.Status(context.Background(), user.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(status.Paid, qt.IsTrue)
	c.Assert(status.LastPayment.TransactionID, qt.Equals, result.Record.TransactionID)
	c.Assert(status.ExpireTime, qt.Not(qt.IsNil))
	c.Assert(status.ExpireTime.After(time.Now()), qt.IsTrue)

	// gateway failure resolves to unpaid with no expire time
	fs.lookupErr = fmt.Errorf("stripe is down")
	status, err = service.Status(context.Background(), user.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(status.Paid, qt.IsFalse)
	c.Assert(status.LastPayment, qt.Not(qt.IsNil))
	c.Assert(status.ExpireTime, qt.IsNil)
}

func TestCancel(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, fs, _ := testService(t)
	user, plan := testUserAndPlan(c)

	// cancelling without payment records is a no-op
	c.Assert(service.Cancel(context.Background(), user.ID, "no longer needed"), qt.IsNil)

	_, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)

	// gateway failure surfaces as a cancel error
	fs.cancelErr = fmt.Errorf("stripe is down")
	err = service.Cancel(context.Background(), user.ID, "no longer needed")
	c.Assert(errorCode(c, err), qt.Equals, errors.ErrCancelFailed.Code)

	fs.cancelErr = nil
	c.Assert(service.Cancel(context.Background(), user.ID, "no longer needed"), qt.IsNil)
	c.Assert(fs.cancelled, qt.DeepEquals, []string{"sub_1"})
}

func TestHistory(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	service, fs, fp := testService(t)
	user, plan := testUserAndPlan(c)

	// a stripe and a paypal purchase
	_, err := service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:    plan.ID,
		Method:    db.MethodStripe,
		Tenure:    db.TenureMonth,
		CardToken: "tok_visa",
	})
	c.Assert(err, qt.IsNil)
	fp.addSubscription("I-SUB", paypal.SubscriptionStatusActive, time.Now().AddDate(0, 1, 0))
	_, err = service.Purchase(context.Background(), user, &PurchaseRequest{
		PlanID:         plan.ID,
		Method:         db.MethodPayPal,
		Tenure:         db.TenureYear,
		SubscriptionID: "I-SUB",
	})
	c.Assert(err, qt.IsNil)

	// two stripe invoices, one of them without a matching record
	fs.invoices = []*stripe.Invoice{
		{
			CreatedAt:       time.Now().Add(-48 * time.Hour),
			PaymentIntentID: "pi_1",
			SubscriptionID:  "sub_1",
			Number:          "INV-0001",
		},
		{
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			SubscriptionID: "sub_unknown",
			Number:         "INV-0002",
		},
	}
	// one paypal transaction
	txn := &paypal.Transaction{
		ID:     "TXN1",
		Status: "COMPLETED",
		Time:   time.Now().Format(time.RFC3339),
	}
	txn.PayerEmail = "payer@example.com"
	txn.PayerName.GivenName = "Jane"
	txn.PayerName.Surname = "Doe"
	txn.AmountWithBreakdown.GrossAmount.Value = "9.99"
	txn.AmountWithBreakdown.GrossAmount.CurrencyCode = "EUR"
	fp.transactions["I-SUB"] = []*paypal.Transaction{txn}

	history, err := service.History(context.Background(), user.ID)
	c.Assert(err, qt.IsNil)
	// the unmatched invoice is skipped
	c.Assert(history, qt.HasLen, 2)
	// newest first: the paypal transaction is more recent
	c.Assert(history[0].PaymentMethod, qt.Equals, db.MethodPayPal)
	c.Assert(history[0].PaymentID, qt.Equals, "TXN1")
	c.Assert(history[0].PayerName, qt.Equals, "Jane Doe")
	c.Assert(history[0].Amount, qt.Equals, "9.99EUR")
	c.Assert(history[1].PaymentMethod, qt.Equals, db.MethodStripe)
	c.Assert(history[1].PaymentID, qt.Equals, "pi_1")
	c.Assert(history[1].Number, qt.Equals, "INV-0001")
	c.Assert(history[1].PlanID, qt.Equals, plan.ID)
}
