package db

import (
	"time"
)

// User represents an account of the platform. The password is stored as a
// salted sha256 hex string, never in clear.
type User struct {
	ID            uint64   `json:"id" bson:"_id"`
	Email         string   `json:"email" bson:"email"`
	Password      string   `json:"password" bson:"password"`
	FirstName     string   `json:"firstName" bson:"firstName"`
	LastName      string   `json:"lastName" bson:"lastName"`
	Phone         string   `json:"phone" bson:"phone,omitempty"`
	Role          UserRole `json:"role" bson:"role"`
	Verified      bool     `json:"verified" bson:"verified"`
	OAuthProvider string   `json:"oauthProvider,omitempty" bson:"oauthProvider,omitempty"`
}

type UserRole string

type CodeType string

// UserVerification holds a pending verification or password reset code for a
// user. The code is stored hashed together with the user email.
type UserVerification struct {
	ID         uint64    `json:"id" bson:"_id"`
	Code       string    `json:"code" bson:"code"`
	Type       CodeType  `json:"type" bson:"type"`
	Expiration time.Time `json:"expiration" bson:"expiration"`
}

// PaymentMethod identifies the payment gateway that owns a subscription.
type PaymentMethod string

// Tenure is the billing cadence of a subscription.
type Tenure string

// Plan represents a subscription plan offered to users. Each plan carries the
// gateway-side price identifiers for both supported tenures.
type Plan struct {
	ID                  uint64 `json:"id" bson:"_id"`
	Name                string `json:"name" bson:"name"`
	Default             bool   `json:"default" bson:"default"`
	MonthlyPrice        int64  `json:"monthlyPrice" bson:"monthlyPrice"`
	YearlyPrice         int64  `json:"yearlyPrice" bson:"yearlyPrice"`
	StripeMonthlyPrice  string `json:"stripeMonthlyPriceID" bson:"stripeMonthlyPriceID"`
	StripeYearlyPrice   string `json:"stripeYearlyPriceID" bson:"stripeYearlyPriceID"`
	PayPalMonthlyPlanID string `json:"paypalMonthlyPlanID" bson:"paypalMonthlyPlanID"`
	PayPalYearlyPlanID  string `json:"paypalYearlyPlanID" bson:"paypalYearlyPlanID"`
}

// StripePriceID returns the Stripe price for the given tenure.
func (p *Plan) StripePriceID(tenure Tenure) string {
	if tenure == TenureYear {
		return p.StripeYearlyPrice
	}
	return p.StripeMonthlyPrice
}

// PayPalPlanID returns the PayPal billing plan for the given tenure.
func (p *Plan) PayPalPlanID(tenure Tenure) string {
	if tenure == TenureYear {
		return p.PayPalYearlyPlanID
	}
	return p.PayPalMonthlyPlanID
}

// PaymentRecord is the append-only local trace of a subscription activation.
// A record is written only after the gateway call succeeded and is never
// mutated afterwards, newer purchases supersede older records. Subscription
// liveness and expiry are owned by the gateway and never cached here.
type PaymentRecord struct {
	ID            uint64        `json:"id" bson:"_id"`
	UserID        uint64        `json:"userId" bson:"userId"`
	PlanID        uint64        `json:"planId" bson:"planId"`
	PaymentMethod PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	Tenure        Tenure        `json:"tenure" bson:"tenure"`
	CustomerID    string        `json:"customerId" bson:"customerId"`
	TransactionID string        `json:"transactionId" bson:"transactionId"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
}

// Speaker is a named participant of an event program.
type Speaker struct {
	Name        string `json:"name" bson:"name"`
	Image       string `json:"image" bson:"image,omitempty"`
	Description string `json:"description" bson:"description,omitempty"`
	Occupation  string `json:"occupation" bson:"occupation,omitempty"`
}

// ScheduleSlot is a single agenda entry of an event.
type ScheduleSlot struct {
	StartDate    time.Time `json:"startDate" bson:"startDate"`
	Topic        string    `json:"topic" bson:"topic"`
	TopicDetails string    `json:"topicDetails" bson:"topicDetails,omitempty"`
	Speaker      string    `json:"speaker" bson:"speaker,omitempty"`
}

// Event represents a ticketed event published on the platform.
type Event struct {
	ID               uint64         `json:"id" bson:"_id"`
	Name             string         `json:"name" bson:"name"`
	Tags             []string       `json:"tags" bson:"tags,omitempty"`
	Description      string         `json:"description" bson:"description"`
	Image            string         `json:"image" bson:"image"`
	StartDate        time.Time      `json:"startDate" bson:"startDate"`
	EndDate          time.Time      `json:"endDate" bson:"endDate"`
	Location         string         `json:"location" bson:"location"`
	Venue            string         `json:"venue" bson:"venue,omitempty"`
	Address          string         `json:"address" bson:"address"`
	Phone            string         `json:"phone" bson:"phone"`
	Email            string         `json:"email" bson:"email"`
	Price            float64        `json:"price" bson:"price"`
	TotalTickets     int            `json:"totalTickets" bson:"totalTickets"`
	RemainingTickets int            `json:"remainingTickets" bson:"remainingTickets"`
	Sponsors         []string       `json:"sponsors" bson:"sponsors,omitempty"`
	Speakers         []Speaker      `json:"speakers" bson:"speakers,omitempty"`
	Schedule         []ScheduleSlot `json:"schedule" bson:"schedule,omitempty"`
}

// Booking is a ticket reservation of a user for an event.
type Booking struct {
	ID         uint64    `json:"id" bson:"_id"`
	UserID     uint64    `json:"userId" bson:"userId"`
	EventID    uint64    `json:"eventId" bson:"eventId"`
	TicketCode string    `json:"ticketCode" bson:"ticketCode"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Object is a generic binary object (images mostly) stored in the database.
type Object struct {
	ID          string    `json:"id" bson:"_id"`
	Data        []byte    `json:"data" bson:"data"`
	UserEmail   string    `json:"userEmail" bson:"userEmail"`
	ContentType string    `json:"contentType" bson:"contentType"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
