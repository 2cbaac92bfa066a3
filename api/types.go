package api

import (
	"time"

	"github.com/tappio/backend/billing"
	"github.com/tappio/backend/db"
)

// UserInfo is the request and response type for user registration, login and
// profile updates.
type UserInfo struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,phone"`
	Verified  bool   `json:"verified,omitempty"`
	Role      string `json:"role,omitempty"`
}

// LoginRequest carries the credentials of a password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token    string    `json:"token"`
	Expirity time.Time `json:"expirity"`
}

// OAuthLoginRequest carries the authorization code obtained by the client
// from the OAuth provider.
type OAuthLoginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

// UserVerification is the request to verify a user account.
type UserVerification struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// UserVerificationCodeInfo is the response with the verification code status.
type UserVerificationCodeInfo struct {
	Email      string    `json:"email"`
	Expiration time.Time `json:"expiration"`
	Valid      bool      `json:"valid"`
}

// UserPasswordUpdate is the request to update the password of the current user.
type UserPasswordUpdate struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UserPasswordReset is the request to reset a password with a recovery code.
type UserPasswordReset struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// PurchaseRequest is the request to purchase a subscription plan.
type PurchaseRequest struct {
	PlanID uint64 `json:"planId" validate:"required"`
	Method string `json:"method" validate:"required,paymentmethod"`
	Tenure string `json:"tenure" validate:"required,tenure"`
	// CardToken is the stripe card token, required for stripe purchases.
	CardToken string `json:"cardToken,omitempty"`
	// SubscriptionID is the paypal subscription approved by the user on the
	// client, required for paypal purchases.
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// PurchaseResponse is returned after a successful purchase.
type PurchaseResponse struct {
	Record     *db.PaymentRecord `json:"record"`
	ExpireTime time.Time         `json:"expireTime"`
}

// CancelRequest is the request to cancel the current subscription.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// PaymentHistoryResponse wraps the list of payment history entries.
type PaymentHistoryResponse struct {
	History []*billing.HistoryEntry `json:"history"`
}

// BookingRequest is the request to book a ticket for an event.
type BookingRequest struct {
	EventID uint64 `json:"eventId" validate:"required"`
}

// ImageUploadResponse is returned after uploading images to the object storage.
type ImageUploadResponse struct {
	URLs []string `json:"urls"`
}
