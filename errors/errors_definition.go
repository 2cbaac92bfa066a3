// Package errors provides custom error types and definitions for the application.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 402 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in
// the gap, that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
//
// Do note that HTTPstatus 204 No Content implies the response body will be empty,
// so the Code and Message will actually be discarded, never sent to the client
var (
	// Authentication errors (401)
	ErrUnauthorized            = Error{Code: 40001, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("authentication required"), LogLevel: "info"}
	ErrUserNoVerified          = Error{Code: 40002, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("account email not verified"), LogLevel: "info"}
	ErrVerificationCodeExpired = Error{Code: 40003, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("verification code has expired"), LogLevel: "info"}
	ErrOAuthAccountMismatch    = Error{Code: 40004, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("account is not registered with this provider"), LogLevel: "info"}

	// Validation errors (400)
	ErrEmailMalformed        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid email format")}
	ErrPasswordTooShort      = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("password must be at least 8 characters")}
	ErrMalformedBody         = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrInvalidUserData       = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid user information provided")}
	ErrMalformedURLParam     = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid URL parameter")}
	ErrUserAlreadyVerified   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("user account is already verified")}
	ErrVerificationCodeValid = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("verification code is still valid")}
	ErrPaymentMethodUnknown  = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown payment method")}
	ErrTenureUnknown         = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown billing tenure")}
	ErrInvalidEventData      = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid event information provided")}
	ErrStorageInvalidObject  = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid storage object or parameters")}
	ErrInvalidData           = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid data provided")}

	// Webhook errors (400)
	ErrInvalidWebhookSignature = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("webhook signature verification failed"), LogLevel: "warn"}

	// Not found errors (404)
	ErrUserNotFound         = Error{Code: 40018, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("user not found")}
	ErrPlanNotFound         = Error{Code: 40019, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("subscription plan not found")}
	ErrEventNotFound        = Error{Code: 40020, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("event not found")}
	ErrBookingNotFound      = Error{Code: 40021, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("booking not found")}
	ErrSubscriptionNotFound = Error{Code: 40022, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("subscription not found at the payment gateway")}

	// Subscription state errors (400/402)
	ErrSubscriptionNotActive = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("subscription exists but is not active")}
	ErrPaymentFailed         = Error{Code: 40024, HTTPstatus: http.StatusPaymentRequired, Err: fmt.Errorf("error in activating subscription"), LogLevel: "warn"}
	ErrCancelFailed          = Error{Code: 40025, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unable to cancel subscription"), LogLevel: "warn"}
	ErrEventSoldOut          = Error{Code: 40026, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no tickets remaining for event")}

	// Conflict errors (409)
	ErrDuplicateConflict = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("resource already exists")}

	// Server errors (500) - These should be used sparingly and only for true internal errors
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response"), LogLevel: "error"}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed"), LogLevel: "error"}
	ErrPaymentGatewayError        = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrInternalStorageError       = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: storage operation failed"), LogLevel: "error"}
	ErrOAuthServerFailed          = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: OAuth provider request failed"), LogLevel: "error"}
	ErrWebhookProcessingFailed    = Error{Code: 50006, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: webhook processing failed"), LogLevel: "error"}
)
