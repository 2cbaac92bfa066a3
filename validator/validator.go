// Package validator wraps go-playground/validator with the custom validation
// tags used by the API request types.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/tappio/backend/db"
)

// phoneRegex is a regular expression to validate phone numbers.
var phoneRegex = regexp.MustCompile(`^\+[0-9\s\(\)\-]+$`)

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
}

// New creates a new Validator instance with the custom tags registered.
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("tenure", validateTenure)
	_ = v.RegisterValidation("paymentmethod", validatePaymentMethod)

	return &Validator{
		validator: v,
	}
}

// Validate validates a struct using the validator package.
func (v *Validator) Validate(s any) error {
	return v.validator.Struct(s)
}

// validatePhone validates a phone number. An empty field is valid, combine
// with the required tag when the field is mandatory.
func validatePhone(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return phoneRegex.MatchString(fl.Field().String())
}

// validateTenure validates a billing tenure.
func validateTenure(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return db.IsValidTenure(db.Tenure(fl.Field().String()))
}

// validatePaymentMethod validates a payment gateway identifier.
func validatePaymentMethod(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	return db.IsValidPaymentMethod(db.PaymentMethod(fl.Field().String()))
}
