package db

const (
	// user roles
	AdminRole       UserRole = "admin"
	UserRoleDefault UserRole = "user"
	// verification code types
	CodeTypeVerifyAccount CodeType = "verify_account"
	CodeTypePasswordReset CodeType = "password_reset"
	// payment methods
	MethodStripe PaymentMethod = "stripe"
	MethodPayPal PaymentMethod = "paypal"
	// billing tenures
	TenureMonth Tenure = "month"
	TenureYear  Tenure = "year"
)

// validPaymentMethods is a map that contains the supported payment methods
var validPaymentMethods = map[PaymentMethod]bool{
	MethodStripe: true,
	MethodPayPal: true,
}

// IsValidPaymentMethod function checks if the payment method is supported
func IsValidPaymentMethod(m PaymentMethod) bool {
	return validPaymentMethods[m]
}

// validTenures is a map that contains the supported billing tenures
var validTenures = map[Tenure]bool{
	TenureMonth: true,
	TenureYear:  true,
}

// IsValidTenure function checks if the billing tenure is supported
func IsValidTenure(t Tenure) bool {
	return validTenures[t]
}

// validRoles is a map that contains the valid user roles
var validRoles = map[UserRole]bool{
	AdminRole:       true,
	UserRoleDefault: true,
}

// IsValidUserRole function checks if the user role is valid
func IsValidUserRole(role UserRole) bool {
	return validRoles[role]
}
