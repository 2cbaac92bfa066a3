package api

const (
	// auth routes

	// POST /auth/login to login and get a JWT token
	authLoginEndpoint = "/auth/login"
	// POST /auth/refresh to refresh the JWT token
	authRefreshTokenEndpoint = "/auth/refresh"
	// POST /auth/oauth to login with an OAuth provider authorization code
	oauthLoginEndpoint = "/auth/oauth"

	// user routes

	// POST /users to register a new user
	usersEndpoint = "/users"
	// POST /users/verify to verify the user account
	verifyUserEndpoint = "/users/verify"
	// GET/POST /users/verify/code to get the verification code info or resend it
	verifyUserCodeEndpoint = "/users/verify/code"
	// GET/PUT /users/me to get or update the current user information
	usersMeEndpoint = "/users/me"
	// PUT /users/password to update the current user password
	usersPasswordEndpoint = "/users/password"
	// POST /users/password/recovery to request a password recovery code
	usersRecoveryPasswordEndpoint = "/users/password/recovery"
	// POST /users/password/reset to reset the password with a recovery code
	usersResetPasswordEndpoint = "/users/password/reset"

	// plan routes

	// GET/POST /plans to list the plans or create one (admin)
	plansEndpoint = "/plans"
	// GET/PUT/DELETE /plans/{planID} to get, update or delete a plan
	planInfoEndpoint = "/plans/{planID}"

	// payment routes

	// POST/GET /payments to purchase a subscription or get its status
	paymentsEndpoint = "/payments"
	// POST /payments/cancel to cancel the current subscription
	paymentsCancelEndpoint = "/payments/cancel"
	// GET /payments/history to get the payment history
	paymentsHistoryEndpoint = "/payments/history"
	// POST /payments/webhook/stripe to receive stripe webhook events
	paymentsWebhookStripeEndpoint = "/payments/webhook/stripe"

	// event routes

	// GET/POST /events to list the events or create one (admin)
	eventsEndpoint = "/events"
	// GET/PUT/DELETE /events/{eventID} to get, update or delete an event
	eventInfoEndpoint = "/events/{eventID}"

	// booking routes

	// POST/GET /bookings to book a ticket or list the user bookings
	bookingsEndpoint = "/bookings"

	// storage routes

	// POST /storage to upload an image
	storageUploadEndpoint = "/storage"
	// GET /storage/{objectName} to download an image
	storageDownloadEndpoint = "/storage/{objectName}"
)
