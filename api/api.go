// Package api provides the HTTP API of the Tappio backend. It exposes the
// account, subscription, event and storage endpoints over a chi router with
// JWT authentication.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
	"github.com/tappio/backend/billing"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/objectstorage"
	"github.com/tappio/backend/stripe"
	"github.com/tappio/backend/validator"
	"go.vocdoni.io/dvote/log"
)

const (
	jwtExpiration = 360 * time.Hour // 15 days
	passwordSalt  = "tappio365"     // salt for password hashing
)

// Config holds the dependencies and settings of the API server.
type Config struct {
	Host          string
	Port          int
	Secret        string
	DB            *db.MongoStorage
	Billing       *billing.Service
	StripeWebhook *stripe.Service
	MailService   notifications.NotificationService
	SMSService    notifications.NotificationService
	ObjectStorage *objectstorage.Client
	WebAppURL     string
	ServerURL     string
	// Google OAuth credentials, social login is disabled if empty.
	GoogleOAuthKey    string
	GoogleOAuthSecret string
}

// API type represents the API HTTP server with JWT authentication capabilities.
type API struct {
	db            *db.MongoStorage
	auth          *jwtauth.JWTAuth
	host          string
	port          int
	router        *chi.Mux
	billing       *billing.Service
	stripeWebhook *stripe.Service
	mail          notifications.NotificationService
	sms           notifications.NotificationService
	objectStorage *objectstorage.Client
	validator     *validator.Validator
	oauthProvider goth.Provider
	webAppURL     string
	serverURL     string
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	// set the ServerURL for the object storage client so it can build
	// download URLs
	if conf.ObjectStorage != nil {
		conf.ObjectStorage.ServerURL = conf.ServerURL
	}
	a := &API{
		db:            conf.DB,
		auth:          jwtauth.New("HS256", []byte(conf.Secret), nil),
		host:          conf.Host,
		port:          conf.Port,
		billing:       conf.Billing,
		stripeWebhook: conf.StripeWebhook,
		mail:          conf.MailService,
		sms:           conf.SMSService,
		objectStorage: conf.ObjectStorage,
		validator:     validator.New(),
		webAppURL:     conf.WebAppURL,
		serverURL:     conf.ServerURL,
	}
	if conf.GoogleOAuthKey != "" && conf.GoogleOAuthSecret != "" {
		provider := google.New(conf.GoogleOAuthKey, conf.GoogleOAuthSecret,
			conf.WebAppURL+"/auth/oauth/callback", "email", "profile")
		goth.UseProviders(provider)
		a.oauthProvider = provider
	}
	return a
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.initRouter()); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))

	// protected routes
	r.Group(func(r chi.Router) {
		// seek, verify and validate JWT tokens
		r.Use(jwtauth.Verifier(a.auth))
		// handle valid JWT tokens
		r.Use(a.authenticator)
		// refresh the token
		log.Infow("new route", "method", "POST", "path", authRefreshTokenEndpoint)
		r.Post(authRefreshTokenEndpoint, a.refreshTokenHandler)
		// get user information
		log.Infow("new route", "method", "GET", "path", usersMeEndpoint)
		r.Get(usersMeEndpoint, a.userInfoHandler)
		// update user information
		log.Infow("new route", "method", "PUT", "path", usersMeEndpoint)
		r.Put(usersMeEndpoint, a.updateUserInfoHandler)
		// update user password
		log.Infow("new route", "method", "PUT", "path", usersPasswordEndpoint)
		r.Put(usersPasswordEndpoint, a.updateUserPasswordHandler)
		// purchase a subscription
		log.Infow("new route", "method", "POST", "path", paymentsEndpoint)
		r.With(a.validator.ValidateMiddleware(PurchaseRequest{})).
			Post(paymentsEndpoint, a.purchaseHandler)
		// get subscription status
		log.Infow("new route", "method", "GET", "path", paymentsEndpoint)
		r.Get(paymentsEndpoint, a.subscriptionStatusHandler)
		// cancel the current subscription
		log.Infow("new route", "method", "POST", "path", paymentsCancelEndpoint)
		r.Post(paymentsCancelEndpoint, a.cancelSubscriptionHandler)
		// get payment history
		log.Infow("new route", "method", "GET", "path", paymentsHistoryEndpoint)
		r.Get(paymentsHistoryEndpoint, a.paymentHistoryHandler)
		// book a ticket for an event
		log.Infow("new route", "method", "POST", "path", bookingsEndpoint)
		r.With(a.validator.ValidateMiddleware(BookingRequest{})).
			Post(bookingsEndpoint, a.bookTicketHandler)
		// list the bookings of the current user
		log.Infow("new route", "method", "GET", "path", bookingsEndpoint)
		r.Get(bookingsEndpoint, a.myBookingsHandler)
		// upload an image to the object storage
		log.Infow("new route", "method", "POST", "path", storageUploadEndpoint)
		r.Post(storageUploadEndpoint, a.uploadImageHandler)

		// admin only routes
		r.Group(func(r chi.Router) {
			r.Use(a.adminOnly)
			// create a subscription plan
			log.Infow("new route", "method", "POST", "path", plansEndpoint)
			r.Post(plansEndpoint, a.createPlanHandler)
			// update a subscription plan
			log.Infow("new route", "method", "PUT", "path", planInfoEndpoint)
			r.Put(planInfoEndpoint, a.updatePlanHandler)
			// delete a subscription plan
			log.Infow("new route", "method", "DELETE", "path", planInfoEndpoint)
			r.Delete(planInfoEndpoint, a.deletePlanHandler)
			// create an event
			log.Infow("new route", "method", "POST", "path", eventsEndpoint)
			r.Post(eventsEndpoint, a.createEventHandler)
			// update an event
			log.Infow("new route", "method", "PUT", "path", eventInfoEndpoint)
			r.Put(eventInfoEndpoint, a.updateEventHandler)
			// delete an event
			log.Infow("new route", "method", "DELETE", "path", eventInfoEndpoint)
			r.Delete(eventInfoEndpoint, a.deleteEventHandler)
		})
	})

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			if _, err := w.Write([]byte(".")); err != nil {
				log.Warnw("failed to write ping response", "error", err)
			}
		})
		// login
		log.Infow("new route", "method", "POST", "path", authLoginEndpoint)
		r.Post(authLoginEndpoint, a.authLoginHandler)
		// social login
		log.Infow("new route", "method", "POST", "path", oauthLoginEndpoint)
		r.Post(oauthLoginEndpoint, a.oauthLoginHandler)
		// register user
		log.Infow("new route", "method", "POST", "path", usersEndpoint)
		r.With(a.validator.ValidateMiddleware(UserInfo{})).
			Post(usersEndpoint, a.registerHandler)
		// verify user
		log.Infow("new route", "method", "POST", "path", verifyUserEndpoint)
		r.Post(verifyUserEndpoint, a.verifyUserAccountHandler)
		// get user verification code information
		log.Infow("new route", "method", "GET", "path", verifyUserCodeEndpoint)
		r.Get(verifyUserCodeEndpoint, a.userVerificationCodeInfoHandler)
		// resend user verification code
		log.Infow("new route", "method", "POST", "path", verifyUserCodeEndpoint)
		r.Post(verifyUserCodeEndpoint, a.resendUserVerificationCodeHandler)
		// request user password recovery
		log.Infow("new route", "method", "POST", "path", usersRecoveryPasswordEndpoint)
		r.Post(usersRecoveryPasswordEndpoint, a.recoverUserPasswordHandler)
		// reset user password
		log.Infow("new route", "method", "POST", "path", usersResetPasswordEndpoint)
		r.Post(usersResetPasswordEndpoint, a.resetUserPasswordHandler)
		// get subscription plans
		log.Infow("new route", "method", "GET", "path", plansEndpoint)
		r.Get(plansEndpoint, a.getPlansHandler)
		// get subscription plan info
		log.Infow("new route", "method", "GET", "path", planInfoEndpoint)
		r.Get(planInfoEndpoint, a.planInfoHandler)
		// list events
		log.Infow("new route", "method", "GET", "path", eventsEndpoint)
		r.Get(eventsEndpoint, a.eventsHandler)
		// get event info
		log.Infow("new route", "method", "GET", "path", eventInfoEndpoint)
		r.Get(eventInfoEndpoint, a.eventInfoHandler)
		// handle stripe webhook
		log.Infow("new route", "method", "POST", "path", paymentsWebhookStripeEndpoint)
		r.Post(paymentsWebhookStripeEndpoint, a.stripeWebhookHandler)
		// download an image from the object storage
		log.Infow("new route", "method", "GET", "path", storageDownloadEndpoint)
		r.Get(storageDownloadEndpoint, a.downloadImageHandler)
	})
	a.router = r
	return r
}
