package main

import (
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tappio/backend/api"
	"github.com/tappio/backend/billing"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/notifications/mailtemplates"
	"github.com/tappio/backend/notifications/sendgrid"
	"github.com/tappio/backend/notifications/smtp"
	"github.com/tappio/backend/notifications/twilio"
	"github.com/tappio/backend/objectstorage"
	"github.com/tappio/backend/paypal"
	"github.com/tappio/backend/stripe"
	"go.vocdoni.io/dvote/log"
)

func main() {
	log.Init("debug", "stdout", nil)
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("secret", "s", "", "API secret")
	flag.String("mongo-url", "", "The URL of the MongoDB server")
	flag.String("mongo-db", "tappio", "The name of the MongoDB database")
	flag.String("web-app-url", "https://app.tappio.io", "The URL of the web application")
	flag.String("server-url", "https://api.tappio.io", "The public URL of this API server")
	flag.String("stripe-api-key", "", "Stripe secret API key")
	flag.String("stripe-webhook-secret", "", "Stripe webhook signing secret")
	flag.String("paypal-url", "https://api-m.sandbox.paypal.com", "PayPal REST API base URL")
	flag.String("paypal-client-id", "", "PayPal client ID")
	flag.String("paypal-secret", "", "PayPal client secret")
	flag.String("email-templates", "assets", "Path of the email templates directory")
	flag.String("smtp-server", "", "SMTP server")
	flag.Int("smtp-port", 587, "SMTP port")
	flag.String("smtp-username", "", "SMTP username")
	flag.String("smtp-password", "", "SMTP password")
	flag.String("email-from-address", "", "Email service from address")
	flag.String("email-from-name", "Tappio", "Email service from name")
	flag.String("sendgrid-api-key", "", "SendGrid API key, used instead of SMTP if set")
	flag.String("twilio-account-sid", "", "Twilio account SID")
	flag.String("twilio-auth-token", "", "Twilio auth token")
	flag.String("twilio-from-number", "", "Twilio from number")
	flag.String("google-oauth-key", "", "Google OAuth client ID")
	flag.String("google-oauth-secret", "", "Google OAuth client secret")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("TAPPIO")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	secret := viper.GetString("secret")
	if secret == "" {
		log.Fatal("secret is required")
	}
	mongoURL := viper.GetString("mongo-url")
	mongoDB := viper.GetString("mongo-db")
	webAppURL := viper.GetString("web-app-url")
	serverURL := viper.GetString("server-url")
	// initialize the MongoDB database
	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatalf("could not create the MongoDB database: %v", err)
	}
	defer database.Close()
	// create the stripe client and the webhook service
	stripeClient := stripe.NewClient(&stripe.Config{
		APIKey:        viper.GetString("stripe-api-key"),
		WebhookSecret: viper.GetString("stripe-webhook-secret"),
	})
	stripeWebhook, err := stripe.NewService(stripeClient)
	if err != nil {
		log.Fatalf("could not create the stripe webhook service: %v", err)
	}
	// create the paypal client
	paypalClient, err := paypal.New(paypal.Config{
		URL:      viper.GetString("paypal-url"),
		ClientID: viper.GetString("paypal-client-id"),
		Secret:   viper.GetString("paypal-secret"),
	})
	if err != nil {
		log.Fatalf("could not create the paypal client: %v", err)
	}
	// load the email templates
	if err := mailtemplates.Load(viper.GetString("email-templates")); err != nil {
		log.Fatalf("could not load email templates: %v", err)
	}
	// create the email service, sendgrid if an API key is set, SMTP otherwise
	var mailService notifications.NotificationService
	if sendgridAPIKey := viper.GetString("sendgrid-api-key"); sendgridAPIKey != "" {
		mailService = new(sendgrid.SendGridEmail)
		if err := mailService.Init(&sendgrid.SendGridConfig{
			FromName:    viper.GetString("email-from-name"),
			FromAddress: viper.GetString("email-from-address"),
			APIKey:      sendgridAPIKey,
		}); err != nil {
			log.Fatalf("could not init the sendgrid email service: %v", err)
		}
		log.Infow("email service created", "type", "sendgrid")
	} else if smtpServer := viper.GetString("smtp-server"); smtpServer != "" {
		mailService = new(smtp.Email)
		if err := mailService.Init(&smtp.Config{
			FromName:     viper.GetString("email-from-name"),
			FromAddress:  viper.GetString("email-from-address"),
			SMTPUsername: viper.GetString("smtp-username"),
			SMTPPassword: viper.GetString("smtp-password"),
			SMTPServer:   smtpServer,
			SMTPPort:     viper.GetInt("smtp-port"),
		}); err != nil {
			log.Fatalf("could not init the SMTP email service: %v", err)
		}
		log.Infow("email service created", "type", "smtp", "server", smtpServer)
	} else {
		log.Warn("no email service configured, verification codes will not be sent")
	}
	// create the SMS service if twilio is configured
	var smsService notifications.NotificationService
	if twilioSid := viper.GetString("twilio-account-sid"); twilioSid != "" {
		smsService = new(twilio.TwilioSMS)
		if err := smsService.Init(&twilio.TwilioConfig{
			AccountSid: twilioSid,
			AuthToken:  viper.GetString("twilio-auth-token"),
			FromNumber: viper.GetString("twilio-from-number"),
		}); err != nil {
			log.Fatalf("could not init the twilio SMS service: %v", err)
		}
		log.Infow("SMS service created", "type", "twilio")
	}
	// create the billing service
	billingService, err := billing.New(&billing.Config{
		DB:        database,
		Stripe:    stripeClient,
		PayPal:    paypalClient,
		Mail:      mailService,
		WebAppURL: webAppURL,
	})
	if err != nil {
		log.Fatalf("could not create the billing service: %v", err)
	}
	// create the object storage client
	objectStorage, err := objectstorage.New(&objectstorage.Config{
		DB:        database,
		ServerURL: serverURL,
	})
	if err != nil {
		log.Fatalf("could not create the object storage client: %v", err)
	}
	// create the local API server
	api.New(&api.Config{
		Host:              host,
		Port:              port,
		Secret:            secret,
		DB:                database,
		Billing:           billingService,
		StripeWebhook:     stripeWebhook,
		MailService:       mailService,
		SMSService:        smsService,
		ObjectStorage:     objectStorage,
		WebAppURL:         webAppURL,
		ServerURL:         serverURL,
		GoogleOAuthKey:    viper.GetString("google-oauth-key"),
		GoogleOAuthSecret: viper.GetString("google-oauth-secret"),
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
