// Package sendgrid provides a SendGrid-based implementation of the
// NotificationService interface for sending email notifications.
package sendgrid

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tappio/backend/notifications"
)

// SendGridConfig holds the sender identity and API key of the SendGrid
// account.
type SendGridConfig struct {
	FromName    string
	FromAddress string
	APIKey      string
}

// SendGridEmail is the implementation of the NotificationService interface
// for the SendGrid email service.
type SendGridEmail struct {
	config *SendGridConfig
	client *sendgrid.Client
}

// Init initializes the SendGrid email service with the configuration.
func (sg *SendGridEmail) Init(rawConfig any) error {
	// parse configuration
	config, ok := rawConfig.(*SendGridConfig)
	if !ok {
		return fmt.Errorf("invalid SendGrid configuration")
	}
	// set configuration in struct
	sg.config = config
	// init SendGrid client
	sg.client = sendgrid.NewSendClient(sg.config.APIKey)
	return nil
}

// SendNotification sends an email notification to the recipient through the
// SendGrid API.
func (sg *SendGridEmail) SendNotification(ctx context.Context, notification *notifications.Notification) error {
	// create from email
	from := mail.NewEmail(sg.config.FromName, sg.config.FromAddress)
	to := mail.NewEmail(notification.ToName, notification.ToAddress)
	// create email with notification data
	message := mail.NewSingleEmail(from, notification.Subject, to, notification.PlainBody, notification.Body)
	// send the email
	_, err := sg.client.SendWithContext(ctx, message)
	return err
}
