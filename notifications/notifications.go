// Package notifications defines the notification types and the service
// interface implemented by the email and SMS backends.
package notifications

import "context"

// Notification is a message to be delivered to a user, by email or SMS
// depending on the service used.
type Notification struct {
	ToName    string
	ToAddress string
	ToNumber  string
	Subject   string
	Body      string
	PlainBody string
}

// NotificationService is implemented by every notification backend. Init
// receives a backend specific configuration struct.
type NotificationService interface {
	Init(conf any) error
	SendNotification(context.Context, *Notification) error
}
