package mailtemplates

import "github.com/tappio/backend/notifications"

// VerifyAccountNotification is the notification to be sent when a user creates
// an account and needs to verify it.
var VerifyAccountNotification = MailTemplate{
	File: "verification_account",
	Placeholder: notifications.Notification{
		Subject: "Tappio verification code",
		PlainBody: `Your Tappio verification code is: {{.Code}}

You can also use this link to verify your account: {{.Link}}`,
	},
	WebAppURI: "/account/verify",
}

// PasswordResetNotification is the notification to be sent when a user
// requests a password reset.
var PasswordResetNotification = MailTemplate{
	File: "forgot_password",
	Placeholder: notifications.Notification{
		Subject: "Tappio password reset",
		PlainBody: `Your Tappio password reset code is: {{.Code}}

You can also use this link to reset your password: {{.Link}}`,
	},
	WebAppURI: "/account/password/reset",
}

// CancelFailedNotification is the notification to be sent when a superseded
// subscription could not be cancelled at its payment gateway after a new
// purchase.
var CancelFailedNotification = MailTemplate{
	File: "cancel_subscription",
	Placeholder: notifications.Notification{
		Subject: "Action needed: your previous Tappio subscription is still active",
		PlainBody: `Hi {{.Name}},

We could not cancel your previous subscription ({{.Subscription}}) after your
new purchase. Please cancel it manually from your account page: {{.Link}}`,
	},
}

// TicketBookedNotification is the notification to be sent when a user books a
// ticket for an event.
var TicketBookedNotification = MailTemplate{
	File: "ticket_booked",
	Placeholder: notifications.Notification{
		Subject: "Your Tappio ticket is booked",
		PlainBody: `Hi {{.Name}},

Your ticket for {{.Event}} is booked. Your ticket code is: {{.TicketCode}}`,
	},
}
