package smtp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	qt "github.com/frankban/quicktest"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/test"
)

func TestSendNotification(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mailContainer, err := test.StartMailService(ctx)
	c.Assert(err, qt.IsNil)
	defer func() { _ = mailContainer.Terminate(ctx) }()

	host, err := mailContainer.Host(ctx)
	c.Assert(err, qt.IsNil)
	smtpPort, err := mailContainer.MappedPort(ctx, nat.Port(test.MailSMTPPort))
	c.Assert(err, qt.IsNil)
	apiPort, err := mailContainer.MappedPort(ctx, nat.Port(test.MailAPIPort))
	c.Assert(err, qt.IsNil)

	mail := new(Email)
	c.Assert(mail.Init(&Config{
		FromName:    "Tappio",
		FromAddress: "noreply@tappio.io",
		SMTPServer:  host,
		SMTPPort:    smtpPort.Int(),
		TestAPIPort: apiPort.Int(),
	}), qt.IsNil)

	// a config of the wrong type is rejected
	c.Assert(new(Email).Init("not a config"), qt.IsNotNil)

	sendCtx, sendCancel := context.WithTimeout(ctx, 30*time.Second)
	defer sendCancel()
	c.Assert(mail.SendNotification(sendCtx, &notifications.Notification{
		ToName:    "Jane Doe",
		ToAddress: "jane@tappio.io",
		Subject:   "Tappio verification code",
		PlainBody: "Your Tappio verification code is: abc123",
		Body:      "<p>Your Tappio verification code is: <b>abc123</b></p>",
	}), qt.IsNil)

	// the message shows up in the MailHog inbox
	var body string
	for i := 0; i < 10; i++ {
		body, err = mail.FindEmail(ctx, "jane@tappio.io")
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(body, "abc123"), qt.IsTrue)
}
