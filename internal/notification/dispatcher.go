package notification

import (
	"context"
	"fmt"

	"github.com/UkralStul/forum-service/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Dispatcher доставляет письмо одному получателю.
type Dispatcher interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer отправляет письма через SendGrid v3 API.
type SendGridMailer struct {
	client mailClient
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, recipient string, msg Message) error {
	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", recipient), msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status code %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer пишет письма в лог. Используется локально, когда ключ SendGrid не задан.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, recipient string, msg Message) error {
	logger.For(ctx).WithFields(logrus.Fields{
		"to":      recipient,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
