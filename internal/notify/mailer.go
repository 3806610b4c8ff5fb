package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Message is a rendered HTML email.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send dials the relay and delivers msg. gomail has no context support, so
// ctx is only consulted before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	return m.dialer.DialAndSend(gm)
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogMailer struct {
	log *logrus.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log *logrus.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs msg.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
		"bytes":   len(msg.HTMLBody),
	}).Info("Email (not sent, no SMTP relay configured)")
	return nil
}
