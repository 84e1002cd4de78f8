package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Email is one outgoing HTML message
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends email and returns the message id it used
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	domain string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		domain: host,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), m.domain)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetHeader("Message-ID", messageID)
	msg.SetBody("text/html", email.HTML)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return messageID, nil
}
