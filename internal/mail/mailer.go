// Package mail delivers notification and password-reset emails over
// SMTP. The Sender interface keeps callers unaware of the transport so
// tests can substitute a recorder and the consumer can treat delivery
// as fire-and-forget.
package mail

import "gopkg.in/gomail.v2"

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Implementations are constructed once at
// process start and injected.
type Sender interface {
	Send(m Message) error
}

// SMTPSender sends plain-text mail through a single SMTP account.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender. from is used as the From header for
// every message.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

// Send dials and delivers one message. Each call opens its own
// connection; volume here is a handful of mails per booking, not a
// campaign.
func (s *SMTPSender) Send(m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return s.dialer.DialAndSend(msg)
}
