// Package mailer sends transactional HTML mail over SMTP. Used for
// password-reset OTPs.
package mailer

import (
	"fmt"
	"net/smtp"
)

// SMTPMailer sends mail through a single SMTP relay
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer creates a mailer for the given relay
func NewSMTPMailer(host, port, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers a single HTML message
func (m *SMTPMailer) Send(to, subject, html string) error {
	if m.host == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, html,
	))

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}
