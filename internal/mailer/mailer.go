package mailer

import (
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

// Mailer delivers the one-time reset secret out of band. The core never
// persists the plaintext secret; delivery is the only place it appears.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject("Your password reset link (valid for 10 minutes)")
	msg.SetBodyString(mail.TypeTextPlain,
		"Forgot your password? Submit a new password to:\n\n"+resetURL+
			"\n\nIf you didn't request a reset, ignore this email.")

	opts := []mail.Option{mail.WithPort(m.port)}
	if m.username != "" && m.password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// LogMailer is the development fallback when SMTP is not configured. The
// reset URL lands in the process log instead of an inbox.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(to, resetURL string) error {
	log.Printf("WARN SMTP not configured; password reset for %s: %s", to, resetURL)
	return nil
}
