package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"net/url"

	"authgate/internal/logger"
)

// Mailer delivers password reset links
type Mailer interface {
	SendPasswordReset(email string, secret string) error
}

type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	FrontendURL string // base for the reset link, e.g. https://app.example.com
}

// SMTPMailer sends the reset link over SMTP with STARTTLS
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendPasswordReset(email string, secret string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		m.cfg.FrontendURL, secret, url.QueryEscape(email))

	subject := "Reset your password"
	body := "Follow the link to choose a new password:\n" + resetURL +
		"\n\nThe link is valid for one hour and can be used once."

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	client, err := smtp.Dial(m.cfg.Host + ":" + m.cfg.Port)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close() // nolint:errcheck

	if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err = client.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	defer w.Close() // nolint:errcheck

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}

	return nil
}

// LogMailer is the dev fallback when SMTP is not configured. It logs that a
// reset was issued without logging the secret itself.
type LogMailer struct {
	Logger logger.Logger
}

func (m LogMailer) SendPasswordReset(email string, secret string) error {
	m.Logger.Info("password reset issued (smtp not configured, mail suppressed)", "email", email)
	return nil
}
