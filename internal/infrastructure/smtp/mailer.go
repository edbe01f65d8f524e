package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/contacts-api/internal/config"
)

// Mailer sends account emails.
type Mailer interface {
	SendVerification(to, username, token, baseURL string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// SendVerification delivers the email-confirmation link for a new or
// unconfirmed account.
func (m *mailer) SendVerification(to, username, token, baseURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nConfirm your email address by opening the link below:\r\n\r\n%s/api/auth/confirmed_email/%s\r\n",
		username, baseURL, token,
	)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, "Confirm your email", body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
