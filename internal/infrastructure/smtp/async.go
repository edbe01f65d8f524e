package smtp

import "log/slog"

// asyncMailer decorates a Mailer so delivery happens off the request path.
// Failures are logged, never surfaced: verification email is best-effort and
// the user can always request a resend.
type asyncMailer struct {
	next Mailer
}

// NewAsyncMailer wraps m so SendVerification returns immediately and the
// actual SMTP exchange runs in its own goroutine.
func NewAsyncMailer(m Mailer) Mailer {
	return &asyncMailer{next: m}
}

func (a *asyncMailer) SendVerification(to, username, token, baseURL string) error {
	go func() {
		if err := a.next.SendVerification(to, username, token, baseURL); err != nil {
			slog.Warn("verification email delivery failed", "to", to, "err", err)
		}
	}()
	return nil
}
