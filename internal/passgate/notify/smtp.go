package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// ErrSMTPHostPortRequired is returned when Host/Port are missing.
var ErrSMTPHostPortRequired = errors.New("smtp host and port are required")

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port.
	Port int
	// Username is the SMTP authentication username.
	Username string
	// Password is the SMTP authentication password.
	Password string
	// From is the sender address on outgoing mail.
	From string
}

// SMTPNotifier delivers passcodes by email over net/smtp.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPNotifier constructs an SMTP-backed Notifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
	}, nil
}

// Notify sends the code to address. The context is only consulted before the
// send; net/smtp has no mid-flight cancellation, so callers bound the call
// with a timeout and treat expiry as delivery failure.
func (s *SMTPNotifier) Notify(ctx context.Context, address, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var headers []string
	headers = append(headers, fmt.Sprintf("From: %s", s.from))
	headers = append(headers, fmt.Sprintf("To: %s", address))
	headers = append(headers, "Subject: Your verification code")
	headers = append(headers, "MIME-Version: 1.0")
	headers = append(headers, "Content-Type: text/plain; charset=UTF-8")

	body := fmt.Sprintf("Your verification code is %s.\r\nIt expires in one minute.", code)
	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, s.auth, s.from, []string{address}, []byte(raw))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The goroutine finishes on its own; the attempt is already failed.
		return ctx.Err()
	}
}
