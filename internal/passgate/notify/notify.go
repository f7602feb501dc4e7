// Package notify is the out-of-band delivery capability for one-time
// passcodes. The core only ever asks it to put a 4-digit code in front of a
// configured address; message shape and transport are this package's concern.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a one-time passcode to an out-of-band address. A nil
// error means the code is on its way; anything else (including a context
// timeout) is a delivery failure and aborts the login attempt.
type Notifier interface {
	Notify(ctx context.Context, address, code string) error
}

// LogNotifier writes codes to the service log instead of delivering them.
// It is the fallback when no SMTP host is configured, which keeps local
// development usable without a mail server. Never use it in production.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, address, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.Logger.Warn("smtp not configured, logging passcode instead of delivering it",
		"address", address,
		"code", code,
	)
	return nil
}
