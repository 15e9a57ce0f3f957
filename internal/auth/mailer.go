package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhatdang2003/tms-backend/internal/core/events"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type MailSender interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailSender writes mails to the log instead of delivering them.
type LogMailSender struct {
	logger *slog.Logger
}

func NewLogMailSender(lg *slog.Logger) *LogMailSender {
	if lg == nil {
		lg = slog.Default()
	}
	return &LogMailSender{logger: lg}
}

func (m *LogMailSender) Send(ctx context.Context, mail Mail) error {
	m.logger.InfoContext(ctx, "mail queued", "to", mail.To, "subject", mail.Subject, "body", mail.Body)
	return nil
}

// SubscribeMailer sends the reset link whenever a password reset is requested.
func SubscribeMailer(bus *events.EventBus, sender MailSender) {
	bus.Subscribe(events.EventTypePasswordResetRequested, func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.PasswordResetRequestedEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}
		return sender.Send(ctx, Mail{
			To:      e.Email,
			Subject: "Password reset request",
			Body: fmt.Sprintf("Hello %s, open %s to choose a new password. The link expires at %s.",
				e.FullName, e.ResetLink, e.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")),
		})
	})
}

// SubscribeAudit records session and password changes.
func SubscribeAudit(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventTypeSessionsRevoked, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(*events.SessionsRevokedEvent); ok {
			lg.InfoContext(ctx, "audit: sessions revoked",
				"user_id", e.UserID,
				"revoked_by", e.RevokedBy,
				"count", e.Count,
				"reason", e.Reason)
		}
		return nil
	})
	bus.Subscribe(events.EventTypePasswordChanged, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(*events.PasswordChangedEvent); ok {
			lg.InfoContext(ctx, "audit: password changed", "user_id", e.UserID, "source", e.Source)
		}
		return nil
	})
}
