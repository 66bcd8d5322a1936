package notification

import (
	"context"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"go.uber.org/zap"
)

// LogNotificationSink writes notifications to the log. Stand-in until the
// real push/inbox service is wired.
type LogNotificationSink struct{}

func (LogNotificationSink) SendNotification(_ context.Context, event domain.NotificationEvent) error {
	log.Info("notification",
		zap.String("recipientID", event.RecipientID.String()),
		zap.String("type", string(event.Type)),
		zap.String("title", event.Title),
		zap.String("body", event.Body),
	)
	return nil
}

// LogEmailSink writes emails to the log. Stand-in until the real email
// service is wired.
type LogEmailSink struct{}

func (LogEmailSink) SendEmail(_ context.Context, event domain.EmailEvent) error {
	log.Info("email",
		zap.String("to", event.To),
		zap.String("subject", event.Subject),
	)
	return nil
}
