package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Mailer dispatches outbound email. Implementations must contain their own
// failures: callers treat Send as fire-and-forget and only ever log a
// returned error.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// LogMailer is the development Mailer: it logs what would be sent. Swap in a
// provider-backed implementation for production delivery.
type LogMailer struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewLogMailer constructs the mailer.
func NewLogMailer(logger *zap.Logger, cfg config.NotificationConfig) *LogMailer {
	return &LogMailer{logger: logger, cfg: cfg}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	m.logger.Info("would send email",
		zap.String("from", m.cfg.EmailFrom),
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
