// AngelaMos | 2026
// mailer.go

package auth

import (
	"context"
	"log/slog"
)

type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, code string) error
}

// LogMailer writes verification codes to the log instead of sending mail.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(ctx context.Context, email, code string) error {
	m.logger.InfoContext(ctx, "verification code issued",
		"email", email,
		"code", code,
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	m.logger.InfoContext(ctx, "password reset code issued",
		"email", email,
		"code", code,
	)
	return nil
}
