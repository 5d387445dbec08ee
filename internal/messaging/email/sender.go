// Package email provides transactional email delivery for follow-up
// touchpoints and check-in receipts. Two implementations exist: BrevoSender
// (REST API) and SMTPSender (direct SMTP via go-mail); NewSender picks one
// based on configuration.
package email

import (
	"context"

	"github.com/sngor/bayon-backend/platform/config"
)

// Sender delivers transactional email. Implementations do not retry;
// the caller owns retry policy.
type Sender interface {
	// SendFollowUpEmail delivers a pre-rendered follow-up body.
	SendFollowUpEmail(ctx context.Context, toEmail, subject, htmlContent string) error
	// SendCheckInReceiptEmail confirms an open-house check-in to the visitor.
	SendCheckInReceiptEmail(ctx context.Context, toEmail, visitorName, sessionTitle, address string) error
	// SendCustomEmail delivers arbitrary HTML content.
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email is disabled in configuration.
type NoopSender struct{}

func (NoopSender) SendFollowUpEmail(context.Context, string, string, string) error { return nil }

func (NoopSender) SendCheckInReceiptEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

// NewSender creates the configured Sender. Brevo wins when an API key is
// present; otherwise SMTP credentials are used; a NoopSender is returned
// when email is disabled entirely.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	if cfg.GetBrevoAPIKey() != "" {
		return NewBrevoSender(cfg), nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
