package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/armysmp/storefront/pkg/config"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const emailSendTimeout = 30 * time.Second

// EmailSender delivers a single transactional email
type EmailSender interface {
	Send(ctx context.Context, to, subject, textContent, htmlContent string) error
}

// SendGridSender sends email through SendGrid. Without an API key it runs in
// mock mode and only logs the message.
type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	mockMode  bool
}

var _ EmailSender = (*SendGridSender)(nil)

// NewSendGridSender creates a sender from the email config
func NewSendGridSender(cfg config.EmailConfig) *SendGridSender {
	s := &SendGridSender{
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		mockMode:  cfg.APIKey == "",
	}
	if !s.mockMode {
		s.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return s
}

// MockMode reports whether messages are only logged
func (s *SendGridSender) MockMode() bool {
	return s.mockMode
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, textContent, htmlContent string) error {
	if s.mockMode {
		logger.WithContext(ctx).Info("Email sent (mock)",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("content_preview", preview(textContent, 100)),
		)
		return nil
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail("", to),
		textContent,
		htmlContent,
	)

	ctx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("email provider error: status %d, body: %s", response.StatusCode, response.Body)
	}

	logger.WithContext(ctx).Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("status_code", response.StatusCode),
	)
	return nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
