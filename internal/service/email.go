package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"sectland-backend/internal/config"
	"sectland-backend/internal/logger"
)

type emailService struct {
	client  *sendgrid.Client
	from    *mail.Email
	enabled bool
}

// NewEmailService creates the SendGrid-backed email sender. When email is
// disabled in configuration, Send logs and returns nil.
func NewEmailService(cfg config.EmailConfig) EmailService {
	svc := &emailService{
		from:    mail.NewEmail("Sect Territory Office", cfg.From),
		enabled: cfg.Enabled,
	}
	if cfg.Enabled {
		svc.client = sendgrid.NewSendClient(cfg.SendgridAPIKey)
	}
	return svc
}

func (s *emailService) Send(ctx context.Context, toName, toAddr, subject, body string) error {
	if !s.enabled {
		logger.Debug("email disabled, skipping send", "to", toAddr, "subject", subject)
		return nil
	}
	if toAddr == "" {
		return nil
	}

	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(toName, toAddr), body, "")
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	logger.Debug("email sent", "to", toAddr, "subject", subject)
	return nil
}
