package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"repairshop/internal/config"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultContentType = "application/octet-stream"

// mailClient is the subset of the SendGrid client used by SendGridSender.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers messages through the SendGrid v3 mail API.
type SendGridSender struct {
	client mailClient
	from   *mail.Email
	logger zerolog.Logger
}

// NewSendGridSender creates a sender from configuration.
func NewSendGridSender(cfg config.SendGridConfig, logger zerolog.Logger) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sendgrid from email is required")
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger), nil
}

func newSendGridSender(client mailClient, cfg config.SendGridConfig, logger zerolog.Logger) *SendGridSender {
	return &SendGridSender{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger.With().Str("component", "sendgrid").Logger(),
	}
}

// Send builds a v3 mail payload and sends it. Any non-2xx response is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error().Err(err).Str("recipient", msg.Recipient).Msg("sendgrid request failed")
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp == nil {
		return errors.New("sendgrid send: empty response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", resp.Body).
			Str("recipient", msg.Recipient).
			Msg("sendgrid rejected message")
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}

	s.logger.Info().
		Str("recipient", msg.Recipient).
		Int("attachments", len(msg.Attachments)).
		Msg("notification sent")
	return nil
}

func (s *SendGridSender) build(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.Recipient))
	m.AddPersonalizations(p)

	body := msg.Body
	if body == "" {
		body = msg.Subject
	}
	m.AddContent(mail.NewContent("text/plain", body))

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(contentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}
