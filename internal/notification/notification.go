package notification

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// Attachment is a binary file delivered with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outbound customer notification.
type Message struct {
	Recipient   string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages to customers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks that a message can be handed to a provider.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.Recipient); err != nil {
		return errors.New("recipient must be a valid email address")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	for _, a := range m.Attachments {
		if a.Filename == "" || len(a.Content) == 0 {
			return errors.New("attachments need a filename and content")
		}
	}
	return nil
}
