package delivery

import (
	"context"
	"errors"
)

var ErrDeliveryFailed = errors.New("email delivery failed")

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

func (m Message) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Name)
	}
	return names
}

// Sender delivers one message. A nil error means the message was accepted.
// Every call settles; failures are wrapped around ErrDeliveryFailed.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
