package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/certshop/internal/session"
	log "github.com/sirupsen/logrus"
)

// SentEmail is one audit entry of an accepted message.
type SentEmail struct {
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments"`
	SentAt      time.Time `json:"sent_at"`
}

// SentLog is the session's audit log of accepted messages, stored under session.KeySentEmails.
type SentLog struct {
	store session.Store
	mu    sync.Mutex
	now   func() time.Time
}

func NewSentLog(store session.Store) *SentLog {
	return &SentLog{store: store, now: time.Now}
}

func (l *SentLog) Append(ctx context.Context, msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, SentEmail{
		To:          msg.To,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Attachments: msg.AttachmentNames(),
		SentAt:      l.now(),
	})
	return session.SetJSON(ctx, l.store, session.KeySentEmails, entries)
}

func (l *SentLog) Entries(ctx context.Context) ([]SentEmail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *SentLog) load(ctx context.Context) ([]SentEmail, error) {
	var entries []SentEmail
	if _, err := session.GetJSON(ctx, l.store, session.KeySentEmails, &entries); err != nil {
		return nil, fmt.Errorf("failed to load sent log: %w", err)
	}
	if entries == nil {
		entries = []SentEmail{}
	}
	return entries, nil
}

type loggingSender struct {
	next    Sender
	sentLog *SentLog
}

// WithSentLog records every successful send of next in sentLog. Failed sends leave no entry.
func WithSentLog(next Sender, sentLog *SentLog) Sender {
	return &loggingSender{next: next, sentLog: sentLog}
}

func (s *loggingSender) Send(ctx context.Context, msg Message) error {
	if err := s.next.Send(ctx, msg); err != nil {
		return err
	}
	if err := s.sentLog.Append(context.WithoutCancel(ctx), msg); err != nil {
		log.WithError(err).WithField("to", msg.To).Error("failed to append sent log entry")
	}
	return nil
}
