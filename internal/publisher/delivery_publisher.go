package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const Topic = "certificate-deliveries"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deliveryPayload is what downstream consumers see. The certificate blob is left out.
type deliveryPayload struct {
	SessionID      string     `json:"session_id"`
	PurchaseID     string     `json:"purchase_id"`
	ProductID      string     `json:"product_id"`
	Quantity       int        `json:"quantity"`
	BuyerEmail     string     `json:"buyer_email"`
	EmailSent      bool       `json:"email_sent"`
	EmailAttempts  int        `json:"email_attempts"`
	LastEmailError string     `json:"last_email_error,omitempty"`
	LastSentAt     *time.Time `json:"last_email_sent_at,omitempty"`
	SettledAt      time.Time  `json:"settled_at"`
}

// DeliveryPublisher forwards settled deliveries to Kafka. Events are queued by Handle and
// written by Run; when the queue is full the event is dropped.
type DeliveryPublisher struct {
	writer     messageWriter
	queue      chan events.Event
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
}

func NewDeliveryPublisher(queueSize int, brokers ...string) *DeliveryPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newDeliveryPublisher(w, queueSize)
}

func newDeliveryPublisher(w messageWriter, queueSize int) *DeliveryPublisher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &DeliveryPublisher{
		writer:     w,
		queue:      make(chan events.Event, queueSize),
		timeout:    time.Second * 5,
		attempts:   3,
		retryDelay: time.Millisecond * 200,
	}
}

// Handle is an events.Subscriber. It never blocks the dispatching checkout.
func (p *DeliveryPublisher) Handle(_ context.Context, event events.Event) {
	if event.Type != events.DeliverySettled || event.Purchase == nil {
		return
	}
	select {
	case p.queue <- event:
	default:
		log.WithFields(log.Fields{
			"purchase_id": event.PurchaseID,
			"session_id":  event.SessionID,
		}).Warn("delivery publisher queue full, dropping event")
	}
}

func (p *DeliveryPublisher) Run(ctx context.Context) {
	for {
		select {
		case event := <-p.queue:
			if err := p.publish(ctx, event); err != nil {
				log.WithError(err).WithField("purchase_id", event.PurchaseID).Error("failed to publish delivery event")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *DeliveryPublisher) Close() error {
	return p.writer.Close()
}

func (p *DeliveryPublisher) publish(ctx context.Context, event events.Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			return p.writer.WriteMessages(writeCtx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.retryDelay),
		retry.LastErrorOnly(true),
	)
}

func toMessage(event events.Event) (kafka.Message, error) {
	rec := event.Purchase
	payload := deliveryPayload{
		SessionID:      event.SessionID,
		PurchaseID:     rec.ID,
		ProductID:      rec.ProductID,
		Quantity:       rec.Quantity,
		BuyerEmail:     rec.BuyerEmail,
		EmailSent:      rec.EmailSent,
		EmailAttempts:  rec.EmailAttempts,
		LastEmailError: rec.LastEmailError,
		LastSentAt:     rec.LastEmailSentAt,
		SettledAt:      event.At,
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal delivery payload: %w", err)
	}

	return kafka.Message{
		Key:   []byte(rec.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
