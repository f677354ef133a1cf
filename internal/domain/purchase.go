package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the human-readable purchase time printed on records and certificates.
const TimeLayout = "02 Jan 2006 15:04:05"

// PurchaseRecord is one purchased cart entry. Delivery fields change on every attempt;
// identity fields never do.
type PurchaseRecord struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Unit            string          `json:"unit"`
	Time            string          `json:"time"`
	CreatedAt       time.Time       `json:"created_at"`
	BuyerEmail      string          `json:"buyer_email,omitempty"`
	Certificate     string          `json:"certificate,omitempty"`
	EmailSent       bool            `json:"email_sent"`
	EmailAttempts   int             `json:"email_attempts"`
	LastEmailSentAt *time.Time      `json:"last_email_sent_at,omitempty"`
	LastEmailError  string          `json:"last_email_error,omitempty"`
}

func (p *PurchaseRecord) HasCertificate() bool {
	return p.Certificate != ""
}

func (p *PurchaseRecord) Total() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// RecordDelivery applies the outcome of one delivery attempt. A nil err is a success.
func (p *PurchaseRecord) RecordDelivery(err error, at time.Time) {
	p.EmailAttempts++
	if err == nil {
		sentAt := at
		p.EmailSent = true
		p.LastEmailSentAt = &sentAt
		p.LastEmailError = ""
		return
	}
	p.EmailSent = false
	p.LastEmailError = err.Error()
	if p.LastEmailError == "" {
		p.LastEmailError = "delivery failed"
	}
}
