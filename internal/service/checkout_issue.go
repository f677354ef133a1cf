package service

import (
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// issue attaches a certificate to the record. A rendering failure leaves the record
// without one.
func (s *CheckoutService) issue(record *domain.PurchaseRecord, issuer string) {
	cert, err := s.issuer.Generate(*record, issuer)
	if err != nil {
		metrics.CertificateFailures.Inc()
		log.WithError(err).WithField("purchase_id", record.ID).Warn("certificate generation failed, continuing without it")
		return
	}
	record.Certificate = cert.DataURI
}
