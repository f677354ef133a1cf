package service

import "errors"

var (
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrResendUnavailable   = errors.New("resend unavailable: purchase has no buyer email or certificate")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)
