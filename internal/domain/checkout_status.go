package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle     CheckoutStatus = "IDLE"
	CheckoutStatusDraining CheckoutStatus = "DRAINING"
	CheckoutStatusIssuing  CheckoutStatus = "ISSUING"
	CheckoutStatusSending  CheckoutStatus = "SENDING"
	CheckoutStatusSettled  CheckoutStatus = "SETTLED"
)

var allowedTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:     {CheckoutStatusDraining, CheckoutStatusSending},
	CheckoutStatusDraining: {CheckoutStatusIssuing, CheckoutStatusSettled},
	CheckoutStatusIssuing:  {CheckoutStatusSending, CheckoutStatusIssuing, CheckoutStatusSettled},
	CheckoutStatusSending:  {CheckoutStatusIssuing, CheckoutStatusSettled},
}

// CanTransitionTo reports whether a checkout or resend run may move from one state to the next.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSettled
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
