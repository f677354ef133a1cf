package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to CheckoutStatus
		want     bool
	}{
		{CheckoutStatusIdle, CheckoutStatusDraining, true},
		{CheckoutStatusIdle, CheckoutStatusSending, true},
		{CheckoutStatusDraining, CheckoutStatusIssuing, true},
		{CheckoutStatusDraining, CheckoutStatusSettled, true},
		{CheckoutStatusIssuing, CheckoutStatusSending, true},
		{CheckoutStatusIssuing, CheckoutStatusIssuing, true},
		{CheckoutStatusSending, CheckoutStatusIssuing, true},
		{CheckoutStatusSending, CheckoutStatusSettled, true},
		{CheckoutStatusIdle, CheckoutStatusSettled, false},
		{CheckoutStatusSettled, CheckoutStatusIssuing, false},
		{CheckoutStatusDraining, CheckoutStatusSending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitionTo(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCheckoutStatus_IsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusSettled.IsTerminal())
	assert.False(t, CheckoutStatusSending.IsTerminal())
}
