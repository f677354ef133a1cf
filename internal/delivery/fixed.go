package delivery

import (
	"context"
	"fmt"
	"sync"
)

// Fixed settles every send immediately with a preset outcome. It records what it was
// asked to send.
type Fixed struct {
	mu     sync.Mutex
	fail   bool
	reason string
	sent   []Message
}

func NewFixed(succeed bool) *Fixed {
	return &Fixed{fail: !succeed, reason: "forced failure"}
}

func (f *Fixed) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, msg)
	if f.fail {
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, f.reason)
	}
	return nil
}

// SetOutcome switches the outcome of subsequent sends.
func (f *Fixed) SetOutcome(succeed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = !succeed
}

func (f *Fixed) Calls() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sent))
	copy(out, f.sent)
	return out
}
