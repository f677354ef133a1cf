package delivery

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	DefaultMinLatency  = 900 * time.Millisecond
	DefaultMaxLatency  = 1800 * time.Millisecond
	DefaultSuccessRate = 0.85
)

var failureReasons = []string{
	"recipient mailbox unavailable",
	"smtp relay timed out",
	"message rejected by spam filter",
	"temporary dns failure",
}

// Dice yields numbers in [0, 1). *rand.Rand satisfies it.
type Dice interface {
	Float64() float64
}

// RandomDice uses the global math/rand source, which is safe for concurrent use.
type RandomDice struct{}

func (RandomDice) Float64() float64 {
	return rand.Float64()
}

// Simulator stands in for an outbound mail relay: it waits a random latency and then
// accepts or rejects the message.
type Simulator struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	successRate float64
	dice        Dice
}

func NewSimulator(minLatency, maxLatency time.Duration, successRate float64, dice Dice) *Simulator {
	if maxLatency < minLatency {
		maxLatency = minLatency
	}
	return &Simulator{
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		successRate: successRate,
		dice:        dice,
	}
}

func (s *Simulator) Send(ctx context.Context, msg Message) error {
	latency := s.latency(s.dice.Float64())
	timer := time.NewTimer(latency)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, ctx.Err())
	}

	if ok, reason := calcOutcome(s.dice.Float64(), s.successRate); !ok {
		return fmt.Errorf("%w: %s <%s>", ErrDeliveryFailed, reason, msg.To)
	}
	return nil
}

func (s *Simulator) latency(roll float64) time.Duration {
	spread := s.maxLatency - s.minLatency
	return s.minLatency + time.Duration(roll*float64(spread))
}

// calcOutcome maps a roll in [0, 1) to success below successRate, otherwise to one of the
// failure reasons spread evenly over the remaining range.
func calcOutcome(roll, successRate float64) (bool, string) {
	if roll < successRate {
		return true, ""
	}
	failSpan := 1 - successRate
	if failSpan <= 0 {
		return false, failureReasons[0]
	}
	idx := int((roll - successRate) / failSpan * float64(len(failureReasons)))
	if idx >= len(failureReasons) {
		idx = len(failureReasons) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return false, failureReasons[idx]
}
