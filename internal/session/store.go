package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys of the session layout.
const (
	KeyCart            = "cart"
	KeyPurchases       = "purchases"
	KeySentEmails      = "sentEmails"
	KeySendingPurchase = "sendingPurchase"
)

var (
	ErrKeyNotFound = errors.New("session key not found")
	ErrNoSessionID = errors.New("session id is required")
)

// Store is a string key-value store scoped to one session.
// Consumers depend on this interface, not on the Redis or in-memory implementation.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Provider opens the store that belongs to a session id.
type Provider interface {
	Open(ctx context.Context, sessionID string) (Store, error)
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return true, nil
}

// SetJSON replaces the value under key with the JSON encoding of v.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
