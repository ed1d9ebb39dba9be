package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Common storage errors
var (
	ErrKeyNotFound = errors.New("key not found")
)

// Key is a logical snapshot key. Missing keys at load time fall back to
// configured defaults (seed balance, empty log, zeroed stats).
type Key string

const (
	// KeyWallet holds the balance together with the profile fields the
	// wallet carries (currency, last update)
	KeyWallet          Key = "wallet-balance+profile"
	KeyTransactionLog  Key = "transaction-log"
	KeyGameStats       Key = "game-stats"
	KeyAchievements    Key = "achievement-set"
	KeyVipHistory      Key = "vip-history"
	KeyThemePreference Key = "theme-preference"
	KeyAIPersona       Key = "ai-persona-preference"
	KeyChatIndex       Key = "chat-session-index"
	KeyOrderLog        Key = "order-log"
	KeyCatalog         Key = "catalog-snapshot"
)

// Store defines the interface for key→JSON snapshot persistence
type Store interface {
	// Put saves or replaces the blob stored under key
	Put(ctx context.Context, key Key, value json.RawMessage) error

	// Get loads the blob stored under key
	Get(ctx context.Context, key Key) (json.RawMessage, error)

	// Keys lists all stored keys
	Keys(ctx context.Context) ([]Key, error)

	// Delete removes the blob stored under key
	Delete(ctx context.Context, key Key) error

	// Close flushes any pending writes and releases resources
	Close() error
}

// PutJSON marshals a value and stores it under key
func PutJSON(ctx context.Context, s Store, key Key, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, data)
}

// GetJSON loads the blob under key and unmarshals it into out. Returns
// ErrKeyNotFound if the key has never been stored.
func GetJSON(ctx context.Context, s Store, key Key, out interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Options represents storage configuration options
type Options struct {
	Path string
}

// NewOptions creates a new Options with default values
func NewOptions() *Options {
	return &Options{
		Path: "kolovegas.json",
	}
}
