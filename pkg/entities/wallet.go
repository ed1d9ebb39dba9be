package entities

import (
	"time"
)

// Wallet represents the player's point balance
type Wallet struct {
	Balance     int64     `json:"balance"`      // Current spendable balance in points
	Currency    string    `json:"currency"`     // Display currency, e.g. "KOLO"
	LastUpdated time.Time `json:"last_updated"` // When the wallet was last updated
}

// TransactionKind represents the kind of wallet transaction
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "DEPOSIT"
	TransactionKindWithdrawal TransactionKind = "WITHDRAWAL"
)

// TransactionStatus represents the lifecycle status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction represents a single deposit or withdrawal.
// Records are immutable after creation except for the pending→completed/failed
// status transition on withdrawals.
type Transaction struct {
	ID           string            `json:"id"`
	Kind         TransactionKind   `json:"kind"`
	Method       string            `json:"method"`        // Payment method label, e.g. "card", "crypto"
	Amount       int64             `json:"amount"`        // Always positive
	Currency     string            `json:"currency"`      // e.g. "KOLO"
	Status       TransactionStatus `json:"status"`        // Deposits complete immediately, withdrawals start pending
	Destination  string            `json:"destination"`   // Withdrawal destination details, empty for deposits
	Timestamp    time.Time         `json:"timestamp"`     // When the transaction was created
	BalanceAfter int64             `json:"balance_after"` // Balance after this transaction was applied
}
