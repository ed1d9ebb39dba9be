package wallet

import (
	"context"

	"github.com/fadedpez/kolovegas/pkg/entities"
)

// Repository defines the interface for wallet data operations. The engine
// is single-user, so there is exactly one wallet row.
type Repository interface {
	// GetWallet retrieves the wallet
	GetWallet(ctx context.Context) (*entities.Wallet, error)

	// SaveWallet creates or updates the wallet
	SaveWallet(ctx context.Context, wallet *entities.Wallet) error

	// AddTransaction records a new transaction
	AddTransaction(ctx context.Context, transaction *entities.Transaction) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(ctx context.Context, id string) (*entities.Transaction, error)

	// UpdateTransactionStatus applies the pending→completed/failed transition
	UpdateTransactionStatus(ctx context.Context, id string, status entities.TransactionStatus) error

	// GetTransactions retrieves recent transactions, newest first
	GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error)

	// GetTransactionsByKind retrieves transactions of a specific kind, newest first
	GetTransactionsByKind(ctx context.Context, kind entities.TransactionKind, limit int) ([]*entities.Transaction, error)
}
