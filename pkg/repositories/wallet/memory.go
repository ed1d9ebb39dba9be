package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/google/uuid"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	wallet       *entities.Wallet
	transactions []*entities.Transaction
	mu           sync.RWMutex
}

// NewMemoryRepository creates a new in-memory wallet repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make([]*entities.Transaction, 0),
	}
}

// GetWallet retrieves the wallet
func (r *MemoryRepository) GetWallet(ctx context.Context) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.wallet == nil {
		return nil, ErrWalletNotFound
	}

	// Return a copy to prevent concurrent modification
	walletCopy := *r.wallet
	return &walletCopy, nil
}

// SaveWallet creates or updates the wallet
func (r *MemoryRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet.LastUpdated = time.Now()

	walletCopy := *wallet
	r.wallet = &walletCopy

	return nil
}

// AddTransaction records a new transaction
func (r *MemoryRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}

	txCopy := *transaction
	r.transactions = append(r.transactions, &txCopy)

	return nil
}

// GetTransaction retrieves a transaction by ID
func (r *MemoryRepository) GetTransaction(ctx context.Context, id string) (*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.transactions {
		if tx.ID == id {
			txCopy := *tx
			return &txCopy, nil
		}
	}

	return nil, ErrTransactionNotFound
}

// UpdateTransactionStatus applies the pending→completed/failed transition
func (r *MemoryRepository) UpdateTransactionStatus(ctx context.Context, id string, status entities.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range r.transactions {
		if tx.ID == id {
			tx.Status = status
			return nil
		}
	}

	return ErrTransactionNotFound
}

// GetTransactions retrieves recent transactions, newest first
func (r *MemoryRepository) GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Transaction, 0, limit)
	for i := len(r.transactions) - 1; i >= 0 && len(result) < limit; i-- {
		txCopy := *r.transactions[i]
		result = append(result, &txCopy)
	}

	return result, nil
}

// GetTransactionsByKind retrieves transactions of a specific kind, newest first
func (r *MemoryRepository) GetTransactionsByKind(ctx context.Context, kind entities.TransactionKind, limit int) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := make([]*entities.Transaction, 0, limit)
	for i := len(r.transactions) - 1; i >= 0 && len(filtered) < limit; i-- {
		if r.transactions[i].Kind == kind {
			txCopy := *r.transactions[i]
			filtered = append(filtered, &txCopy)
		}
	}

	return filtered, nil
}
