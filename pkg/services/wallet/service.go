package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	walletRepo "github.com/fadedpez/kolovegas/pkg/repositories/wallet"
	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidDestination = errors.New("withdrawal destination is invalid")
)

// Withdrawal destinations shorter than this fail the format check
const minDestinationLength = 6

// StakeToken represents points removed from the balance when a game session
// begins, at risk until settlement. Every reserved stake must be settled
// exactly once.
type StakeToken struct {
	ID     string
	Amount int64
}

// Service owns the point balance and the append-only transaction log. Every
// balance mutation is a single serialized step; no two mutations interleave,
// even across concurrent game sessions.
type Service struct {
	repo   walletRepo.Repository
	mu     sync.Mutex
	stakes map[string]int64 // outstanding stake id → amount

	currency string
	strict   bool // contract violations panic instead of being ignored
}

// NewService creates a new ledger service. In strict mode (development)
// contract violations panic; otherwise they are logged and ignored.
func NewService(repo walletRepo.Repository, currency string, strict bool) *Service {
	return &Service{
		repo:     repo,
		stakes:   make(map[string]int64),
		currency: currency,
		strict:   strict,
	}
}

// Initialize seeds the wallet if none exists yet. Returns true if a new
// wallet was created.
func (s *Service) Initialize(ctx context.Context, seedBalance int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.repo.GetWallet(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, walletRepo.ErrWalletNotFound) {
		return false, err
	}

	newWallet := &entities.Wallet{
		Balance:     seedBalance,
		Currency:    s.currency,
		LastUpdated: time.Now(),
	}
	if err := s.repo.SaveWallet(ctx, newWallet); err != nil {
		return false, err
	}

	log.Printf("[LEDGER] Seeded new wallet with balance %d %s", seedBalance, s.currency)
	return true, nil
}

// Balance returns the current spendable balance
func (s *Service) Balance(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Deposit increases the balance and appends a completed transaction
func (s *Service) Deposit(ctx context.Context, amount int64, method string) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return nil, err
	}

	wallet.Balance += amount
	wallet.LastUpdated = time.Now()
	if err := s.repo.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}

	transaction := &entities.Transaction{
		ID:           uuid.New().String(),
		Kind:         entities.TransactionKindDeposit,
		Method:       method,
		Amount:       amount,
		Currency:     s.currency,
		Status:       entities.TransactionStatusCompleted,
		Timestamp:    time.Now(),
		BalanceAfter: wallet.Balance,
	}

	log.Printf("[LEDGER] Deposit of %d via %s, balance now %d", amount, method, wallet.Balance)

	if err := s.repo.AddTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// Withdraw decreases the balance immediately and appends a pending
// transaction. Funds leave the spendable balance even though the withdrawal
// has not been resolved yet.
func (s *Service) Withdraw(ctx context.Context, amount int64, method, destination string) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(strings.TrimSpace(destination)) < minDestinationLength {
		return nil, ErrInvalidDestination
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return nil, err
	}

	if wallet.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	wallet.Balance -= amount
	wallet.LastUpdated = time.Now()
	if err := s.repo.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}

	transaction := &entities.Transaction{
		ID:           uuid.New().String(),
		Kind:         entities.TransactionKindWithdrawal,
		Method:       method,
		Amount:       amount,
		Currency:     s.currency,
		Status:       entities.TransactionStatusPending,
		Destination:  destination,
		Timestamp:    time.Now(),
		BalanceAfter: wallet.Balance,
	}

	log.Printf("[LEDGER] Withdrawal of %d via %s pending, balance now %d", amount, method, wallet.Balance)

	if err := s.repo.AddTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// ResolveWithdrawal flips a pending withdrawal to completed or failed. A
// failed withdrawal refunds its amount to the balance.
func (s *Service) ResolveWithdrawal(ctx context.Context, id string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if tx.Kind != entities.TransactionKindWithdrawal || tx.Status != entities.TransactionStatusPending {
		return s.violate("resolve called on non-pending transaction %s (%s/%s)", id, tx.Kind, tx.Status)
	}

	status := entities.TransactionStatusCompleted
	if !success {
		status = entities.TransactionStatusFailed
	}

	if err := s.repo.UpdateTransactionStatus(ctx, id, status); err != nil {
		return err
	}

	if !success {
		return s.adjustBalance(ctx, tx.Amount)
	}

	log.Printf("[LEDGER] Withdrawal %s resolved as %s", id, status)
	return nil
}

// ReserveStake atomically removes a stake from the balance before a game
// session starts. The session cannot begin if this fails.
func (s *Service) ReserveStake(ctx context.Context, amount int64) (*StakeToken, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return nil, err
	}

	if wallet.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	wallet.Balance -= amount
	wallet.LastUpdated = time.Now()
	if err := s.repo.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}

	token := &StakeToken{
		ID:     uuid.New().String(),
		Amount: amount,
	}
	s.stakes[token.ID] = amount

	log.Printf("[LEDGER] Reserved stake of %d, balance now %d", amount, wallet.Balance)
	return token, nil
}

// Settle applies a session payout for a reserved stake. Must be called
// exactly once per stake; a second call or an unknown token is a contract
// violation, not user error.
func (s *Service) Settle(ctx context.Context, token *StakeToken, payout int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == nil {
		return s.violate("settle called with nil stake token")
	}
	if _, ok := s.stakes[token.ID]; !ok {
		return s.violate("settle called twice or with unreserved stake %s", token.ID)
	}
	if payout < 0 {
		return s.violate("settle called with negative payout %d for stake %s", payout, token.ID)
	}

	// The payout is applied before the stake is consumed so a failed write
	// leaves the stake reserved and Settle retryable.
	if payout > 0 {
		if err := s.adjustBalance(ctx, payout); err != nil {
			log.Printf("[LEDGER] Failed to apply payout %d for stake %s, stake kept for retry: %v", payout, token.ID, err)
			return err
		}
	}

	delete(s.stakes, token.ID)

	log.Printf("[LEDGER] Settled stake %s: bet %d, payout %d", token.ID, token.Amount, payout)
	return nil
}

// OutstandingStakes returns the total amount currently reserved in
// unsettled sessions
func (s *Service) OutstandingStakes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, amount := range s.stakes {
		total += amount
	}
	return total
}

// RecentTransactions retrieves recent transactions, newest first
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	return s.repo.GetTransactions(ctx, limit)
}

// Wallet returns a copy of the current wallet state
func (s *Service) Wallet(ctx context.Context) (*entities.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.GetWallet(ctx)
}

// adjustBalance applies a delta to the stored balance. Callers must hold the
// service mutex.
func (s *Service) adjustBalance(ctx context.Context, delta int64) error {
	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return err
	}

	wallet.Balance += delta
	wallet.LastUpdated = time.Now()
	return s.repo.SaveWallet(ctx, wallet)
}

// violate handles a programming-contract violation. Strict mode panics so
// the bug surfaces in development; production logs and ignores it because no
// state change is safe once the contract is broken.
func (s *Service) violate(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if s.strict {
		panic("ledger contract violation: " + msg)
	}
	log.Printf("[LEDGER] Contract violation ignored: %s", msg)
	return nil
}
