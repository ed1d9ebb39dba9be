package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/kolovegas/pkg/db/migrations"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := migrations.NewMigrator(db, "").MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// GetWallet retrieves the wallet
func (r *SQLiteRepository) GetWallet(ctx context.Context) (*entities.Wallet, error) {
	query := `SELECT balance, currency, updated_at FROM wallet WHERE id = 1`

	var wallet entities.Wallet
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query).Scan(
		&wallet.Balance,
		&wallet.Currency,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	wallet.LastUpdated = parseTimestamp(updatedAt)
	return &wallet, nil
}

// SaveWallet creates or updates the wallet
func (r *SQLiteRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	wallet.LastUpdated = time.Now()

	query := `
	INSERT INTO wallet (id, balance, currency, updated_at) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, currency = excluded.currency, updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		wallet.Balance,
		wallet.Currency,
		wallet.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error saving wallet: %w", err)
	}

	return nil
}

// AddTransaction records a new transaction
func (r *SQLiteRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}

	query := `
	INSERT INTO transactions (id, kind, method, amount, currency, status, destination, timestamp, balance_after)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		transaction.ID,
		transaction.Kind,
		transaction.Method,
		transaction.Amount,
		transaction.Currency,
		transaction.Status,
		transaction.Destination,
		transaction.Timestamp.Format(time.RFC3339Nano),
		transaction.BalanceAfter,
	)
	if err != nil {
		return fmt.Errorf("error adding transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*entities.Transaction, error) {
	query := `
	SELECT id, kind, method, amount, currency, status, destination, timestamp, balance_after
	FROM transactions WHERE id = ?`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("error querying transaction: %w", err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, ErrTransactionNotFound
	}

	return transactions[0], nil
}

// UpdateTransactionStatus applies the pending→completed/failed transition
func (r *SQLiteRepository) UpdateTransactionStatus(ctx context.Context, id string, status entities.TransactionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("error updating transaction status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking update result: %w", err)
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// GetTransactions retrieves recent transactions, newest first
func (r *SQLiteRepository) GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	query := `
	SELECT id, kind, method, amount, currency, status, destination, timestamp, balance_after
	FROM transactions ORDER BY timestamp DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransactionsByKind retrieves transactions of a specific kind, newest first
func (r *SQLiteRepository) GetTransactionsByKind(ctx context.Context, kind entities.TransactionKind, limit int) ([]*entities.Transaction, error) {
	query := `
	SELECT id, kind, method, amount, currency, status, destination, timestamp, balance_after
	FROM transactions WHERE kind = ? ORDER BY timestamp DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions by kind: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// Close closes the underlying database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanTransactions(rows *sql.Rows) ([]*entities.Transaction, error) {
	transactions := make([]*entities.Transaction, 0)

	for rows.Next() {
		var tx entities.Transaction
		var timestamp string
		var destination sql.NullString

		if err := rows.Scan(
			&tx.ID,
			&tx.Kind,
			&tx.Method,
			&tx.Amount,
			&tx.Currency,
			&tx.Status,
			&destination,
			&timestamp,
			&tx.BalanceAfter,
		); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}

		tx.Destination = destination.String
		tx.Timestamp = parseTimestamp(timestamp)
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// parseTimestamp tries the formats SQLite is known to hand back
func parseTimestamp(value string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if parsed, err := time.Parse(format, value); err == nil {
			return parsed
		}
	}

	return time.Time{}
}
