package wallet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repositoryTest runs the shared contract against both implementations
func repositoryTest(t *testing.T, name string, factory func(t *testing.T) Repository) {
	t.Run(name+"/wallet round trip", func(t *testing.T) {
		ctx := context.Background()
		repo := factory(t)

		_, err := repo.GetWallet(ctx)
		assert.ErrorIs(t, err, ErrWalletNotFound)

		w := &entities.Wallet{Balance: 70000, Currency: "KOLO", LastUpdated: time.Now()}
		require.NoError(t, repo.SaveWallet(ctx, w))

		got, err := repo.GetWallet(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(70000), got.Balance)
		assert.Equal(t, "KOLO", got.Currency)

		w.Balance = 65000
		require.NoError(t, repo.SaveWallet(ctx, w))

		got, err = repo.GetWallet(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(65000), got.Balance)
	})

	t.Run(name+"/transaction lifecycle", func(t *testing.T) {
		ctx := context.Background()
		repo := factory(t)

		tx := &entities.Transaction{
			ID:           uuid.New().String(),
			Kind:         entities.TransactionKindWithdrawal,
			Method:       "bank",
			Amount:       400,
			Currency:     "KOLO",
			Status:       entities.TransactionStatusPending,
			Destination:  "DE89370400440532013000",
			Timestamp:    time.Now(),
			BalanceAfter: 600,
		}
		require.NoError(t, repo.AddTransaction(ctx, tx))

		got, err := repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.TransactionStatusPending, got.Status)
		assert.Equal(t, int64(400), got.Amount)

		require.NoError(t, repo.UpdateTransactionStatus(ctx, tx.ID, entities.TransactionStatusFailed))

		got, err = repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.TransactionStatusFailed, got.Status)

		_, err = repo.GetTransaction(ctx, "missing-id")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run(name+"/transactions newest first", func(t *testing.T) {
		ctx := context.Background()
		repo := factory(t)

		base := time.Now().Add(-time.Minute)
		ids := make([]string, 3)
		for i := 0; i < 3; i++ {
			ids[i] = uuid.New().String()
			kind := entities.TransactionKindDeposit
			if i == 1 {
				kind = entities.TransactionKindWithdrawal
			}
			require.NoError(t, repo.AddTransaction(ctx, &entities.Transaction{
				ID:           ids[i],
				Kind:         kind,
				Method:       "card",
				Amount:       int64(100 * (i + 1)),
				Currency:     "KOLO",
				Status:       entities.TransactionStatusCompleted,
				Timestamp:    base.Add(time.Duration(i) * time.Second),
				BalanceAfter: int64(1000 + 100*(i+1)),
			}))
		}

		txs, err := repo.GetTransactions(ctx, 10)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, ids[2], txs[0].ID)
		assert.Equal(t, ids[0], txs[2].ID)

		txs, err = repo.GetTransactions(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, txs, 2)

		deposits, err := repo.GetTransactionsByKind(ctx, entities.TransactionKindDeposit, 10)
		require.NoError(t, err)
		require.Len(t, deposits, 2)
		assert.Equal(t, ids[2], deposits[0].ID)
	})
}

func TestMemoryRepository(t *testing.T) {
	repositoryTest(t, "memory", func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestSQLiteRepository(t *testing.T) {
	repositoryTest(t, "sqlite", func(t *testing.T) Repository {
		repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "wallet.db"))
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}
