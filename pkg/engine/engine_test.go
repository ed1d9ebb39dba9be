package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadedpez/kolovegas/internal/config"
	"github.com/fadedpez/kolovegas/internal/types"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/reels"
	"github.com/fadedpez/kolovegas/pkg/repositories/archive"
	walletRepo "github.com/fadedpez/kolovegas/pkg/repositories/wallet"
	"github.com/fadedpez/kolovegas/pkg/services/statistics"
	"github.com/fadedpez/kolovegas/pkg/storage"
	"github.com/fadedpez/kolovegas/pkg/storage/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubDrawer pins every draw, letting tests force session outcomes
type stubDrawer struct {
	indices    [3]int
	crashPoint float64
}

func (d stubDrawer) Spin(setSize int) [3]int {
	return d.indices
}

func (d stubDrawer) CrashPoint(dist reels.Distribution) float64 {
	return d.crashPoint
}

func testConfig(seedBalance int64) *config.Config {
	return &config.Config{
		Environment:     "development",
		SeedBalance:     seedBalance,
		Currency:        "KOLO",
		StorageType:     "memory",
		VIPMinBalance:   50000,
		BigWinThreshold: 10000,
		LoyalSpins:      100,
	}
}

func newTestStore(t *testing.T, path string) storage.Store {
	t.Helper()

	store, err := file.New(&storage.Options{Path: path})
	require.NoError(t, err)
	return store
}

func newTestEngine(t *testing.T, seedBalance int64, drawer reels.Drawer) *Engine {
	t.Helper()

	store := newTestStore(t, filepath.Join(t.TempDir(), "snapshot.json"))
	e, err := New(testConfig(seedBalance), store, walletRepo.NewMemoryRepository(), drawer, nil)
	require.NoError(t, err)
	return e
}

func TestNew_SeedsFreshWallet(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, 70000, stubDrawer{crashPoint: 2})

	snapshot, err := e.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(70000), snapshot.Wallet.Balance)
	assert.Equal(t, "KOLO", snapshot.Wallet.Currency)
	assert.Zero(t, snapshot.Stats.TotalSpins)
	assert.Empty(t, snapshot.Achievements)
}

func TestNew_RestoresStateFromSnapshotStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	store := newTestStore(t, path)
	e, err := New(testConfig(70000), store, walletRepo.NewMemoryRepository(), stubDrawer{crashPoint: 2}, nil)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, 5000, "card")
	require.NoError(t, err)
	e.SetTheme(ctx, "noir")
	e.SetAIPersona(ctx, "dealer")
	e.RegisterChatSession(ctx, "chat-1")
	require.NoError(t, e.Close(ctx))

	// A fresh engine over the same file picks up where the last one left off
	store = newTestStore(t, path)
	restored, err := New(testConfig(70000), store, walletRepo.NewMemoryRepository(), stubDrawer{crashPoint: 2}, nil)
	require.NoError(t, err)

	snapshot, err := restored.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(75000), snapshot.Wallet.Balance)
	assert.Equal(t, "noir", snapshot.Theme)
	assert.Equal(t, "dealer", snapshot.AIPersona)
	assert.Equal(t, []string{"chat-1"}, restored.ChatSessions())

	// The transaction history survives even though the repository is fresh
	require.Len(t, snapshot.Transactions, 1)
	assert.Equal(t, int64(5000), snapshot.Transactions[0].Amount)
	assert.Equal(t, entities.TransactionKindDeposit, snapshot.Transactions[0].Kind)
}

func TestDeposit_MapsLedgerErrors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, 1000, stubDrawer{crashPoint: 2})

	_, err := e.Deposit(ctx, -5, "card")
	assert.True(t, types.IsGameError(err, types.ErrInvalidAmount))

	_, err = e.Withdraw(ctx, 5000, "card", "DE89370400440532013000")
	assert.True(t, types.IsGameError(err, types.ErrInsufficientFunds))

	_, err = e.Withdraw(ctx, 100, "card", "ab")
	assert.True(t, types.IsGameError(err, types.ErrInvalidDestination))
}

func TestWithdrawalLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, 1000, stubDrawer{crashPoint: 2})

	tx, err := e.Withdraw(ctx, 400, "bank", "DE89370400440532013000")
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusPending, tx.Status)

	snapshot, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(600), snapshot.Wallet.Balance, "withdrawal deducts immediately")

	require.NoError(t, e.ResolveWithdrawal(ctx, tx.ID, false))

	snapshot, err = e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), snapshot.Wallet.Balance, "failed withdrawal refunds")
}

func TestCrashSession_SettlementFlowsIntoStatsAndStore(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, 1000, stubDrawer{crashPoint: 1.05})

	game, err := e.StartCrashSession(ctx, "crash-standard", 100)
	require.NoError(t, err)

	select {
	case <-game.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("crash session did not settle")
	}

	snapshot, err := e.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(900), snapshot.Wallet.Balance)
	assert.Equal(t, 1, snapshot.Stats.TotalSpins)
	assert.Equal(t, 0, snapshot.Stats.TotalWins)
	assert.Equal(t, int64(100), snapshot.Stats.TotalWagered)

	require.Len(t, snapshot.Achievements, 1)
	assert.Equal(t, "first_play", snapshot.Achievements[0].ID)

	recent := e.RecentSettlements(10)
	require.Len(t, recent, 1)
	assert.Equal(t, entities.StateCrashed, recent[0].State)
}

func TestSlotSession_EndToEnd(t *testing.T) {
	ctx := context.Background()

	// kolo-classic pays x10 on a triple seven
	e := newTestEngine(t, 70000, stubDrawer{indices: [3]int{0, 0, 0}, crashPoint: 2})

	game, err := e.StartSlotSession(ctx, "kolo-classic", 100)
	require.NoError(t, err)

	select {
	case <-game.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("slot session did not settle")
	}

	snapshot, err := e.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(70900), snapshot.Wallet.Balance, "70000 - 100 stake + 1000 payout")
	assert.Equal(t, 1, snapshot.Stats.TotalSpins)
	assert.Equal(t, 1, snapshot.Stats.TotalWins)

	// Slot wins carry no multiplier: the crash metric stays untouched and
	// crash_master cannot unlock from a slot spin
	assert.Zero(t, snapshot.Stats.MaxMultiplierSeen)
	for _, achievement := range snapshot.Achievements {
		assert.NotEqual(t, statistics.AchievementCrashMaster, achievement.ID)
	}
}

func TestCashOutCommand(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, 1000, stubDrawer{crashPoint: 1000})

	_, err := e.StartCrashSession(ctx, "crash-standard", 100)
	require.NoError(t, err)

	payout, err := e.CashOut(ctx, "crash-standard")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, payout, int64(100))

	_, err = e.CashOut(ctx, "crash-standard")
	assert.True(t, types.IsGameError(err, types.ErrGameAlreadyEnded))
}

func TestArchive_SettlementsAreIndexed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, filepath.Join(t.TempDir(), "snapshot.json"))

	arch := archive.NewMockArchiver(t)
	arch.On("IndexSettlement", mock.Anything, mock.AnythingOfType("entities.Settlement")).Return(nil)

	e, err := New(testConfig(1000), store, walletRepo.NewMemoryRepository(), stubDrawer{crashPoint: 1.05}, arch)
	require.NoError(t, err)

	game, err := e.StartCrashSession(ctx, "crash-standard", 100)
	require.NoError(t, err)
	<-game.Done()

	arch.AssertNumberOfCalls(t, "IndexSettlement", 1)
}

func TestArchive_FailedIndexIsRetried(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, filepath.Join(t.TempDir(), "snapshot.json"))

	arch := archive.NewMockArchiver(t)
	arch.On("IndexSettlement", mock.Anything, mock.AnythingOfType("entities.Settlement")).
		Return(errors.New("cluster unavailable")).Once()
	arch.On("IndexSettlement", mock.Anything, mock.AnythingOfType("entities.Settlement")).
		Return(nil)

	e, err := New(testConfig(1000), store, walletRepo.NewMemoryRepository(), stubDrawer{crashPoint: 1.05}, arch)
	require.NoError(t, err)

	game, err := e.StartCrashSession(ctx, "crash-standard", 100)
	require.NoError(t, err)
	<-game.Done()

	require.NoError(t, e.RetryArchive(ctx))
	arch.AssertNumberOfCalls(t, "IndexSettlement", 2)

	// Nothing left to retry
	require.NoError(t, e.RetryArchive(ctx))
	arch.AssertNumberOfCalls(t, "IndexSettlement", 2)
}

func TestSnapshotStoreContents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	store := newTestStore(t, path)

	e, err := New(testConfig(1000), store, walletRepo.NewMemoryRepository(), stubDrawer{crashPoint: 2}, nil)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, 250, "card")
	require.NoError(t, err)
	require.NoError(t, e.FlushSnapshot(ctx))

	var w entities.Wallet
	require.NoError(t, storage.GetJSON(ctx, store, storage.KeyWallet, &w))
	assert.Equal(t, int64(1250), w.Balance)

	var catalog []catalogEntry
	require.NoError(t, storage.GetJSON(ctx, store, storage.KeyCatalog, &catalog))
	assert.NotEmpty(t, catalog)
}
