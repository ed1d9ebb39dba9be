package slot

import (
	"context"
	"testing"
	"time"

	"github.com/fadedpez/kolovegas/internal/types"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/reels"
	walletRepo "github.com/fadedpez/kolovegas/pkg/repositories/wallet"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDrawer returns a fixed draw, letting tests force outcomes
type stubDrawer struct {
	indices [3]int
}

func (d stubDrawer) Spin(setSize int) [3]int {
	return d.indices
}

func (d stubDrawer) CrashPoint(dist reels.Distribution) float64 {
	return dist.Min
}

func testSymbols() reels.SymbolSet {
	return reels.SymbolSet{
		{Name: "seven", Multiplier: 5},
		{Name: "bell", Multiplier: 3},
		{Name: "cherry", Multiplier: 2},
	}
}

func newTestLedger(t *testing.T, seedBalance int64) *wallet.Service {
	t.Helper()

	ledger := wallet.NewService(walletRepo.NewMemoryRepository(), "KOLO", true)
	_, err := ledger.Initialize(context.Background(), seedBalance)
	require.NoError(t, err)
	return ledger
}

func classicConfig() GameConfig {
	return GameConfig{ID: "kolo-classic", Name: "Kolo Classic", Symbols: testSymbols()}
}

func vipConfig() GameConfig {
	return GameConfig{ID: "kolo-royale", Name: "Kolo Royale", Symbols: testSymbols(), VIP: true}
}

func waitSettled(t *testing.T, game *Game) *entities.Settlement {
	t.Helper()

	select {
	case <-game.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not settle in time")
	}
	settlement := game.Settlement()
	require.NotNil(t, settlement)
	return settlement
}

func TestPlay_WinningTriplePaysBetTimesMultiplier(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, 70000)
	manager := NewManager(ledger, stubDrawer{indices: [3]int{0, 0, 0}}, []GameConfig{classicConfig()}, 50000)

	var recorded []entities.Settlement
	settled := make(chan struct{})
	manager.SetSettleFunc(func(s entities.Settlement) {
		recorded = append(recorded, s)
		close(settled)
	})

	game, err := manager.Play(ctx, "kolo-classic", 100)
	require.NoError(t, err)

	settlement := waitSettled(t, game)
	<-settled

	assert.Equal(t, entities.StateSettled, game.State())
	assert.Equal(t, int64(500), settlement.Payout, "bet 100 on a x5 triple pays 500")
	assert.True(t, settlement.IsWin)
	assert.Zero(t, settlement.Multiplier, "slot settlements carry no multiplier")

	balance, err := ledger.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(70400), balance, "70000 - 100 stake + 500 payout")

	require.Len(t, recorded, 1)
	assert.Equal(t, settlement.SessionID, recorded[0].SessionID)
}

func TestPlay_LosingDrawPaysNothing(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, 1000)
	manager := NewManager(ledger, stubDrawer{indices: [3]int{0, 1, 2}}, []GameConfig{classicConfig()}, 50000)

	game, err := manager.Play(ctx, "kolo-classic", 100)
	require.NoError(t, err)

	settlement := waitSettled(t, game)

	assert.Equal(t, int64(0), settlement.Payout)
	assert.False(t, settlement.IsWin)

	balance, err := ledger.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance, "losing spin forfeits the stake")
}

func TestPlay_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown game", func(t *testing.T) {
		manager := NewManager(newTestLedger(t, 1000), stubDrawer{}, []GameConfig{classicConfig()}, 50000)

		_, err := manager.Play(ctx, "no-such-game", 100)

		assert.True(t, types.IsGameError(err, types.ErrGameNotFound))
	})

	t.Run("non-positive bet", func(t *testing.T) {
		manager := NewManager(newTestLedger(t, 1000), stubDrawer{}, []GameConfig{classicConfig()}, 50000)

		_, err := manager.Play(ctx, "kolo-classic", 0)

		assert.True(t, types.IsGameError(err, types.ErrInvalidAmount))
	})

	t.Run("bet above balance", func(t *testing.T) {
		manager := NewManager(newTestLedger(t, 50), stubDrawer{}, []GameConfig{classicConfig()}, 50000)

		_, err := manager.Play(ctx, "kolo-classic", 100)

		assert.True(t, types.IsGameError(err, types.ErrInsufficientFunds))
	})

	t.Run("vip gate not met", func(t *testing.T) {
		manager := NewManager(newTestLedger(t, 1000), stubDrawer{}, []GameConfig{vipConfig()}, 50000)

		_, err := manager.Play(ctx, "kolo-royale", 100)

		assert.True(t, types.IsGameError(err, types.ErrGateNotMet))
	})

	t.Run("vip gate met at threshold", func(t *testing.T) {
		manager := NewManager(newTestLedger(t, 50000), stubDrawer{indices: [3]int{0, 1, 2}}, []GameConfig{vipConfig()}, 50000)

		game, err := manager.Play(ctx, "kolo-royale", 100)

		require.NoError(t, err)
		settlement := waitSettled(t, game)
		assert.True(t, settlement.VIP)
	})
}

func TestPlay_SecondSessionOnSameSlotRejected(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, 1000)

	config := classicConfig()
	config.SpinDuration = 200 * time.Millisecond
	config.FrameInterval = 10 * time.Millisecond
	manager := NewManager(ledger, stubDrawer{indices: [3]int{0, 1, 2}}, []GameConfig{config}, 50000)

	game, err := manager.Play(ctx, "kolo-classic", 100)
	require.NoError(t, err)
	require.Equal(t, entities.StateSpinning, game.State())

	_, err = manager.Play(ctx, "kolo-classic", 100)
	assert.True(t, types.IsGameError(err, types.ErrSessionAlreadyActive))

	waitSettled(t, game)

	// The slot frees up once the first session settles
	second, err := manager.Play(ctx, "kolo-classic", 100)
	require.NoError(t, err)
	waitSettled(t, second)
}

func TestPlay_AnimationFramesAreCosmetic(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, 1000)

	config := classicConfig()
	config.SpinDuration = 100 * time.Millisecond
	config.FrameInterval = 10 * time.Millisecond
	manager := NewManager(ledger, stubDrawer{indices: [3]int{2, 2, 2}}, []GameConfig{config}, 50000)

	var frames int
	manager.SetFrameFunc(func(gameID string, indices [3]int) {
		frames++
	})

	game, err := manager.Play(ctx, "kolo-classic", 100)
	require.NoError(t, err)
	settlement := waitSettled(t, game)

	assert.Greater(t, frames, 0, "animation frames should have been emitted")
	assert.Equal(t, [3]int{2, 2, 2}, game.FinalIndices())
	assert.Equal(t, int64(200), settlement.Payout, "only the final draw decides the payout")
}
