package slot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/games/common"
	"github.com/fadedpez/kolovegas/pkg/reels"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
	"github.com/google/uuid"
)

// GameConfig describes one slot game slot
type GameConfig struct {
	ID            string
	Name          string
	Symbols       reels.SymbolSet
	VIP           bool
	SpinDuration  time.Duration // cosmetic animation window before the final draw
	FrameInterval time.Duration // cadence of cosmetic animation draws
}

// FrameFunc receives cosmetic animation draws while a session is spinning.
// Frames never affect the outcome.
type FrameFunc func(gameID string, indices [3]int)

// Game represents a single slot session: Idle → Spinning → Settled
type Game struct {
	ID     string
	GameID string
	Bet    int64

	config GameConfig
	token  *wallet.StakeToken

	mu         sync.RWMutex
	state      entities.SessionState
	final      [3]int
	settlement *entities.Settlement

	done chan struct{}
}

func newGame(config GameConfig, bet int64, token *wallet.StakeToken) *Game {
	return &Game{
		ID:     uuid.New().String(),
		GameID: config.ID,
		Bet:    bet,
		config: config,
		token:  token,
		state:  entities.StateSpinning,
		done:   make(chan struct{}),
	}
}

// State returns the current session state
func (g *Game) State() entities.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// FinalIndices returns the authoritative final draw. Only valid once the
// session has settled.
func (g *Game) FinalIndices() [3]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.final
}

// Settlement returns the terminal settlement event, or nil while spinning
func (g *Game) Settlement() *entities.Settlement {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settlement
}

// Done is closed when the session reaches its terminal state
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// run drives the session to settlement: cosmetic animation frames for the
// configured window, one final authoritative draw, wallet settle, event.
func (g *Game) run(ctx context.Context, drawer reels.Drawer, settler common.Settler, onFrame FrameFunc, onSettle common.SettleFunc) {
	defer close(g.done)

	g.animate(ctx, drawer, onFrame)

	final := drawer.Spin(len(g.config.Symbols))
	payout, isWin := g.config.Symbols.Payout(final, g.Bet)

	// Slot settlements carry no multiplier; that metric belongs to crash
	// sessions and must not move MaxMultiplierSeen.
	settlement := entities.Settlement{
		SessionID:   g.ID,
		GameID:      g.GameID,
		State:       entities.StateSettled,
		Bet:         g.Bet,
		Payout:      payout,
		IsWin:       isWin,
		VIP:         g.config.VIP,
		CompletedAt: time.Now(),
	}

	g.mu.Lock()
	g.state = entities.StateSettled
	g.final = final
	g.settlement = &settlement
	g.mu.Unlock()

	// The stake is settled exactly once, before the event is published
	if err := settler.Settle(ctx, g.token, payout); err != nil {
		log.Printf("[SLOT] Failed to settle session %s: %v", g.ID, err)
	}

	if onSettle != nil {
		onSettle(settlement)
	}
}

// animate emits cosmetic draws at the configured cadence until the spin
// window elapses. A cancelled context skips straight to the final draw.
func (g *Game) animate(ctx context.Context, drawer reels.Drawer, onFrame FrameFunc) {
	if g.config.SpinDuration <= 0 || g.config.FrameInterval <= 0 {
		return
	}

	deadline := time.NewTimer(g.config.SpinDuration)
	defer deadline.Stop()
	frames := time.NewTicker(g.config.FrameInterval)
	defer frames.Stop()

	for {
		select {
		case <-frames.C:
			if onFrame != nil {
				onFrame(g.GameID, drawer.Spin(len(g.config.Symbols)))
			}
		case <-deadline.C:
			return
		case <-ctx.Done():
			return
		}
	}
}
