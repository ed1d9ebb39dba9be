package crash

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/internal/types"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/games/common"
	"github.com/fadedpez/kolovegas/pkg/reels"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
	"github.com/google/uuid"
)

// GameConfig describes one crash game slot
type GameConfig struct {
	ID           string
	Name         string
	Distribution reels.Distribution
	TickInterval time.Duration
	Step         float64
	VIP          bool
}

// TickFunc receives live multiplier updates while a session is running
type TickFunc func(gameID string, multiplier float64)

// Game represents a single crash session: Idle → Running → CashedOut|Crashed.
// All state transitions flow through one goroutine; ticks and cash-out
// requests are serialized on it, so the first committed terminal transition
// wins and the other is rejected.
type Game struct {
	ID     string
	GameID string
	Bet    int64

	config     GameConfig
	token      *wallet.StakeToken
	crashPoint float64

	mu         sync.RWMutex
	state      entities.SessionState
	multiplier float64
	settlement *entities.Settlement

	cashOut chan cashOutRequest
	done    chan struct{}
}

type cashOutRequest struct {
	reply chan cashOutReply
}

type cashOutReply struct {
	payout int64
	err    error
}

func newGame(config GameConfig, bet int64, token *wallet.StakeToken, crashPoint float64) *Game {
	return &Game{
		ID:         uuid.New().String(),
		GameID:     config.ID,
		Bet:        bet,
		config:     config,
		token:      token,
		crashPoint: crashPoint,
		state:      entities.StateRunning,
		multiplier: 1.0,
		cashOut:    make(chan cashOutRequest),
		done:       make(chan struct{}),
	}
}

// State returns the current session state
func (g *Game) State() entities.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Multiplier returns the session's current multiplier
func (g *Game) Multiplier() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.multiplier
}

// Settlement returns the terminal settlement, or nil while running
func (g *Game) Settlement() *entities.Settlement {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settlement
}

// Done is closed once the session reaches a terminal state
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// CashOut locks in the current multiplier and ends the session, paying out
// bet times multiplier rounded down. If the session already crashed or was
// already cashed out, it returns ErrGameAlreadyEnded.
func (g *Game) CashOut(ctx context.Context) (int64, error) {
	req := cashOutRequest{reply: make(chan cashOutReply, 1)}

	select {
	case g.cashOut <- req:
	case <-g.done:
		return 0, types.NewGameError(types.ErrGameAlreadyEnded, "session already ended")
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	// The request channel is unbuffered, so a completed send guarantees the
	// session loop holds the request and will reply.
	reply := <-req.reply
	return reply.payout, reply.err
}

// run owns the session. The multiplier climbs one step per tick until it
// would reach the crash point; a cash-out received first settles at the
// multiplier of the last completed tick.
func (g *Game) run(ctx context.Context, settler common.Settler, onTick TickFunc, onSettle common.SettleFunc) {
	defer close(g.done)

	ticker := time.NewTicker(g.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			next := g.Multiplier() + g.config.Step
			if next >= g.crashPoint {
				g.settle(ctx, settler, entities.StateCrashed, 0, onSettle)
				return
			}
			g.setMultiplier(next)
			if onTick != nil {
				onTick(g.GameID, next)
			}

		case req := <-g.cashOut:
			payout := int64(math.Floor(float64(g.Bet) * g.Multiplier()))
			g.settle(ctx, settler, entities.StateCashedOut, payout, onSettle)
			req.reply <- cashOutReply{payout: payout}
			return

		case <-ctx.Done():
			// Shutdown mid-run forfeits the stake
			g.settle(context.Background(), settler, entities.StateCrashed, 0, onSettle)
			return
		}
	}
}

func (g *Game) setMultiplier(multiplier float64) {
	g.mu.Lock()
	g.multiplier = multiplier
	g.mu.Unlock()
}

func (g *Game) settle(ctx context.Context, settler common.Settler, state entities.SessionState, payout int64, onSettle common.SettleFunc) {
	g.mu.Lock()
	settlement := entities.Settlement{
		SessionID:   g.ID,
		GameID:      g.GameID,
		State:       state,
		Bet:         g.Bet,
		Payout:      payout,
		Multiplier:  g.multiplier,
		IsWin:       payout > 0,
		VIP:         g.config.VIP,
		CompletedAt: time.Now(),
	}
	g.state = state
	g.settlement = &settlement
	g.mu.Unlock()

	if err := settler.Settle(ctx, g.token, payout); err != nil {
		log.Printf("[CRASH] Failed to settle session %s: %v", g.ID, err)
	}

	if onSettle != nil {
		onSettle(settlement)
	}
}
