package crash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/internal/types"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/games/common"
	"github.com/fadedpez/kolovegas/pkg/reels"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
)

// DefaultGames returns the built-in crash game slots. Quantum climbs faster
// over a wider crash-point range and is VIP gated.
func DefaultGames() []GameConfig {
	return []GameConfig{
		{
			ID:           "crash-standard",
			Name:         "Crash Standard",
			Distribution: reels.DistributionStandard,
			TickInterval: 100 * time.Millisecond,
			Step:         0.01,
		},
		{
			ID:           "crash-quantum",
			Name:         "Crash Quantum",
			Distribution: reels.DistributionQuantum,
			TickInterval: 60 * time.Millisecond,
			Step:         0.05,
			VIP:          true,
		},
	}
}

// Manager manages all active crash sessions. Exactly one session may be
// live per game slot; starting a second is rejected, not queued.
type Manager struct {
	ledger   common.Settler
	drawer   reels.Drawer
	games    map[string]GameConfig
	sessions map[string]*Game
	mu       sync.RWMutex

	vipMinBalance int64
	onTick        TickFunc
	onSettle      common.SettleFunc
}

// NewManager creates a new crash session manager
func NewManager(ledger common.Settler, drawer reels.Drawer, configs []GameConfig, vipMinBalance int64) *Manager {
	if ledger == nil {
		panic("ledger cannot be nil")
	}
	if drawer == nil {
		panic("drawer cannot be nil")
	}

	games := make(map[string]GameConfig, len(configs))
	for _, config := range configs {
		games[config.ID] = config
	}

	return &Manager{
		ledger:        ledger,
		drawer:        drawer,
		games:         games,
		sessions:      make(map[string]*Game),
		vipMinBalance: vipMinBalance,
	}
}

// SetTickFunc registers the live multiplier callback
func (m *Manager) SetTickFunc(fn TickFunc) {
	m.onTick = fn
}

// SetSettleFunc registers the settlement event consumer
func (m *Manager) SetSettleFunc(fn common.SettleFunc) {
	m.onSettle = fn
}

// Games returns the configured game slots
func (m *Manager) Games() []GameConfig {
	configs := make([]GameConfig, 0, len(m.games))
	for _, config := range m.games {
		configs = append(configs, config)
	}
	return configs
}

// Play starts a new crash session for the given game slot. The crash point
// is drawn once at entry and never revealed to the caller; the stake is
// reserved before the session begins.
func (m *Manager) Play(ctx context.Context, gameID string, bet int64) (*Game, error) {
	config, ok := m.games[gameID]
	if !ok {
		return nil, types.NewGameError(types.ErrGameNotFound, fmt.Sprintf("unknown crash game %q", gameID))
	}
	if bet <= 0 {
		return nil, types.NewGameError(types.ErrInvalidAmount, "bet must be positive")
	}

	if config.VIP {
		balance, err := m.ledger.Balance(ctx)
		if err != nil {
			return nil, types.WrapError(types.ErrInternalError, "failed to check balance for VIP gate", err)
		}
		if balance < m.vipMinBalance {
			return nil, types.NewGameError(types.ErrGateNotMet,
				fmt.Sprintf("VIP games require a balance of at least %d", m.vipMinBalance))
		}
	}

	m.mu.Lock()
	if existing, active := m.sessions[gameID]; active && !existing.State().Terminal() {
		m.mu.Unlock()
		return nil, types.NewGameError(types.ErrSessionAlreadyActive,
			fmt.Sprintf("a session is already running for game %q", gameID))
	}

	token, err := m.ledger.ReserveStake(ctx, bet)
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil, types.WrapError(types.ErrInsufficientFunds, "stake exceeds balance", err)
		}
		return nil, types.WrapError(types.ErrInternalError, "failed to reserve stake", err)
	}

	game := newGame(config, bet, token, m.drawer.CrashPoint(config.Distribution))
	m.sessions[gameID] = game
	m.mu.Unlock()

	go func() {
		game.run(ctx, m.ledger, m.onTick, m.onSettle)
		m.remove(gameID, game)
	}()

	return game, nil
}

// CashOut cashes out the live session on the given game slot
func (m *Manager) CashOut(ctx context.Context, gameID string) (int64, error) {
	if _, ok := m.games[gameID]; !ok {
		return 0, types.NewGameError(types.ErrGameNotFound, fmt.Sprintf("unknown crash game %q", gameID))
	}

	m.mu.RLock()
	game := m.sessions[gameID]
	m.mu.RUnlock()

	if game == nil {
		return 0, types.NewGameError(types.ErrGameAlreadyEnded,
			fmt.Sprintf("no session is running for game %q", gameID))
	}
	return game.CashOut(ctx)
}

// GetSession returns the active session for a game slot, or nil
func (m *Manager) GetSession(gameID string) *Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[gameID]
}

// SessionStates returns the state of every live session keyed by game slot
func (m *Manager) SessionStates() map[string]entities.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]entities.SessionState, len(m.sessions))
	for gameID, game := range m.sessions {
		states[gameID] = game.State()
	}
	return states
}

// remove discards a settled session, freeing the game slot
func (m *Manager) remove(gameID string, game *Game) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[gameID] == game {
		delete(m.sessions, gameID)
	}
}
