package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/internal/config"
	"github.com/fadedpez/kolovegas/internal/logging"
	"github.com/fadedpez/kolovegas/internal/types"
	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/fadedpez/kolovegas/pkg/games/crash"
	"github.com/fadedpez/kolovegas/pkg/games/slot"
	"github.com/fadedpez/kolovegas/pkg/reels"
	"github.com/fadedpez/kolovegas/pkg/repositories/archive"
	walletRepo "github.com/fadedpez/kolovegas/pkg/repositories/wallet"
	"github.com/fadedpez/kolovegas/pkg/services/statistics"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
	"github.com/fadedpez/kolovegas/pkg/storage"
)

const (
	transactionLogDepth = 50
	orderLogDepth       = 50
	chatIndexDepth      = 20
)

// chatSessionRef is one entry of the persisted chat session index
type chatSessionRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// catalogEntry is one game in the persisted catalog snapshot
type catalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	VIP  bool   `json:"vip"`
}

// Snapshot is the full engine state handed to the caller after a command
type Snapshot struct {
	Wallet       entities.Wallet                  `json:"wallet"`
	Transactions []*entities.Transaction          `json:"transactions"`
	Stats        entities.GameStats               `json:"stats"`
	Achievements []entities.Achievement           `json:"achievements"`
	VipHistory   []entities.VipHistoryEntry       `json:"vip_history"`
	Sessions     map[string]entities.SessionState `json:"sessions"`
	Theme        string                           `json:"theme"`
	AIPersona    string                           `json:"ai_persona"`
}

// Engine wires the wallet ledger, game session managers, stats engine and
// the snapshot store into one command surface. State is loaded from the
// store once at construction and written back after every mutation; a
// failed write is logged and retried on the next mutation, it never fails
// the command that triggered it.
type Engine struct {
	cfg    *config.Config
	logger *logging.Logger
	store  storage.Store

	ledger *wallet.Service
	stats  *statistics.Service
	slots  *slot.Manager
	crash  *crash.Manager
	arch   archive.Archiver

	mu             sync.Mutex
	theme          string
	persona        string
	chatIndex      []chatSessionRef
	orderLog       []entities.Settlement
	pendingArchive []entities.Settlement
}

// New constructs the engine, restores persisted state and registers the
// session managers' settlement hooks.
func New(cfg *config.Config, store storage.Store, repo walletRepo.Repository, drawer reels.Drawer, arch archive.Archiver) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if repo == nil {
		return nil, errors.New("repository cannot be nil")
	}
	if drawer == nil {
		drawer = reels.NewGenerator()
	}

	ctx := context.Background()
	logger := logging.Default

	ledger := wallet.NewService(repo, cfg.Currency, cfg.IsDevelopment())

	// The repository wins over the snapshot; the snapshot wins over the
	// configured seed. Initialize only seeds an empty repository.
	seed := cfg.SeedBalance
	var persisted entities.Wallet
	if err := storage.GetJSON(ctx, store, storage.KeyWallet, &persisted); err == nil {
		seed = persisted.Balance
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		logger.Warn("Failed to read wallet snapshot, seeding from config: %v", err)
	}
	seeded, err := ledger.Initialize(ctx, seed)
	if err != nil {
		return nil, err
	}
	if seeded {
		logger.Info("Seeded fresh wallet with balance %d %s", seed, cfg.Currency)
	}

	// An empty repository (memory, or a fresh sqlite file) is rehydrated
	// from the snapshot so a restart keeps the transaction history.
	if existing, err := repo.GetTransactions(ctx, 1); err == nil && len(existing) == 0 {
		var txLog []*entities.Transaction
		if err := storage.GetJSON(ctx, store, storage.KeyTransactionLog, &txLog); err != nil {
			if !errors.Is(err, storage.ErrKeyNotFound) {
				logger.Warn("Failed to read transaction log snapshot: %v", err)
			}
		} else {
			// The snapshot stores newest first; replay oldest first
			for i := len(txLog) - 1; i >= 0; i-- {
				if err := repo.AddTransaction(ctx, txLog[i]); err != nil {
					logger.Warn("Failed to restore transaction %s: %v", txLog[i].ID, err)
				}
			}
			if len(txLog) > 0 {
				logger.Info("Restored %d transactions from snapshot", len(txLog))
			}
		}
	}

	stats := statistics.NewService(statistics.Config{
		BigWinThreshold: cfg.BigWinThreshold,
		LoyalSpins:      cfg.LoyalSpins,
	})

	var gameStats entities.GameStats
	var achievements []entities.Achievement
	var history []entities.VipHistoryEntry
	loadOptional(ctx, store, logger, storage.KeyGameStats, &gameStats)
	loadOptional(ctx, store, logger, storage.KeyAchievements, &achievements)
	loadOptional(ctx, store, logger, storage.KeyVipHistory, &history)
	stats.Restore(gameStats, achievements, history)

	e := &Engine{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ledger: ledger,
		stats:  stats,
		arch:   arch,
	}

	loadOptional(ctx, store, logger, storage.KeyThemePreference, &e.theme)
	loadOptional(ctx, store, logger, storage.KeyAIPersona, &e.persona)
	loadOptional(ctx, store, logger, storage.KeyChatIndex, &e.chatIndex)
	loadOptional(ctx, store, logger, storage.KeyOrderLog, &e.orderLog)

	e.slots = slot.NewManager(ledger, drawer, slot.DefaultGames(), cfg.VIPMinBalance)
	e.slots.SetSettleFunc(e.handleSettlement)
	e.crash = crash.NewManager(ledger, drawer, crash.DefaultGames(), cfg.VIPMinBalance)
	e.crash.SetSettleFunc(e.handleSettlement)

	e.persistCatalog(ctx)

	return e, nil
}

// loadOptional reads a snapshot blob into out; a missing key leaves the
// zero value in place.
func loadOptional(ctx context.Context, store storage.Store, logger *logging.Logger, key storage.Key, out interface{}) {
	if err := storage.GetJSON(ctx, store, key, out); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		logger.Warn("Failed to load snapshot key %s: %v", key, err)
	}
}

// Slots exposes the slot session manager
func (e *Engine) Slots() *slot.Manager {
	return e.slots
}

// Crash exposes the crash session manager
func (e *Engine) Crash() *crash.Manager {
	return e.crash
}

// Deposit adds funds to the wallet
func (e *Engine) Deposit(ctx context.Context, amount int64, method string) (*entities.Transaction, error) {
	tx, err := e.ledger.Deposit(ctx, amount, method)
	if err != nil {
		return nil, walletError(err)
	}
	e.persistWallet(ctx)
	return tx, nil
}

// Withdraw moves funds out of the wallet. The transaction starts pending
// and the balance is deducted immediately.
func (e *Engine) Withdraw(ctx context.Context, amount int64, method, destination string) (*entities.Transaction, error) {
	tx, err := e.ledger.Withdraw(ctx, amount, method, destination)
	if err != nil {
		return nil, walletError(err)
	}
	e.persistWallet(ctx)
	return tx, nil
}

// ResolveWithdrawal completes or fails a pending withdrawal. A failed
// withdrawal refunds the deducted amount.
func (e *Engine) ResolveWithdrawal(ctx context.Context, id string, success bool) error {
	if err := e.ledger.ResolveWithdrawal(ctx, id, success); err != nil {
		return walletError(err)
	}
	e.persistWallet(ctx)
	return nil
}

// StartSlotSession starts a slot session on the given game slot
func (e *Engine) StartSlotSession(ctx context.Context, gameID string, bet int64) (*slot.Game, error) {
	game, err := e.slots.Play(ctx, gameID, bet)
	if err != nil {
		return nil, err
	}
	e.persistWallet(ctx)
	return game, nil
}

// StartCrashSession starts a crash session on the given game slot
func (e *Engine) StartCrashSession(ctx context.Context, gameID string, bet int64) (*crash.Game, error) {
	game, err := e.crash.Play(ctx, gameID, bet)
	if err != nil {
		return nil, err
	}
	e.persistWallet(ctx)
	return game, nil
}

// CashOut cashes out the running crash session on the given game slot
func (e *Engine) CashOut(ctx context.Context, gameID string) (int64, error) {
	return e.crash.CashOut(ctx, gameID)
}

// Theme returns the persisted UI theme preference
func (e *Engine) Theme() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theme
}

// SetTheme stores the UI theme preference
func (e *Engine) SetTheme(ctx context.Context, theme string) {
	e.mu.Lock()
	e.theme = theme
	e.mu.Unlock()
	e.persistPreference(ctx, storage.KeyThemePreference, theme)
}

// AIPersona returns the persisted assistant persona preference
func (e *Engine) AIPersona() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persona
}

// SetAIPersona stores the assistant persona preference
func (e *Engine) SetAIPersona(ctx context.Context, persona string) {
	e.mu.Lock()
	e.persona = persona
	e.mu.Unlock()
	e.persistPreference(ctx, storage.KeyAIPersona, persona)
}

// RegisterChatSession records a chat session in the persisted index,
// newest first, capped
func (e *Engine) RegisterChatSession(ctx context.Context, id string) {
	e.mu.Lock()
	e.chatIndex = append([]chatSessionRef{{ID: id, StartedAt: time.Now()}}, e.chatIndex...)
	if len(e.chatIndex) > chatIndexDepth {
		e.chatIndex = e.chatIndex[:chatIndexDepth]
	}
	index := make([]chatSessionRef, len(e.chatIndex))
	copy(index, e.chatIndex)
	e.mu.Unlock()

	e.persistPreference(ctx, storage.KeyChatIndex, index)
}

// ChatSessions returns the chat session index, newest first
func (e *Engine) ChatSessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(e.chatIndex))
	for i, ref := range e.chatIndex {
		ids[i] = ref.ID
	}
	return ids
}

// RecentSettlements returns the most recent settlements, newest first
func (e *Engine) RecentSettlements(limit int) []entities.Settlement {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 || limit > len(e.orderLog) {
		limit = len(e.orderLog)
	}
	out := make([]entities.Settlement, limit)
	copy(out, e.orderLog[:limit])
	return out
}

// Snapshot assembles the full engine state for rendering
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	w, err := e.ledger.Wallet(ctx)
	if err != nil {
		return nil, walletError(err)
	}
	txs, err := e.ledger.RecentTransactions(ctx, transactionLogDepth)
	if err != nil {
		return nil, walletError(err)
	}

	sessions := e.slots.SessionStates()
	for gameID, state := range e.crash.SessionStates() {
		sessions[gameID] = state
	}

	e.mu.Lock()
	theme, persona := e.theme, e.persona
	e.mu.Unlock()

	return &Snapshot{
		Wallet:       *w,
		Transactions: txs,
		Stats:        e.stats.Stats(),
		Achievements: e.stats.Achievements(),
		VipHistory:   e.stats.VipHistory(),
		Sessions:     sessions,
		Theme:        theme,
		AIPersona:    persona,
	}, nil
}

// FlushSnapshot writes every snapshot blob. Used by the maintenance
// scheduler and at shutdown.
func (e *Engine) FlushSnapshot(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w, err := e.ledger.Wallet(ctx)
	record(err)
	if err == nil {
		record(storage.PutJSON(ctx, e.store, storage.KeyWallet, w))
	}
	txs, err := e.ledger.RecentTransactions(ctx, transactionLogDepth)
	record(err)
	if err == nil {
		record(storage.PutJSON(ctx, e.store, storage.KeyTransactionLog, txs))
	}

	record(storage.PutJSON(ctx, e.store, storage.KeyGameStats, e.stats.Stats()))
	record(storage.PutJSON(ctx, e.store, storage.KeyAchievements, e.stats.Achievements()))
	record(storage.PutJSON(ctx, e.store, storage.KeyVipHistory, e.stats.VipHistory()))

	e.mu.Lock()
	theme, persona := e.theme, e.persona
	index := make([]chatSessionRef, len(e.chatIndex))
	copy(index, e.chatIndex)
	orders := make([]entities.Settlement, len(e.orderLog))
	copy(orders, e.orderLog)
	e.mu.Unlock()

	record(storage.PutJSON(ctx, e.store, storage.KeyThemePreference, theme))
	record(storage.PutJSON(ctx, e.store, storage.KeyAIPersona, persona))
	record(storage.PutJSON(ctx, e.store, storage.KeyChatIndex, index))
	record(storage.PutJSON(ctx, e.store, storage.KeyOrderLog, orders))

	return firstErr
}

// RetryArchive re-indexes settlements whose archive write failed earlier
func (e *Engine) RetryArchive(ctx context.Context) error {
	if e.arch == nil {
		return nil
	}

	e.mu.Lock()
	pending := e.pendingArchive
	e.pendingArchive = nil
	e.mu.Unlock()

	var failed []entities.Settlement
	for _, settlement := range pending {
		if err := e.arch.IndexSettlement(ctx, settlement); err != nil {
			e.logger.Warn("Archive retry failed for session %s: %v", settlement.SessionID, err)
			failed = append(failed, settlement)
		}
	}

	if len(failed) > 0 {
		e.mu.Lock()
		e.pendingArchive = append(failed, e.pendingArchive...)
		e.mu.Unlock()
		return errors.New("some settlements could not be archived")
	}
	return nil
}

// Close writes a final snapshot and releases resources
func (e *Engine) Close(ctx context.Context) error {
	if err := e.FlushSnapshot(ctx); err != nil {
		e.logger.Warn("Final snapshot write failed: %v", err)
	}
	if e.arch != nil {
		if err := e.arch.Close(); err != nil {
			e.logger.Warn("Failed to close archive: %v", err)
		}
	}
	return e.store.Close()
}

// handleSettlement is invoked exactly once per settled session, after the
// wallet has applied the payout.
func (e *Engine) handleSettlement(settlement entities.Settlement) {
	ctx := context.Background()

	unlocked := e.stats.RecordSettlement(settlement)
	for _, achievement := range unlocked {
		e.logger.Info("Achievement unlocked: %s", achievement.Name)
	}

	e.mu.Lock()
	e.orderLog = append([]entities.Settlement{settlement}, e.orderLog...)
	if len(e.orderLog) > orderLogDepth {
		e.orderLog = e.orderLog[:orderLogDepth]
	}
	e.mu.Unlock()

	e.persistWallet(ctx)
	e.persistStats(ctx)

	if e.arch != nil {
		if err := e.arch.IndexSettlement(ctx, settlement); err != nil {
			e.logger.Warn("Failed to archive settlement %s, queued for retry: %v", settlement.SessionID, err)
			e.mu.Lock()
			e.pendingArchive = append(e.pendingArchive, settlement)
			e.mu.Unlock()
		}
	}
}

// persistWallet writes the wallet and transaction log blobs, best effort
func (e *Engine) persistWallet(ctx context.Context) {
	w, err := e.ledger.Wallet(ctx)
	if err != nil {
		e.logger.Warn("Snapshot skipped, wallet unavailable: %v", err)
		return
	}
	if err := storage.PutJSON(ctx, e.store, storage.KeyWallet, w); err != nil {
		e.logger.Warn("Wallet snapshot write failed, will retry on next mutation: %v", err)
	}

	txs, err := e.ledger.RecentTransactions(ctx, transactionLogDepth)
	if err != nil {
		return
	}
	if err := storage.PutJSON(ctx, e.store, storage.KeyTransactionLog, txs); err != nil {
		e.logger.Warn("Transaction log snapshot write failed, will retry on next mutation: %v", err)
	}
}

// persistStats writes the stats, achievement, history and order blobs
func (e *Engine) persistStats(ctx context.Context) {
	puts := map[storage.Key]interface{}{
		storage.KeyGameStats:    e.stats.Stats(),
		storage.KeyAchievements: e.stats.Achievements(),
		storage.KeyVipHistory:   e.stats.VipHistory(),
	}

	e.mu.Lock()
	orders := make([]entities.Settlement, len(e.orderLog))
	copy(orders, e.orderLog)
	e.mu.Unlock()
	puts[storage.KeyOrderLog] = orders

	for key, value := range puts {
		if err := storage.PutJSON(ctx, e.store, key, value); err != nil {
			e.logger.Warn("Snapshot write for %s failed, will retry on next mutation: %v", key, err)
		}
	}
}

func (e *Engine) persistPreference(ctx context.Context, key storage.Key, value interface{}) {
	if err := storage.PutJSON(ctx, e.store, key, value); err != nil {
		e.logger.Warn("Snapshot write for %s failed, will retry on next mutation: %v", key, err)
	}
}

// persistCatalog writes the configured game catalog, best effort
func (e *Engine) persistCatalog(ctx context.Context) {
	var catalog []catalogEntry
	for _, game := range e.slots.Games() {
		catalog = append(catalog, catalogEntry{ID: game.ID, Name: game.Name, Kind: "slot", VIP: game.VIP})
	}
	for _, game := range e.crash.Games() {
		catalog = append(catalog, catalogEntry{ID: game.ID, Name: game.Name, Kind: "crash", VIP: game.VIP})
	}

	if err := storage.PutJSON(ctx, e.store, storage.KeyCatalog, catalog); err != nil {
		e.logger.Warn("Catalog snapshot write failed: %v", err)
	}
}

// walletError maps ledger sentinel errors onto the engine error taxonomy
func walletError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount):
		return types.WrapError(types.ErrInvalidAmount, "amount must be a positive number", err)
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return types.WrapError(types.ErrInsufficientFunds, "requested amount exceeds balance", err)
	case errors.Is(err, wallet.ErrInvalidDestination):
		return types.WrapError(types.ErrInvalidDestination, "withdrawal destination failed format check", err)
	case err == nil:
		return nil
	default:
		return types.WrapError(types.ErrInternalError, "wallet operation failed", err)
	}
}
