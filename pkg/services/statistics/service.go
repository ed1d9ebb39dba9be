package statistics

import (
	"sync"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/google/uuid"
)

// VipHistoryCap is the maximum number of VIP plays kept in history. The
// oldest entry is evicted when the cap is reached.
const VipHistoryCap = 10

// Achievement IDs
const (
	AchievementFirstPlay   = "first_play"
	AchievementBigWin      = "big_win"
	AchievementVIPEntry    = "vip_entry"
	AchievementCrashMaster = "crash_master"
	AchievementLoyal       = "loyal"
)

// Config holds the unlock thresholds
type Config struct {
	BigWinThreshold int64
	LoyalSpins      int
}

// predicate is one unlock condition, evaluated against the stats state
// after the settlement has been applied
type predicate struct {
	id   string
	name string
	test func(stats *entities.GameStats, settlement entities.Settlement) bool
}

// Service consumes settlement events, updates aggregate counters, and
// evaluates achievement unlock predicates in insertion order.
type Service struct {
	mu         sync.Mutex
	stats      entities.GameStats
	unlocked   map[string]entities.Achievement
	vipHistory []entities.VipHistoryEntry // newest first
	predicates []predicate
}

// NewService creates a new statistics service
func NewService(cfg Config) *Service {
	return &Service{
		unlocked:   make(map[string]entities.Achievement),
		vipHistory: make([]entities.VipHistoryEntry, 0, VipHistoryCap),
		predicates: []predicate{
			{
				id:   AchievementFirstPlay,
				name: "First Play",
				test: func(stats *entities.GameStats, _ entities.Settlement) bool {
					return stats.TotalSpins >= 1
				},
			},
			{
				id:   AchievementBigWin,
				name: "Big Win",
				test: func(_ *entities.GameStats, settlement entities.Settlement) bool {
					return settlement.Payout >= cfg.BigWinThreshold
				},
			},
			{
				id:   AchievementVIPEntry,
				name: "VIP Entry",
				test: func(_ *entities.GameStats, settlement entities.Settlement) bool {
					return settlement.VIP
				},
			},
			{
				id:   AchievementCrashMaster,
				name: "Crash Master",
				test: func(_ *entities.GameStats, settlement entities.Settlement) bool {
					return settlement.Multiplier >= 5
				},
			},
			{
				id:   AchievementLoyal,
				name: "Loyal",
				test: func(stats *entities.GameStats, _ entities.Settlement) bool {
					return stats.TotalSpins >= cfg.LoyalSpins
				},
			},
		},
	}
}

// RecordSettlement applies one settled session to the aggregate counters,
// appends VIP history, and evaluates unlock predicates. Returns any newly
// unlocked achievements. Called exactly once per settled session.
func (s *Service) RecordSettlement(settlement entities.Settlement) []entities.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSpins++
	s.stats.TotalWagered += settlement.Bet
	if settlement.Payout > 0 {
		s.stats.TotalWins++
	}
	if settlement.Multiplier > s.stats.MaxMultiplierSeen {
		s.stats.MaxMultiplierSeen = settlement.Multiplier
	}
	if settlement.VIP {
		s.stats.VIPPlaysCount++
		s.appendVipHistory(settlement)
	}
	s.stats.LastUpdated = time.Now()

	var newlyUnlocked []entities.Achievement
	for _, p := range s.predicates {
		if _, done := s.unlocked[p.id]; done {
			continue
		}
		if !p.test(&s.stats, settlement) {
			continue
		}
		achievement := entities.Achievement{
			ID:         p.id,
			Name:       p.name,
			UnlockedAt: time.Now(),
		}
		s.unlocked[p.id] = achievement
		newlyUnlocked = append(newlyUnlocked, achievement)
	}

	return newlyUnlocked
}

// Stats returns a copy of the aggregate counters
func (s *Service) Stats() entities.GameStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Achievements returns the unlocked set in predicate insertion order
func (s *Service) Achievements() []entities.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	achievements := make([]entities.Achievement, 0, len(s.unlocked))
	for _, p := range s.predicates {
		if achievement, ok := s.unlocked[p.id]; ok {
			achievements = append(achievements, achievement)
		}
	}
	return achievements
}

// IsUnlocked reports whether an achievement has been unlocked
func (s *Service) IsUnlocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.unlocked[id]
	return ok
}

// VipHistory returns the capped VIP play history, newest first
func (s *Service) VipHistory() []entities.VipHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]entities.VipHistoryEntry, len(s.vipHistory))
	copy(history, s.vipHistory)
	return history
}

// Restore loads previously persisted state. Used once at startup before any
// settlement is recorded.
func (s *Service) Restore(stats entities.GameStats, achievements []entities.Achievement, history []entities.VipHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = stats
	for _, achievement := range achievements {
		s.unlocked[achievement.ID] = achievement
	}
	if len(history) > VipHistoryCap {
		history = history[:VipHistoryCap]
	}
	s.vipHistory = append(s.vipHistory[:0], history...)
}

// appendVipHistory prepends one entry, evicting the oldest past the cap.
// Callers must hold the service mutex.
func (s *Service) appendVipHistory(settlement entities.Settlement) {
	entry := entities.VipHistoryEntry{
		ID:            uuid.New().String(),
		GameID:        settlement.GameID,
		Bet:           settlement.Bet,
		OutcomeAmount: settlement.Payout,
		Multiplier:    settlement.Multiplier,
		Timestamp:     settlement.CompletedAt,
	}

	s.vipHistory = append([]entities.VipHistoryEntry{entry}, s.vipHistory...)
	if len(s.vipHistory) > VipHistoryCap {
		s.vipHistory = s.vipHistory[:VipHistoryCap]
	}
}
