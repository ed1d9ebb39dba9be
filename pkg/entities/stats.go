package entities

import "time"

// GameStats represents aggregated gameplay counters, updated exactly once
// per settled session.
type GameStats struct {
	TotalSpins        int       `json:"total_spins"`
	TotalWins         int       `json:"total_wins"`
	TotalWagered      int64     `json:"total_wagered"`
	MaxMultiplierSeen float64   `json:"max_multiplier_seen"`
	VIPPlaysCount     int       `json:"vip_plays_count"`
	LastUpdated       time.Time `json:"last_updated"`
}

// WinRate calculates the player's win rate as a percentage
func (s *GameStats) WinRate() float64 {
	if s.TotalSpins == 0 {
		return 0.0
	}
	return float64(s.TotalWins) / float64(s.TotalSpins) * 100.0
}

// Achievement represents a one-way unlockable. Once unlocked it stays
// unlocked; re-evaluating the condition is a no-op.
type Achievement struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// VipHistoryEntry is one settled VIP-tier play. The history is append-only
// and capped to the newest entries.
type VipHistoryEntry struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	Bet           int64     `json:"bet"`
	OutcomeAmount int64     `json:"outcome_amount"`
	Multiplier    float64   `json:"multiplier,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
