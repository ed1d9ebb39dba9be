package entities

import "time"

// SessionState represents the lifecycle state of a game session
type SessionState string

const (
	StateIdle      SessionState = "IDLE"
	StateSpinning  SessionState = "SPINNING"
	StateRunning   SessionState = "RUNNING"
	StateSettled   SessionState = "SETTLED"
	StateCashedOut SessionState = "CASHED_OUT"
	StateCrashed   SessionState = "CRASHED"
)

// Terminal returns true if the state is a terminal settlement state
func (s SessionState) Terminal() bool {
	switch s {
	case StateSettled, StateCashedOut, StateCrashed:
		return true
	}
	return false
}

// Settlement is the terminal event of a game session. Exactly one is
// produced per session and it is recorded exactly once.
type Settlement struct {
	SessionID   string       `json:"session_id"`
	GameID      string       `json:"game_id"`
	State       SessionState `json:"state"`
	Bet         int64        `json:"bet"`
	Payout      int64        `json:"payout"` // 0 on a loss
	Multiplier  float64      `json:"multiplier,omitempty"`
	IsWin       bool         `json:"is_win"`
	VIP         bool         `json:"vip"`
	CompletedAt time.Time    `json:"completed_at"`
}
