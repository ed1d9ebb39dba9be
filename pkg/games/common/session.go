package common

import (
	"context"

	"github.com/fadedpez/kolovegas/pkg/entities"
	wallet "github.com/fadedpez/kolovegas/pkg/services/wallet"
)

// Settler is the slice of the wallet ledger a game session needs: reserve a
// stake on entry, settle it exactly once on exit.
type Settler interface {
	ReserveStake(ctx context.Context, amount int64) (*wallet.StakeToken, error)
	Settle(ctx context.Context, token *wallet.StakeToken, payout int64) error
	Balance(ctx context.Context) (int64, error)
}

// SettleFunc is invoked exactly once per session with the terminal
// settlement event, after the wallet has been settled.
type SettleFunc func(entities.Settlement)
