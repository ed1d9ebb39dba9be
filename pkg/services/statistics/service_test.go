package statistics

import (
	"fmt"
	"testing"
	"time"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		BigWinThreshold: 10000,
		LoyalSpins:      100,
	}
}

func settled(bet, payout int64, multiplier float64, vip bool) entities.Settlement {
	return entities.Settlement{
		SessionID:   "session-1",
		GameID:      "kolo-classic",
		Bet:         bet,
		Payout:      payout,
		Multiplier:  multiplier,
		IsWin:       payout > 0,
		VIP:         vip,
		CompletedAt: time.Now(),
	}
}

func TestRecordSettlement_Counters(t *testing.T) {
	service := NewService(testConfig())

	service.RecordSettlement(settled(100, 500, 0, false))
	service.RecordSettlement(settled(200, 0, 1.8, false))
	service.RecordSettlement(settled(300, 450, 1.5, true))

	stats := service.Stats()
	assert.Equal(t, 3, stats.TotalSpins)
	assert.Equal(t, 2, stats.TotalWins)
	assert.Equal(t, int64(600), stats.TotalWagered)
	assert.Equal(t, 1.8, stats.MaxMultiplierSeen)
	assert.Equal(t, 1, stats.VIPPlaysCount)
}

func TestRecordSettlement_MaxMultiplierNeverDecreases(t *testing.T) {
	service := NewService(testConfig())

	service.RecordSettlement(settled(100, 0, 4.2, false))
	service.RecordSettlement(settled(100, 0, 1.1, false))

	assert.Equal(t, 4.2, service.Stats().MaxMultiplierSeen)
}

func TestAchievementUnlocks(t *testing.T) {
	tests := []struct {
		name       string
		settlement entities.Settlement
		expected   []string
	}{
		{
			name:       "first settlement unlocks first play",
			settlement: settled(100, 0, 0, false),
			expected:   []string{AchievementFirstPlay},
		},
		{
			name:       "big payout unlocks big win",
			settlement: settled(100, 10000, 0, false),
			expected:   []string{AchievementFirstPlay, AchievementBigWin},
		},
		{
			name:       "vip game unlocks vip entry",
			settlement: settled(100, 0, 0, true),
			expected:   []string{AchievementFirstPlay, AchievementVIPEntry},
		},
		{
			name:       "multiplier of five unlocks crash master",
			settlement: settled(100, 550, 5.5, false),
			expected:   []string{AchievementFirstPlay, AchievementCrashMaster},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(testConfig())

			unlocked := service.RecordSettlement(tt.settlement)

			ids := make([]string, 0, len(unlocked))
			for _, achievement := range unlocked {
				ids = append(ids, achievement.ID)
			}
			assert.Equal(t, tt.expected, ids, "Unlocks should follow predicate insertion order")
		})
	}
}

func TestLoyalUnlocksAtSpinThreshold(t *testing.T) {
	service := NewService(Config{BigWinThreshold: 10000, LoyalSpins: 3})

	service.RecordSettlement(settled(100, 0, 0, false))
	service.RecordSettlement(settled(100, 0, 0, false))
	assert.False(t, service.IsUnlocked(AchievementLoyal))

	unlocked := service.RecordSettlement(settled(100, 0, 0, false))

	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementLoyal, unlocked[0].ID)
}

func TestAchievementIdempotence(t *testing.T) {
	service := NewService(testConfig())

	first := service.RecordSettlement(settled(100, 10000, 0, true))
	second := service.RecordSettlement(settled(100, 10000, 0, true))

	assert.NotEmpty(t, first)
	assert.Empty(t, second, "Re-unlocking must be a no-op")
	assert.Len(t, service.Achievements(), 3)
}

func TestVipHistoryCap(t *testing.T) {
	service := NewService(testConfig())

	for i := 0; i < VipHistoryCap+1; i++ {
		settlement := settled(int64(100+i), 0, 0, true)
		settlement.GameID = fmt.Sprintf("vip-game-%d", i)
		service.RecordSettlement(settlement)
	}

	history := service.VipHistory()

	require.Len(t, history, VipHistoryCap, "History must be capped")
	assert.Equal(t, "vip-game-10", history[0].GameID, "Newest entry first")
	assert.Equal(t, "vip-game-1", history[len(history)-1].GameID, "Oldest entry evicted")
}

func TestNonVipSettlementLeavesHistoryAlone(t *testing.T) {
	service := NewService(testConfig())

	service.RecordSettlement(settled(100, 500, 0, false))

	assert.Empty(t, service.VipHistory())
}

func TestRestore(t *testing.T) {
	service := NewService(testConfig())

	service.Restore(
		entities.GameStats{TotalSpins: 42, TotalWins: 10, TotalWagered: 9000},
		[]entities.Achievement{{ID: AchievementFirstPlay, Name: "First Play", UnlockedAt: time.Now()}},
		[]entities.VipHistoryEntry{{ID: "e1", GameID: "kolo-royale", Bet: 100}},
	)

	assert.Equal(t, 42, service.Stats().TotalSpins)
	assert.True(t, service.IsUnlocked(AchievementFirstPlay))
	require.Len(t, service.VipHistory(), 1)

	// A restored unlock stays idempotent
	unlocked := service.RecordSettlement(settled(100, 0, 0, false))
	assert.Empty(t, unlocked)
}
