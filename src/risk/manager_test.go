package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newTestManager(now *time.Time) *Manager {
	log, _ := logrustest.NewNullLogger()
	return NewManager(DefaultConfig(), logrus.NewEntry(log)).WithClock(func() time.Time { return *now })
}

func TestCheckPositionSize(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)
	m := newTestManager(&now)

	ok := m.CheckPositionSize("AAPL", d(1), d(150), d(10000))
	assert.True(t, ok.Allowed)
	assert.Nil(t, ok.MaxAllowedQty)

	rejected := m.CheckPositionSize("AAPL", d(100), d(150), d(10000))
	assert.False(t, rejected.Allowed)
	assert.Equal(t, CheckPositionSize, rejected.Check)
	require.NotNil(t, rejected.MaxAllowedQty)
	assert.Equal(t, int64(1), *rejected.MaxAllowedQty)
	assert.Equal(t, "Position size 150.00% exceeds limit 2.00%", rejected.Reason)
}

func TestCheckPositionSizeAtExactLimit(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)
	m := newTestManager(&now)

	assert.True(t, m.CheckPositionSize("X", d(2), d(100), d(10000)).Allowed)
}

func TestDailyLossLimit(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)
	m := newTestManager(&now)

	m.RecordPnL(d(-300))
	assert.True(t, m.CheckDailyLoss(d(10000)).Allowed)

	m.RecordPnL(d(-400))
	res := m.CheckDailyLoss(d(10000))
	assert.False(t, res.Allowed)
	assert.Equal(t, CheckDailyLoss, res.Check)
	assert.Equal(t, "Daily loss 7.00% exceeds limit 5.00%", res.Reason)
}

func TestDailyLossIgnoresProfit(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)
	m := newTestManager(&now)

	m.RecordPnL(d(5000))
	assert.True(t, m.CheckDailyLoss(d(10000)).Allowed)
}

func TestDailyLossResetsLazilyAfterMidnight(t *testing.T) {
	now := time.Date(2024, 6, 3, 23, 50, 0, 0, time.Local)
	m := newTestManager(&now)

	m.RecordPnL(d(-900))
	assert.False(t, m.CheckDailyLoss(d(10000)).Allowed)

	now = now.Add(20 * time.Minute)
	// recording never rolls over
	m.RecordPnL(d(-1))
	assert.True(t, m.DailyPnL().Equal(d(-901)))

	assert.True(t, m.CheckDailyLoss(d(10000)).Allowed)
	assert.True(t, m.DailyPnL().IsZero())
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local), m.State().ResetBoundary)
}

func TestCheckBuyingPower(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)

	assert.True(t, m.CheckBuyingPower(d(150), d(150)).Allowed)
	res := m.CheckBuyingPower(d(150.5), d(150))
	assert.False(t, res.Allowed)
	assert.Equal(t, "Insufficient buying power: 150.00 < 150.50", res.Reason)
}

func TestCheckExposure(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)

	assert.True(t, m.CheckExposure(d(1800), d(200), d(10000)).Allowed)
	res := m.CheckExposure(d(1900), d(200), d(10000))
	assert.False(t, res.Allowed)
	assert.Equal(t, CheckExposure, res.Check)
}

func TestStateRestore(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)
	m := newTestManager(&now)

	boundary := time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)
	require.NoError(t, m.Restore(State{DailyPnL: d(-600), ResetBoundary: boundary}))
	assert.False(t, m.CheckDailyLoss(d(10000)).Allowed)

	s := m.State()
	assert.True(t, s.DailyPnL.Equal(d(-600)))
	assert.Equal(t, boundary, s.ResetBoundary)

	assert.Error(t, m.Restore(State{DailyPnL: d(1)}))
}
