package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"wealthflow/src/utils"
)

type CheckKind string

const (
	CheckPositionSize CheckKind = "position_size"
	CheckDailyLoss    CheckKind = "daily_loss"
	CheckBuyingPower  CheckKind = "buying_power"
	CheckExposure     CheckKind = "total_exposure"
)

// Decision is the outcome of a single risk check. MaxAllowedQty is only set
// when a position-size check rejects.
type Decision struct {
	Allowed       bool      `json:"allowed"`
	Check         CheckKind `json:"check"`
	Reason        string    `json:"reason,omitempty"`
	MaxAllowedQty *int64    `json:"max_allowed_quantity,omitempty"`
}

func allowed(kind CheckKind) Decision {
	return Decision{Allowed: true, Check: kind}
}

// State is the persisted daily risk snapshot.
type State struct {
	DailyPnL      decimal.Decimal
	ResetBoundary time.Time
}

// Manager owns the daily P&L and guards new orders against configured limits.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	dailyPnL decimal.Decimal
	boundary time.Time
	now      func() time.Time
	logger   *logrus.Entry
}

func NewManager(cfg Config, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Manager{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.WithField("component", "risk"),
	}
	m.boundary = utils.ResetTime(m.now(), "day")
	return m
}

// WithClock swaps the time source and re-anchors the reset boundary to it.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.boundary = utils.ResetTime(now(), "day")
	return m
}

func (m *Manager) Config() Config { return m.cfg }

func pct(v decimal.Decimal) string {
	return v.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// CheckPositionSize rejects orders whose notional exceeds MaxPositionPct of capital.
func (m *Manager) CheckPositionSize(symbol string, qty, price, capital decimal.Decimal) Decision {
	if !capital.IsPositive() {
		return Decision{Check: CheckPositionSize, Reason: "total capital must be positive"}
	}

	limit := decimal.NewFromFloat(m.cfg.MaxPositionPct)
	sizePct := qty.Mul(price).Div(capital)
	if sizePct.LessThanOrEqual(limit) {
		return allowed(CheckPositionSize)
	}

	var maxQty int64
	if price.IsPositive() {
		maxQty = capital.Mul(limit).Div(price).Floor().IntPart()
	}

	m.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"size_pct": sizePct.String(),
		"max_qty":  maxQty,
	}).Info("position size rejected")

	return Decision{
		Check:         CheckPositionSize,
		Reason:        fmt.Sprintf("Position size %s exceeds limit %s", pct(sizePct), pct(limit)),
		MaxAllowedQty: &maxQty,
	}
}

// CheckDailyLoss rejects when today's realized loss exceeds MaxDailyLossPct of capital.
// The daily P&L is reset lazily here once the local date has moved past the boundary.
func (m *Manager) CheckDailyLoss(capital decimal.Decimal) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	midnight := utils.ResetTime(m.now(), "day")
	if midnight.After(m.boundary) {
		m.logger.WithFields(logrus.Fields{
			"previous_pnl": m.dailyPnL.String(),
			"boundary":     midnight,
		}).Info("daily pnl reset")
		m.dailyPnL = decimal.Zero
		m.boundary = midnight
	}

	if !m.dailyPnL.IsNegative() || !capital.IsPositive() {
		return allowed(CheckDailyLoss)
	}

	limit := decimal.NewFromFloat(m.cfg.MaxDailyLossPct)
	lossPct := m.dailyPnL.Abs().Div(capital)
	if lossPct.GreaterThan(limit) {
		return Decision{
			Check:  CheckDailyLoss,
			Reason: fmt.Sprintf("Daily loss %s exceeds limit %s", pct(lossPct), pct(limit)),
		}
	}
	return allowed(CheckDailyLoss)
}

// CheckBuyingPower rejects orders that need more cash than the account has available.
func (m *Manager) CheckBuyingPower(required, buyingPower decimal.Decimal) Decision {
	if required.GreaterThan(buyingPower) {
		return Decision{
			Check:  CheckBuyingPower,
			Reason: fmt.Sprintf("Insufficient buying power: %s < %s", buyingPower.StringFixed(2), required.StringFixed(2)),
		}
	}
	return allowed(CheckBuyingPower)
}

// CheckExposure rejects orders that would push the gross position value above
// MaxTotalExposurePct of capital.
func (m *Manager) CheckExposure(currentExposure, addValue, capital decimal.Decimal) Decision {
	if !capital.IsPositive() {
		return Decision{Check: CheckExposure, Reason: "total capital must be positive"}
	}
	limit := decimal.NewFromFloat(m.cfg.MaxTotalExposurePct)
	exposurePct := currentExposure.Add(addValue).Div(capital)
	if exposurePct.GreaterThan(limit) {
		return Decision{
			Check:  CheckExposure,
			Reason: fmt.Sprintf("Total exposure %s exceeds limit %s", pct(exposurePct), pct(limit)),
		}
	}
	return allowed(CheckExposure)
}

// RecordPnL accumulates realized P&L. Rollover is only evaluated by CheckDailyLoss.
func (m *Manager) RecordPnL(delta decimal.Decimal) {
	m.mu.Lock()
	m.dailyPnL = m.dailyPnL.Add(delta)
	m.mu.Unlock()
}

func (m *Manager) DailyPnL() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{DailyPnL: m.dailyPnL, ResetBoundary: m.boundary}
}

// Restore loads a persisted snapshot. A zero boundary is treated as corrupted.
func (m *Manager) Restore(s State) error {
	if s.ResetBoundary.IsZero() {
		return fmt.Errorf("restore risk state: missing reset boundary")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = s.DailyPnL
	m.boundary = s.ResetBoundary
	return nil
}
