package execution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"wealthflow/src/broker"
	"wealthflow/src/ledger"
	"wealthflow/src/model"
	"wealthflow/src/risk"
)

var ErrPositionNotFound = errors.New("position not found")

const (
	StrategyManualClose = "manual_close"
	StrategyStopLoss    = "stop_loss"
	StrategyTakeProfit  = "take_profit"
)

// Broker is the order gateway the engine submits to.
type Broker interface {
	Submit(ctx context.Context, o *model.Order) (broker.SubmitResult, error)
	AccountInfo(ctx context.Context) (broker.AccountInfo, error)
	Positions(ctx context.Context) ([]model.Position, error)
	Quote(symbol string) (float64, bool)
	MarkPrice(symbol string, price float64) (filled, cancelled []model.Order)
	CancelResting(symbol string, types ...model.OrderType) []model.Order
	AdjustCash(delta float64)
}

// Store persists orders, positions and the daily risk state. A nil Store keeps
// everything in memory.
type Store interface {
	SaveOrder(ctx context.Context, o *model.Order) error
	SavePosition(ctx context.Context, p model.Position) error
	DeletePosition(ctx context.Context, symbol string) error
	LoadPositions(ctx context.Context) ([]model.Position, error)
	SaveRiskState(ctx context.Context, s risk.State) error
	LoadRiskState(ctx context.Context) (risk.State, bool, error)
}

// Record is one entry of the execution history. Each order has at most one
// record; a pending limit order's record is updated when it fills.
type Record struct {
	Timestamp   time.Time           `json:"timestamp"`
	Signal      *Signal             `json:"signal,omitempty"`
	Order       model.Order         `json:"order"`
	Result      broker.SubmitResult `json:"result"`
	Strategy    string              `json:"strategy"`
	RealizedPnL float64             `json:"realized_pnl"`
}

// Result is returned for every request. Expected business failures (risk
// rejections, missing positions) set Success=false with a Reason.
type Result struct {
	Success       bool              `json:"success"`
	OrderID       string            `json:"order_id,omitempty"`
	Status        model.OrderStatus `json:"status,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Check         risk.CheckKind    `json:"check,omitempty"`
	MaxAllowedQty *int64            `json:"max_allowed_quantity,omitempty"`
	Record        *Record           `json:"execution_record,omitempty"`
}

type Engine struct {
	mu         sync.Mutex
	cfg        Config
	broker     Broker
	ledger     *ledger.Ledger
	risk       *risk.Manager
	store      Store
	history    []Record
	open       map[string]int
	strategies map[string]map[string]any
	active     map[string]bool
	logger     *logrus.Entry
	now        func() time.Time
	observe    func(model.Order)
}

func NewEngine(cfg Config, b Broker, l *ledger.Ledger, rm *risk.Manager, store Store, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		cfg:        cfg,
		broker:     b,
		ledger:     l,
		risk:       rm,
		store:      store,
		open:       map[string]int{},
		strategies: map[string]map[string]any{},
		active:     map[string]bool{},
		logger:     logger.WithField("component", "execution"),
		now:        time.Now,
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithOrderObserver registers a callback run for every submitted or triggered
// order, after the broker has decided its status. It runs under the engine lock.
func (e *Engine) WithOrderObserver(fn func(model.Order)) *Engine {
	e.observe = fn
	return e
}

func (e *Engine) notify(o model.Order) {
	if e.observe != nil {
		e.observe(o)
	}
}

// ExecuteSignal validates the signal, runs the risk checks in order and, when all
// pass, submits the order and applies its fill. Executing the same signal twice
// yields two independent orders.
func (e *Engine) ExecuteSignal(ctx context.Context, sig Signal) (Result, error) {
	sig = sig.normalize(e.cfg.DefaultStrategy)
	if err := sig.validate(); err != nil {
		return Result{Reason: err.Error()}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.resolvePrice(sig)
	if err != nil {
		return Result{Reason: err.Error()}, err
	}

	if decision, err := e.checkRisk(ctx, sig, price); err != nil {
		return Result{Reason: err.Error()}, err
	} else if !decision.Allowed {
		e.logger.WithFields(logrus.Fields{
			"symbol":   sig.Symbol,
			"action":   sig.Action,
			"quantity": sig.Quantity,
			"check":    decision.Check,
		}).Warn(decision.Reason)
		return Result{
			Reason:        decision.Reason,
			Check:         decision.Check,
			MaxAllowedQty: decision.MaxAllowedQty,
		}, nil
	}

	order := e.buildOrder(sig.Symbol, sig.Action, sig.OrderType, sig.Quantity, &price, sig.Strategy)
	return e.submit(ctx, order, &sig)
}

func (e *Engine) resolvePrice(sig Signal) (float64, error) {
	if sig.Price != nil {
		return *sig.Price, nil
	}
	if q, ok := e.broker.Quote(sig.Symbol); ok && q > 0 {
		return q, nil
	}
	return 0, &ValidationError{Field: "price", Reason: "is required when no quote is available for " + sig.Symbol}
}

func (e *Engine) checkRisk(ctx context.Context, sig Signal, price float64) (risk.Decision, error) {
	capital := decimal.NewFromFloat(e.cfg.InitialCapital)
	qty := decimal.NewFromFloat(sig.Quantity)
	px := decimal.NewFromFloat(price)

	if d := e.risk.CheckPositionSize(sig.Symbol, qty, px, capital); !d.Allowed {
		return d, nil
	}
	if d := e.risk.CheckDailyLoss(capital); !d.Allowed {
		return d, nil
	}

	account, err := e.broker.AccountInfo(ctx)
	if err != nil {
		return risk.Decision{}, fmt.Errorf("account info: %w", err)
	}
	notional := qty.Mul(px)
	if d := e.risk.CheckBuyingPower(notional, decimal.NewFromFloat(account.BuyingPower)); !d.Allowed {
		return d, nil
	}

	if e.cfg.EnableExposureCheck && e.increasesExposure(sig) {
		current := decimal.NewFromFloat(e.ledger.Exposure())
		if d := e.risk.CheckExposure(current, notional, capital); !d.Allowed {
			return d, nil
		}
	}
	return risk.Decision{Allowed: true}, nil
}

func (e *Engine) increasesExposure(sig Signal) bool {
	pos, ok := e.ledger.Get(sig.Symbol)
	if !ok {
		return true
	}
	return pos.CloseSide() != sig.Action
}

func (e *Engine) buildOrder(symbol string, side model.OrderSide, typ model.OrderType, qty float64, price *float64, strategy string) *model.Order {
	now := e.now()
	return &model.Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		OrderType: typ,
		Quantity:  qty,
		Price:     price,
		Status:    model.OrderStatusPending,
		Strategy:  strategy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// submit must be called with e.mu held.
func (e *Engine) submit(ctx context.Context, order *model.Order, sig *Signal) (Result, error) {
	res, err := e.broker.Submit(ctx, order)
	e.persistOrder(ctx, order)
	e.notify(*order)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID,
			"symbol":   order.Symbol,
		}).Error("failed to submit order")
		return Result{OrderID: order.ID, Status: order.Status, Reason: err.Error()}, fmt.Errorf("submit order: %w", err)
	}

	rec := Record{
		Timestamp: e.now(),
		Signal:    sig,
		Order:     *order,
		Result:    res,
		Strategy:  order.Strategy,
	}

	if order.Status == model.OrderStatusFilled {
		realized, err := e.applyFill(ctx, *order)
		if err != nil {
			return Result{OrderID: order.ID, Status: order.Status, Reason: err.Error()}, err
		}
		rec.RealizedPnL = realized
	}

	// resting protective orders are not trades until they trigger
	if sig != nil || order.Status == model.OrderStatusFilled {
		e.record(rec)
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"type":     order.OrderType,
		"status":   order.Status,
		"strategy": order.Strategy,
	}).Info("order submitted")

	return Result{Success: true, OrderID: order.ID, Status: order.Status, Record: &rec}, nil
}

// applyFill updates the ledger, the daily P&L and storage for a filled order.
func (e *Engine) applyFill(ctx context.Context, order model.Order) (float64, error) {
	out, err := e.ledger.ApplyFill(order)
	if err != nil {
		return 0, fmt.Errorf("apply fill: %w", err)
	}
	if out.RealizedPnL != 0 {
		e.risk.RecordPnL(decimal.NewFromFloat(out.RealizedPnL))
		e.persistRiskState(ctx)
	}
	if out.Closed {
		e.cancelled(ctx, e.broker.CancelResting(order.Symbol, model.OrderTypeStopLoss, model.OrderTypeTakeProfit))
		e.persistDelete(ctx, order.Symbol)
	} else if out.Position != nil {
		e.persistPosition(ctx, *out.Position)
	}
	return out.RealizedPnL, nil
}

// record keeps one history entry per order.
func (e *Engine) record(rec Record) {
	id := rec.Order.ID
	if i, ok := e.open[id]; ok {
		if rec.Signal == nil {
			rec.Signal = e.history[i].Signal
		}
		e.history[i] = rec
		if rec.Order.Status.Terminal() {
			delete(e.open, id)
		}
		return
	}
	if !rec.Order.Status.Terminal() {
		e.open[id] = len(e.history)
	}
	e.history = append(e.history, rec)
}

// cancelled persists orders the broker cancelled and settles their history.
func (e *Engine) cancelled(ctx context.Context, orders []model.Order) {
	for i := range orders {
		o := orders[i]
		e.persistOrder(ctx, &o)
		e.notify(o)
		if _, ok := e.open[o.ID]; ok {
			e.record(Record{
				Timestamp: e.now(),
				Order:     o,
				Result:    broker.SubmitResult{OrderID: o.ID, Status: o.Status},
				Strategy:  o.Strategy,
			})
		}
	}
}

// SetStopLoss places a resting stop for the full open quantity, replacing any
// earlier stop for the symbol.
func (e *Engine) SetStopLoss(ctx context.Context, symbol string, stopPrice float64) (Result, error) {
	return e.protect(ctx, symbol, model.OrderTypeStopLoss, stopPrice)
}

// SetTakeProfit places a resting take-profit for the full open quantity,
// replacing any earlier take-profit for the symbol.
func (e *Engine) SetTakeProfit(ctx context.Context, symbol string, targetPrice float64) (Result, error) {
	return e.protect(ctx, symbol, model.OrderTypeTakeProfit, targetPrice)
}

func (e *Engine) protect(ctx context.Context, symbol string, typ model.OrderType, level float64) (Result, error) {
	if level <= 0 {
		err := &ValidationError{Field: "price", Reason: "must be positive"}
		return Result{Reason: err.Error()}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.ledger.Get(symbol)
	if !ok {
		return Result{Reason: "Position not found"}, fmt.Errorf("%s: %w", symbol, ErrPositionNotFound)
	}
	strategy := StrategyStopLoss
	if typ == model.OrderTypeTakeProfit {
		strategy = StrategyTakeProfit
	}
	e.cancelled(ctx, e.broker.CancelResting(symbol, typ))
	order := e.buildOrder(symbol, pos.CloseSide(), typ, pos.Quantity, &level, strategy)
	return e.submit(ctx, order, nil)
}

// ClosePosition flattens the symbol with a market order.
func (e *Engine) ClosePosition(ctx context.Context, symbol string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.ledger.Get(symbol)
	if !ok {
		return Result{Reason: "Position not found"}, fmt.Errorf("%s: %w", symbol, ErrPositionNotFound)
	}
	var ref *float64
	if q, ok := e.broker.Quote(symbol); ok {
		ref = &q
	} else if pos.CurrentPrice > 0 {
		p := pos.CurrentPrice
		ref = &p
	}
	order := e.buildOrder(symbol, pos.CloseSide(), model.OrderTypeMarket, pos.Quantity, ref, StrategyManualClose)
	return e.submit(ctx, order, nil)
}

// MarkPrice revalues the position and fills any resting orders the price crossed.
func (e *Engine) MarkPrice(ctx context.Context, symbol string, price float64) ([]model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pos, ok := e.ledger.MarkPrice(symbol, price); ok {
		e.persistPosition(ctx, pos)
	}

	filled, cancelled := e.broker.MarkPrice(symbol, price)
	e.cancelled(ctx, cancelled)
	for i := range filled {
		o := filled[i]
		e.persistOrder(ctx, &o)
		e.notify(o)
		realized, err := e.applyFill(ctx, o)
		if err != nil {
			return filled, err
		}
		e.record(Record{
			Timestamp:   e.now(),
			Order:       o,
			Result:      broker.SubmitResult{OrderID: o.ID, Status: o.Status},
			Strategy:    o.Strategy,
			RealizedPnL: realized,
		})
		e.logger.WithFields(logrus.Fields{
			"order_id": o.ID,
			"symbol":   o.Symbol,
			"type":     o.OrderType,
			"price":    o.FilledPrice,
		}).Info("resting order triggered")
	}
	return filled, nil
}

// Position returns the open position for symbol, if any.
func (e *Engine) Position(symbol string) (model.Position, bool) {
	return e.ledger.Get(symbol)
}

// History returns a copy of the execution history.
func (e *Engine) History() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Record(nil), e.history...)
}

type Metrics struct {
	TotalTrades       int            `json:"total_trades"`
	SuccessfulTrades  int            `json:"successful_trades"`
	SuccessRate       float64        `json:"success_rate"`
	StrategyBreakdown map[string]int `json:"strategy_breakdown"`
	DailyPnL          float64        `json:"daily_pnl"`
	RealizedPnL       float64        `json:"realized_pnl"`
}

func (e *Engine) PerformanceMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := Metrics{StrategyBreakdown: map[string]int{}}
	for _, r := range e.history {
		m.TotalTrades++
		if r.Result.Status == model.OrderStatusFilled {
			m.SuccessfulTrades++
		}
		m.StrategyBreakdown[r.Strategy]++
	}
	if m.TotalTrades > 0 {
		m.SuccessRate = float64(m.SuccessfulTrades) / float64(m.TotalTrades)
	}
	m.DailyPnL = e.risk.DailyPnL().InexactFloat64()
	m.RealizedPnL = e.ledger.RealizedTotal()
	return m
}

type PortfolioSummary struct {
	Account               broker.AccountInfo `json:"account_info"`
	Positions             []model.Position   `json:"positions"`
	TotalPositions        int                `json:"total_positions"`
	TotalUnrealizedPnL    float64            `json:"total_unrealized_pnl"`
	TotalPositionValue    float64            `json:"total_position_value"`
	ExecutionHistoryCount int                `json:"execution_history_count"`
	ActiveStrategies      []string           `json:"active_strategies"`
}

func (e *Engine) PortfolioSummary(ctx context.Context) (PortfolioSummary, error) {
	account, err := e.broker.AccountInfo(ctx)
	if err != nil {
		return PortfolioSummary{}, fmt.Errorf("account info: %w", err)
	}
	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return PortfolioSummary{}, fmt.Errorf("positions: %w", err)
	}

	s := PortfolioSummary{
		Account:        account,
		Positions:      positions,
		TotalPositions: len(positions),
	}
	for _, p := range positions {
		s.TotalUnrealizedPnL += p.UnrealizedPnL
		s.TotalPositionValue += p.MarketValue()
	}

	e.mu.Lock()
	s.ExecutionHistoryCount = len(e.history)
	s.ActiveStrategies = e.activeStrategies()
	e.mu.Unlock()
	return s, nil
}

// AddStrategy registers a named strategy configuration.
func (e *Engine) AddStrategy(name string, config map[string]any) {
	e.mu.Lock()
	e.strategies[name] = config
	e.mu.Unlock()
	e.logger.WithField("strategy", name).Info("strategy added")
}

func (e *Engine) ActivateStrategy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.strategies[name]; !ok {
		return fmt.Errorf("strategy %q not found", name)
	}
	e.active[name] = true
	return nil
}

func (e *Engine) DeactivateStrategy(name string) {
	e.mu.Lock()
	delete(e.active, name)
	e.mu.Unlock()
}

func (e *Engine) activeStrategies() []string {
	out := make([]string, 0, len(e.active))
	for name := range e.active {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Restore reloads open positions and the daily risk state from the store.
// Any inconsistency is returned so startup can abort.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	positions, err := e.store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	if err := e.ledger.Restore(positions); err != nil {
		return err
	}
	// restored positions were paid for before the restart
	for _, p := range positions {
		cost := p.Quantity * p.AverageEntryPrice
		switch p.Side {
		case model.PositionSideLong:
			e.broker.AdjustCash(-cost)
		case model.PositionSideShort:
			e.broker.AdjustCash(cost)
		}
	}

	state, found, err := e.store.LoadRiskState(ctx)
	if err != nil {
		return fmt.Errorf("load risk state: %w", err)
	}
	if found {
		if err := e.risk.Restore(state); err != nil {
			return err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"positions":  len(positions),
		"risk_state": found,
	}).Info("execution state restored")
	return nil
}

func (e *Engine) persistOrder(ctx context.Context, o *model.Order) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveOrder(ctx, o); err != nil {
		e.logger.WithError(err).WithField("order_id", o.ID).Error("failed to persist order")
	}
}

func (e *Engine) persistPosition(ctx context.Context, p model.Position) {
	if e.store == nil {
		return
	}
	if err := e.store.SavePosition(ctx, p); err != nil {
		e.logger.WithError(err).WithField("symbol", p.Symbol).Error("failed to persist position")
	}
}

func (e *Engine) persistDelete(ctx context.Context, symbol string) {
	if e.store == nil {
		return
	}
	if err := e.store.DeletePosition(ctx, symbol); err != nil {
		e.logger.WithError(err).WithField("symbol", symbol).Error("failed to delete position")
	}
}

func (e *Engine) persistRiskState(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRiskState(ctx, e.risk.State()); err != nil {
		e.logger.WithError(err).Error("failed to persist risk state")
	}
}
