package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wealthflow/src/ledger"
	"wealthflow/src/model"
)

var ErrNoPrice = errors.New("no price available")

type AccountInfo struct {
	Balance        float64 `json:"balance"`
	Equity         float64 `json:"equity"`
	BuyingPower    float64 `json:"buying_power"`
	PositionsCount int     `json:"positions_count"`
}

type SubmitResult struct {
	OrderID string            `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
}

// Paper is a simulated broker. Market orders fill synchronously at the order's
// reference price or the last quote. Limit, stop-loss and take-profit orders
// rest until a marked price crosses their level. Fills on the closing side of
// a position never exceed the quantity the ledger holds.
type Paper struct {
	mu      sync.Mutex
	cash    float64
	orders  map[string]*model.Order
	resting []string
	quotes  map[string]float64
	ledger  *ledger.Ledger
	now     func() time.Time
	logger  *logrus.Entry
}

func NewPaper(initialBalance float64, l *ledger.Ledger, logger *logrus.Entry) *Paper {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Paper{
		cash:   initialBalance,
		orders: map[string]*model.Order{},
		quotes: map[string]float64{},
		ledger: l,
		now:    time.Now,
		logger: logger.WithField("component", "paper_broker"),
	}
}

func (p *Paper) WithClock(now func() time.Time) *Paper {
	p.now = now
	return p
}

// Submit accepts the order and mutates it in place with its fill, if any.
func (p *Paper) Submit(ctx context.Context, o *model.Order) (SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, dup := p.orders[o.ID]; dup {
		return SubmitResult{}, fmt.Errorf("order %s already submitted", o.ID)
	}

	switch o.OrderType {
	case model.OrderTypeMarket:
		price, ok := p.referencePrice(o)
		if !ok {
			o.Status = model.OrderStatusRejected
			p.orders[o.ID] = o
			return SubmitResult{OrderID: o.ID, Status: o.Status}, fmt.Errorf("order %s %s: %w", o.ID, o.Symbol, ErrNoPrice)
		}
		p.fill(o, price, fillQuantity(o, p.held(o.Symbol)))
	case model.OrderTypeLimit, model.OrderTypeStopLoss, model.OrderTypeTakeProfit:
		if o.Price == nil {
			o.Status = model.OrderStatusRejected
			p.orders[o.ID] = o
			return SubmitResult{OrderID: o.ID, Status: o.Status}, fmt.Errorf("order %s: %s requires a price", o.ID, o.OrderType)
		}
		o.Status = model.OrderStatusPending
		p.resting = append(p.resting, o.ID)
	default:
		return SubmitResult{}, fmt.Errorf("order %s: unsupported order type %q", o.ID, o.OrderType)
	}

	p.orders[o.ID] = o
	p.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"symbol":   o.Symbol,
		"side":     o.Side,
		"type":     o.OrderType,
		"status":   o.Status,
	}).Debug("order accepted")

	return SubmitResult{OrderID: o.ID, Status: o.Status}, nil
}

func (p *Paper) referencePrice(o *model.Order) (float64, bool) {
	if o.Price != nil && *o.Price > 0 {
		return *o.Price, true
	}
	q, ok := p.quotes[o.Symbol]
	return q, ok && q > 0
}

// held returns the signed quantity open for symbol, negative when short.
func (p *Paper) held(symbol string) float64 {
	pos, ok := p.ledger.Get(symbol)
	if !ok {
		return 0
	}
	if pos.Side == model.PositionSideShort {
		return -pos.Quantity
	}
	return pos.Quantity
}

// fillQuantity sizes o against the signed held quantity. A protective order
// with nothing left to close sizes to zero.
func fillQuantity(o *model.Order, held float64) float64 {
	closing := (o.Side == model.OrderSideSell && held > 0) || (o.Side == model.OrderSideBuy && held < 0)
	if !closing {
		if o.OrderType.Protective() {
			return 0
		}
		return o.Quantity
	}
	return math.Min(o.Quantity, math.Abs(held))
}

func signedQuantity(side model.OrderSide, qty float64) float64 {
	if side == model.OrderSideSell {
		return -qty
	}
	return qty
}

// fill must be called with the lock held.
func (p *Paper) fill(o *model.Order, price, qty float64) {
	now := p.now()
	o.Status = model.OrderStatusFilled
	o.FilledQuantity = qty
	o.FilledPrice = price
	o.FilledAt = &now
	p.quotes[o.Symbol] = price

	notional := qty * price
	switch o.Side {
	case model.OrderSideBuy:
		p.cash -= notional
	case model.OrderSideSell:
		p.cash += notional
	}
}

// Cancel cancels a resting order.
func (p *Paper) Cancel(orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("order %s is already %s", orderID, o.Status)
	}
	o.Status = model.OrderStatusCancelled
	p.dropResting(orderID)
	return nil
}

// CancelResting cancels the resting orders for symbol and returns them. When
// types are given only orders of those types are cancelled.
func (p *Paper) CancelResting(symbol string, types ...model.OrderType) []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cancelled []model.Order
	kept := p.resting[:0]
	for _, id := range p.resting {
		o := p.orders[id]
		if o.Symbol != symbol || !matchesType(o.OrderType, types) {
			kept = append(kept, id)
			continue
		}
		o.Status = model.OrderStatusCancelled
		cancelled = append(cancelled, *o)
	}
	p.resting = kept
	return cancelled
}

func matchesType(t model.OrderType, types []model.OrderType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (p *Paper) dropResting(orderID string) {
	for i, id := range p.resting {
		if id == orderID {
			p.resting = append(p.resting[:i], p.resting[i+1:]...)
			return
		}
	}
}

// MarkPrice records a quote and fills resting orders whose level was crossed,
// in submission order. Each fill is sized against what the earlier fills of the
// same mark left open; triggered protective orders with nothing to close are
// cancelled instead.
func (p *Paper) MarkPrice(symbol string, price float64) (filled, cancelled []model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.quotes[symbol] = price

	held := p.held(symbol)
	kept := p.resting[:0]
	for _, id := range p.resting {
		o := p.orders[id]
		if o.Symbol != symbol || !triggered(o, price) {
			kept = append(kept, id)
			continue
		}
		qty := fillQuantity(o, held)
		if qty <= 0 {
			o.Status = model.OrderStatusCancelled
			cancelled = append(cancelled, *o)
			continue
		}
		fillAt := price
		if o.OrderType == model.OrderTypeLimit {
			fillAt = *o.Price
		}
		p.fill(o, fillAt, qty)
		held += signedQuantity(o.Side, qty)
		filled = append(filled, *o)
	}
	p.resting = kept
	return filled, cancelled
}

func triggered(o *model.Order, price float64) bool {
	level := *o.Price
	buy := o.Side == model.OrderSideBuy
	switch o.OrderType {
	case model.OrderTypeLimit:
		if buy {
			return price <= level
		}
		return price >= level
	case model.OrderTypeStopLoss:
		if buy {
			return price >= level
		}
		return price <= level
	case model.OrderTypeTakeProfit:
		if buy {
			return price <= level
		}
		return price >= level
	case model.OrderTypeMarket:
		return true
	}
	return false
}

func (p *Paper) Quote(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.quotes[symbol]
	return q, ok
}

// AccountInfo reports cash as both balance and buying power. Equity adds the
// signed market value of open positions.
func (p *Paper) AccountInfo(ctx context.Context) (AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return AccountInfo{}, err
	}
	positions := p.ledger.All()

	p.mu.Lock()
	cash := p.cash
	p.mu.Unlock()

	equity := cash
	for _, pos := range positions {
		switch pos.Side {
		case model.PositionSideLong:
			equity += pos.MarketValue()
		case model.PositionSideShort:
			equity -= pos.MarketValue()
		}
	}
	return AccountInfo{
		Balance:        cash,
		Equity:         equity,
		BuyingPower:    cash,
		PositionsCount: len(positions),
	}, nil
}

func (p *Paper) Positions(ctx context.Context) ([]model.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.ledger.All(), nil
}

// Resting returns the orders waiting for a trigger, oldest first.
func (p *Paper) Resting() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Order, 0, len(p.resting))
	for _, id := range p.resting {
		out = append(out, *p.orders[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AdjustCash moves the cash balance, used when positions are restored from storage.
func (p *Paper) AdjustCash(delta float64) {
	p.mu.Lock()
	p.cash += delta
	p.mu.Unlock()
}
