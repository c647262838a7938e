package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"wealthflow/src/model"
)

// FillOutcome is the effect of one fill on the ledger. Position is nil when the
// fill closed the position.
type FillOutcome struct {
	Position    *model.Position
	RealizedPnL float64
	Closed      bool
}

// Ledger owns the open positions, at most one per symbol.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*model.Position
	realized  float64
	now       func() time.Time
}

func New() *Ledger {
	return &Ledger{
		positions: map[string]*model.Position{},
		now:       time.Now,
	}
}

func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// ApplyFill updates the position for a filled order.
//
// A new symbol opens long on buy and short on sell. Fills on the same side grow
// the position at the quantity weighted average entry. Fills on the opposite side
// reduce it and realize P&L; anything beyond the held quantity is dropped and the
// position is removed, it never flips.
func (l *Ledger) ApplyFill(o model.Order) (FillOutcome, error) {
	if o.Status != model.OrderStatusFilled {
		return FillOutcome{}, fmt.Errorf("order %s is %s, not filled", o.ID, o.Status)
	}
	if o.FilledQuantity <= 0 {
		return FillOutcome{}, fmt.Errorf("order %s has no filled quantity", o.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	qty, price := o.FilledQuantity, o.FilledPrice

	pos, ok := l.positions[o.Symbol]
	if !ok {
		side := model.PositionSideLong
		if o.Side == model.OrderSideSell {
			side = model.PositionSideShort
		}
		pos = &model.Position{
			Symbol:            o.Symbol,
			Side:              side,
			Quantity:          qty,
			AverageEntryPrice: price,
			CurrentPrice:      price,
			OpenedAt:          now,
			UpdatedAt:         now,
		}
		l.positions[o.Symbol] = pos
		return FillOutcome{Position: copyOf(pos)}, nil
	}

	if sameDirection(pos.Side, o.Side) {
		total := pos.Quantity + qty
		pos.AverageEntryPrice = (pos.Quantity*pos.AverageEntryPrice + qty*price) / total
		pos.Quantity = total
		pos.CurrentPrice = price
		pos.UpdatedAt = now
		revalue(pos)
		return FillOutcome{Position: copyOf(pos)}, nil
	}

	closing := qty
	if closing > pos.Quantity {
		closing = pos.Quantity
	}
	realized := pnl(pos.Side, pos.AverageEntryPrice, price, closing)
	l.realized += realized

	if pos.Quantity-closing <= 0 {
		delete(l.positions, o.Symbol)
		return FillOutcome{RealizedPnL: realized, Closed: true}, nil
	}

	pos.Quantity -= closing
	pos.RealizedPnL += realized
	pos.CurrentPrice = price
	pos.UpdatedAt = now
	revalue(pos)
	return FillOutcome{Position: copyOf(pos), RealizedPnL: realized}, nil
}

// MarkPrice revalues the symbol's position. It reports false when there is none.
func (l *Ledger) MarkPrice(symbol string, price float64) (model.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	pos.CurrentPrice = price
	pos.UpdatedAt = l.now()
	revalue(pos)
	return *pos, true
}

func (l *Ledger) Get(symbol string) (model.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *pos, true
}

// All returns copies of every open position sorted by symbol.
func (l *Ledger) All() []model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Exposure is the gross market value of all open positions.
func (l *Ledger) Exposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, p := range l.positions {
		total += p.MarketValue()
	}
	return total
}

func (l *Ledger) RealizedTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realized
}

// Restore replaces the ledger content with persisted positions.
func (l *Ledger) Restore(positions []model.Position) error {
	next := make(map[string]*model.Position, len(positions))
	for i := range positions {
		p := positions[i]
		if p.Quantity <= 0 {
			return fmt.Errorf("restore position %s: non-positive quantity %v", p.Symbol, p.Quantity)
		}
		if p.Side != model.PositionSideLong && p.Side != model.PositionSideShort {
			return fmt.Errorf("restore position %s: unknown side %q", p.Symbol, p.Side)
		}
		if _, dup := next[p.Symbol]; dup {
			return fmt.Errorf("restore position %s: duplicate symbol", p.Symbol)
		}
		next[p.Symbol] = &p
	}

	l.mu.Lock()
	l.positions = next
	l.mu.Unlock()
	return nil
}

func sameDirection(side model.PositionSide, orderSide model.OrderSide) bool {
	switch side {
	case model.PositionSideLong:
		return orderSide == model.OrderSideBuy
	case model.PositionSideShort:
		return orderSide == model.OrderSideSell
	}
	return false
}

func pnl(side model.PositionSide, entry, price, qty float64) float64 {
	switch side {
	case model.PositionSideLong:
		return (price - entry) * qty
	case model.PositionSideShort:
		return (entry - price) * qty
	}
	return 0
}

func revalue(p *model.Position) {
	p.UnrealizedPnL = pnl(p.Side, p.AverageEntryPrice, p.CurrentPrice, p.Quantity)
}

func copyOf(p *model.Position) *model.Position {
	c := *p
	return &c
}
