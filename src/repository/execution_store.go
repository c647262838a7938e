package repository

import (
	"context"

	"wealthflow/src/execution"
	"wealthflow/src/model"
	"wealthflow/src/risk"
)

var _ execution.Store = (*ExecutionStore)(nil)

// ExecutionStore backs the execution engine with the order, position and
// risk state tables.
type ExecutionStore struct {
	Orders    *OrderRepository
	Positions *PositionRepository
	Risk      *RiskStateRepository
}

func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		Orders:    NewOrderRepository(),
		Positions: NewPositionRepository(),
		Risk:      NewRiskStateRepository(),
	}
}

func (s *ExecutionStore) SaveOrder(ctx context.Context, o *model.Order) error {
	return s.Orders.Save(ctx, o)
}

func (s *ExecutionStore) SavePosition(ctx context.Context, p model.Position) error {
	return s.Positions.Upsert(ctx, p)
}

func (s *ExecutionStore) DeletePosition(ctx context.Context, symbol string) error {
	return s.Positions.Delete(ctx, symbol)
}

func (s *ExecutionStore) LoadPositions(ctx context.Context) ([]model.Position, error) {
	return s.Positions.FindAll(ctx)
}

func (s *ExecutionStore) SaveRiskState(ctx context.Context, st risk.State) error {
	return s.Risk.Save(ctx, st)
}

func (s *ExecutionStore) LoadRiskState(ctx context.Context) (risk.State, bool, error) {
	return s.Risk.Load(ctx)
}
