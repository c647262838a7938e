package execution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"wealthflow/src/model"
)

// Signal is a request to trade, from a strategy, the API or the monitor.
type Signal struct {
	Symbol    string          `json:"symbol" validate:"required,max=50"`
	Action    model.OrderSide `json:"action" validate:"required,oneof=buy sell"`
	Quantity  float64         `json:"quantity" validate:"gt=0"`
	Price     *float64        `json:"price,omitempty" validate:"omitempty,gt=0"`
	OrderType model.OrderType `json:"order_type,omitempty" validate:"omitempty,oneof=market limit"`
	Strategy  string          `json:"strategy,omitempty" validate:"max=100"`
}

// ValidationError reports a malformed signal. Nothing is mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid signal: " + e.Reason
	}
	return fmt.Sprintf("invalid signal: %s %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// normalize lower-cases enum-like fields and fills defaults before validation.
func (s Signal) normalize(defaultStrategy string) Signal {
	s.Symbol = strings.TrimSpace(s.Symbol)
	s.Action = model.OrderSide(strings.ToLower(string(s.Action)))
	s.OrderType = model.OrderType(strings.ToLower(string(s.OrderType)))
	if s.OrderType == "" {
		s.OrderType = model.OrderTypeMarket
	}
	if s.Strategy == "" {
		s.Strategy = defaultStrategy
	}
	return s
}

func (s Signal) validate() error {
	err := validate.Struct(s)
	if err == nil {
		if s.OrderType == model.OrderTypeLimit && s.Price == nil {
			return &ValidationError{Field: "price", Reason: "is required for limit orders"}
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: strings.ToLower(fe.Field()), Reason: "failed " + reason}
	}
	return &ValidationError{Reason: err.Error()}
}
