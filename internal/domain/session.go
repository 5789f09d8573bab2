package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Session holds the parameters fixed for the lifetime of the process.
type Session struct {
	Symbol string
	// Margin is the trailing gap as a fraction of the current price.
	Margin decimal.Decimal
}

func NewSession(symbol string, margin float64) (Session, error) {
	s := Session{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Margin: decimal.NewFromFloat(margin),
	}
	return s, s.Validate()
}

func (s Session) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !s.Margin.IsPositive() || s.Margin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("margin must be in (0, 1), got %s", s.Margin)
	}
	return nil
}
