package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is serialised as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,11}$`)

// NormalizeSymbol trims and upper-cases a ticker and checks its shape.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("symbol is required: %w", ErrInvalidArgument)
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("invalid symbol %q: %w", symbol, ErrInvalidArgument)
	}
	return s, nil
}
