package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidArgument is returned when trade parameters fail validation.
var ErrInvalidArgument = errors.New("invalid trade argument")

// TradeKind distinguishes the two trade variants.
type TradeKind int

const (
	Long TradeKind = iota
	Short
)

func (k TradeKind) String() string {
	if k == Short {
		return "Short"
	}
	return "Long"
}

// DefaultCurrency is the quote currency used when none is given.
const DefaultCurrency = "USD"

// DefaultPercentChange is the target move used when the operator does
// not pick one, overridable via DEFAULT_PERCENT_CHANGE.
const DefaultPercentChange = 0.5

// Trade holds the parameters of a single long or short trade.
// All fields are fixed at construction, including the exit price.
type Trade struct {
	Kind          TradeKind
	StartPrice    float64
	Symbol        string
	Amount        float64
	Currency      string
	PercentChange float64
	ExitPrice     float64
}

// New validates the parameters and builds an immutable Trade.
// The symbol is uppercased and the exit price computed from the kind:
// long exits above the entry, short exits below it.
func New(kind TradeKind, startPrice float64, symbol string, amount, percentChange float64, currency string) (*Trade, error) {
	if startPrice <= 0 {
		return nil, fmt.Errorf("%w: start price must be positive, got %v", ErrInvalidArgument, startPrice)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidArgument, amount)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol must not be empty", ErrInvalidArgument)
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	t := &Trade{
		Kind:          kind,
		StartPrice:    startPrice,
		Symbol:        symbol,
		Amount:        amount,
		Currency:      currency,
		PercentChange: percentChange,
	}

	if kind == Short {
		t.ExitPrice = startPrice * (1 - percentChange/100)
	} else {
		t.ExitPrice = startPrice * (1 + percentChange/100)
	}
	return t, nil
}

// NewLong builds a long trade with the default quote currency.
func NewLong(startPrice float64, symbol string, amount, percentChange float64) (*Trade, error) {
	return New(Long, startPrice, symbol, amount, percentChange, DefaultCurrency)
}

// NewShort builds a short trade with the default quote currency.
func NewShort(startPrice float64, symbol string, amount, percentChange float64) (*Trade, error) {
	return New(Short, startPrice, symbol, amount, percentChange, DefaultCurrency)
}

// ExchangeSymbol returns the trading pair, e.g. "BTC/USD".
func (t *Trade) ExchangeSymbol() string {
	return t.Symbol + "/" + t.Currency
}

func (t *Trade) String() string {
	return fmt.Sprintf("%s order for %s %s with enter price: %s, exit_price: %s",
		t.Kind, formatAmount(t.Amount), t.ExchangeSymbol(),
		FormatPrice(t.StartPrice), FormatPrice(t.ExitPrice))
}

// FormatPrice renders a price with 5 significant digits, keeping a
// trailing ".0" on whole values so prices always read as floats.
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'g', 5, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
