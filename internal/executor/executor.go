package executor

import (
	"context"
	"fmt"

	"fasttrade/internal/exchange"
	"fasttrade/internal/models"
)

// Receipt reports the two orders a trade submission produced.
type Receipt struct {
	Entry *exchange.Receipt
	Exit  *exchange.Receipt
}

// TradeExecutor turns a Trade into exchange orders.
type TradeExecutor struct {
	gateway exchange.Gateway
}

func New(gateway exchange.Gateway) *TradeExecutor {
	return &TradeExecutor{gateway: gateway}
}

// Execute submits the entry leg at the trade's start price and the exit
// leg at its computed exit price. A long buys in and sells out, a short
// sells in and buys back. Symbol, amount and prices are passed through
// exactly as carried by the trade.
func (e *TradeExecutor) Execute(ctx context.Context, trade *models.Trade) (*Receipt, error) {
	entrySide, exitSide := exchange.SideBuy, exchange.SideSell
	if trade.Kind == models.Short {
		entrySide, exitSide = exchange.SideSell, exchange.SideBuy
	}

	symbol := trade.ExchangeSymbol()

	entry, err := e.gateway.SubmitOrder(ctx, symbol, entrySide, trade.Amount, trade.StartPrice)
	if err != nil {
		return nil, fmt.Errorf("entry order: %w", err)
	}

	exit, err := e.gateway.SubmitOrder(ctx, symbol, exitSide, trade.Amount, trade.ExitPrice)
	if err != nil {
		return nil, fmt.Errorf("exit order: %w", err)
	}

	return &Receipt{Entry: entry, Exit: exit}, nil
}
