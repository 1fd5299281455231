package exchange

import "context"

// Order is an open order as reported by the exchange.
type Order struct {
	ID        string
	Side      string
	Remaining float64
	Symbol    string
	Price     float64
	Amount    float64
}

// Balance is one asset's free balance. Balances are returned as an
// ordered slice so display output follows the account's asset order.
type Balance struct {
	Asset  string
	Amount float64
}

// Receipt identifies an order accepted by the exchange.
type Receipt struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	Amount        float64
	Price         float64
}

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Gateway is the narrow exchange surface the bot needs.
type Gateway interface {
	FetchOpenOrders(ctx context.Context) ([]Order, error)
	FetchFreeBalance(ctx context.Context) ([]Balance, error)
	CancelOrder(ctx context.Context, order Order) error
	SubmitOrder(ctx context.Context, symbol, side string, amount, price float64) (*Receipt, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
