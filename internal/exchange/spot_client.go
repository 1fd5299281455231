package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpotClient - real Binance Spot gateway
type SpotClient struct {
	client *binance.Client
}

func NewSpotClient(apiKey, secretKey string, testnet bool) *SpotClient {
	if testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(apiKey, secretKey)
	return &SpotClient{client: client}
}

func (s *SpotClient) FetchOpenOrders(ctx context.Context) ([]Order, error) {
	raw, err := s.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}

	orders := make([]Order, 0, len(raw))
	for _, o := range raw {
		orig := parseFloat(o.OrigQuantity)
		executed := parseFloat(o.ExecutedQuantity)
		orders = append(orders, Order{
			ID:        strconv.FormatInt(o.OrderID, 10),
			Side:      strings.ToLower(string(o.Side)),
			Remaining: orig - executed,
			Symbol:    o.Symbol,
			Price:     parseFloat(o.Price),
			Amount:    orig,
		})
	}
	return orders, nil
}

func (s *SpotClient) FetchFreeBalance(ctx context.Context) ([]Balance, error) {
	account, err := s.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}

	var balances []Balance
	for _, b := range account.Balances {
		free := parseFloat(b.Free)
		if free == 0 {
			continue
		}
		balances = append(balances, Balance{Asset: b.Asset, Amount: free})
	}
	return balances, nil
}

func (s *SpotClient) CancelOrder(ctx context.Context, order Order) error {
	id, err := strconv.ParseInt(order.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", order.ID, err)
	}

	_, err = s.client.NewCancelOrderService().
		Symbol(apiSymbol(order.Symbol)).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", order.ID, err)
	}
	return nil
}

func (s *SpotClient) SubmitOrder(ctx context.Context, symbol, side string, amount, price float64) (*Receipt, error) {
	var sideType binance.SideType
	switch side {
	case SideBuy:
		sideType = binance.SideTypeBuy
	case SideSell:
		sideType = binance.SideTypeSell
	default:
		return nil, fmt.Errorf("invalid side: %s", side)
	}

	clientID := uuid.NewString()
	result, err := s.client.NewCreateOrderService().
		Symbol(apiSymbol(symbol)).
		Side(sideType).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(decimal.NewFromFloat(amount).String()).
		Price(decimal.NewFromFloat(price).String()).
		NewClientOrderID(clientID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit %s order for %s: %w", side, symbol, err)
	}

	return &Receipt{
		OrderID:       strconv.FormatInt(result.OrderID, 10),
		ClientOrderID: result.ClientOrderID,
		Symbol:        symbol,
		Side:          side,
		Amount:        amount,
		Price:         price,
	}, nil
}

func (s *SpotClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.client.NewListPricesService().Symbol(apiSymbol(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	return parseFloat(prices[0].Price), nil
}

// apiSymbol converts "BTC/USD" pair notation to the concatenated form
// the exchange API expects.
func apiSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
