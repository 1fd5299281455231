package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fasttrade/internal/exchange"
	"fasttrade/internal/models"
)

// fakeGateway serves canned orders/balances and records cancellations.
type fakeGateway struct {
	orders    []exchange.Order
	balances  []exchange.Balance
	fetchErr  error
	cancelErr error
	cancelled []string
}

func (f *fakeGateway) FetchOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	return f.orders, f.fetchErr
}

func (f *fakeGateway) FetchFreeBalance(ctx context.Context) ([]exchange.Balance, error) {
	return f.balances, f.fetchErr
}

func (f *fakeGateway) CancelOrder(ctx context.Context, order exchange.Order) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, order.ID)
	return nil
}

func (f *fakeGateway) SubmitOrder(ctx context.Context, symbol, side string, amount, price float64) (*exchange.Receipt, error) {
	return &exchange.Receipt{OrderID: "1", Symbol: symbol, Side: side, Amount: amount, Price: price}, nil
}

func (f *fakeGateway) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}

// newMachine builds a machine with the stock currency and percent default.
func newMachine(gw exchange.Gateway) *Machine {
	return NewMachine(gw, "USD", 0.5)
}

func threeOrders() []exchange.Order {
	return []exchange.Order{
		{ID: "100", Side: "buy", Remaining: 1, Symbol: "BTCUSDT", Price: 9000, Amount: 1},
		{ID: "101", Side: "sell", Remaining: 2, Symbol: "ETHUSDT", Price: 3000, Amount: 2},
		{ID: "102", Side: "buy", Remaining: 3, Symbol: "XRPUSDT", Price: 0.5, Amount: 3},
	}
}

func TestLongTradeFlow(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	reply := m.Start()
	assert.Equal(t, "Trade options:", reply.Text)
	assert.Equal(t, []Selection{SelectShort, SelectLong, SelectOpenOrders, SelectFreeBalance}, reply.Options)

	reply, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)
	assert.Equal(t, "Enter coin name for Long trade", reply.Text)

	reply, err = m.Input(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "What amount of BTC", reply.Text)

	reply, err = m.Input(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "What % change for 2 BTC (default 0.5)", reply.Text)

	reply, err = m.Input(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "What price for 1 unit of BTC", reply.Text)

	reply, err = m.Input(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Confirm the trade: 'Long order for 2 BTC/USD with enter price: 100.0, exit_price: 110.0'", reply.Text)
	assert.Equal(t, []Selection{SelectConfirm, SelectCancel}, reply.Options)

	reply, err = m.Select(ctx, SelectConfirm)
	require.NoError(t, err)
	assert.True(t, reply.End)
	require.NotNil(t, reply.Trade)
	assert.Equal(t, models.Long, reply.Trade.Kind)
	assert.Equal(t, "BTC/USD", reply.Trade.ExchangeSymbol())
	assert.InDelta(t, 110.0, reply.Trade.ExitPrice, 1e-9)
	assert.Equal(t, StateIdle, m.State())
}

func TestCancelAtConfirmDiscardsTrade(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	mustAdvance(t, m, ctx, SelectShort, "eth", "1", "20", "50")

	reply, err := m.Select(ctx, SelectCancel)
	require.NoError(t, err)
	assert.True(t, reply.End)
	assert.Nil(t, reply.Trade)
	assert.Equal(t, StateIdle, m.State())
}

func TestNonNumericInputRepromptsSameState(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)
	_, err = m.Input(ctx, "btc")
	require.NoError(t, err)

	reply, err := m.Input(ctx, "not-a-number")
	assert.True(t, errors.Is(err, ErrBadNumber))
	assert.Equal(t, StateAmount, m.State())
	assert.Contains(t, reply.Text, "What amount of BTC")

	// The same field accepts a valid value afterwards.
	reply, err = m.Input(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "What % change for 2 BTC (default 0.5)", reply.Text)
}

func TestNonPositiveAmountReprompts(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)
	_, err = m.Input(ctx, "btc")
	require.NoError(t, err)

	_, err = m.Input(ctx, "-3")
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	assert.Equal(t, StateAmount, m.State())
}

func TestStartMidFlowDiscardsSession(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	// Abandon a Long flow with a coin already collected.
	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)
	_, err = m.Input(ctx, "btc")
	require.NoError(t, err)

	// A fresh Short flow must not inherit anything from it.
	m.Start()
	mustAdvance(t, m, ctx, SelectShort, "eth", "1", "20", "50")

	reply, err := m.Select(ctx, SelectConfirm)
	require.NoError(t, err)
	require.NotNil(t, reply.Trade)
	assert.Equal(t, models.Short, reply.Trade.Kind)
	assert.Equal(t, "ETH/USD", reply.Trade.ExchangeSymbol())
	assert.InDelta(t, 40.0, reply.Trade.ExitPrice, 1e-9)
}

func TestOpenOrdersEmptyShortCircuits(t *testing.T) {
	m := newMachine(&fakeGateway{})

	m.Start()
	reply, err := m.Select(context.Background(), SelectOpenOrders)
	require.NoError(t, err)
	assert.Equal(t, "You don't have open orders", reply.Text)
	assert.True(t, reply.End)
	assert.Equal(t, StateIdle, m.State())
}

func TestOpenOrdersShowsTableAndCancelActions(t *testing.T) {
	m := newMachine(&fakeGateway{orders: threeOrders()})

	m.Start()
	reply, err := m.Select(context.Background(), SelectOpenOrders)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "idx")
	assert.Contains(t, reply.Text, "BTCUSDT")
	assert.Equal(t, []Selection{SelectConfirm, SelectCancel}, reply.Options)
	assert.Equal(t, StateOrdersShown, m.State())
}

func TestCancelOrderByIndex(t *testing.T) {
	gw := &fakeGateway{orders: threeOrders()}
	m := newMachine(gw)
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectOpenOrders)
	require.NoError(t, err)
	reply, err := m.Select(ctx, SelectCancel)
	require.NoError(t, err)
	assert.Equal(t, "Enter order index to cancel: ", reply.Text)

	reply, err = m.Input(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, gw.cancelled)
	assert.Equal(t, "Canceled order: 2 ETHUSDT priced at 3000", reply.Text)
	assert.True(t, reply.End)
}

func TestCancelOrderIndexOutOfRange(t *testing.T) {
	gw := &fakeGateway{orders: threeOrders()}
	m := newMachine(gw)
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectOpenOrders)
	require.NoError(t, err)
	_, err = m.Select(ctx, SelectCancel)
	require.NoError(t, err)

	reply, err := m.Input(ctx, "5")
	assert.True(t, errors.Is(err, ErrInvalidSelection))
	assert.Empty(t, gw.cancelled)
	assert.True(t, reply.End)
	assert.Equal(t, StateIdle, m.State())
}

func TestCancelOrderIndexNotNumericReprompts(t *testing.T) {
	gw := &fakeGateway{orders: threeOrders()}
	m := newMachine(gw)
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectOpenOrders)
	require.NoError(t, err)
	_, err = m.Select(ctx, SelectCancel)
	require.NoError(t, err)

	_, err = m.Input(ctx, "first")
	assert.True(t, errors.Is(err, ErrBadNumber))
	assert.Equal(t, StateCancelIndex, m.State())
	assert.Empty(t, gw.cancelled)
}

func TestFreeBalance(t *testing.T) {
	m := newMachine(&fakeGateway{balances: []exchange.Balance{
		{Asset: "BTC", Amount: 0.5},
		{Asset: "USDT", Amount: 100},
	}})

	m.Start()
	reply, err := m.Select(context.Background(), SelectFreeBalance)
	require.NoError(t, err)
	assert.Equal(t, "Your available balance:\nBTC: 0.5\nUSDT: 100", reply.Text)
	assert.True(t, reply.End)
}

func TestFreeBalanceEmpty(t *testing.T) {
	m := newMachine(&fakeGateway{})

	m.Start()
	reply, err := m.Select(context.Background(), SelectFreeBalance)
	require.NoError(t, err)
	assert.Equal(t, "You don't have any available balance", reply.Text)
	assert.True(t, reply.End)
}

func TestGatewayErrorEndsConversation(t *testing.T) {
	m := newMachine(&fakeGateway{fetchErr: fmt.Errorf("exchange down")})

	m.Start()
	reply, err := m.Select(context.Background(), SelectOpenOrders)
	assert.Error(t, err)
	assert.Contains(t, reply.Text, "exchange down")
	assert.True(t, reply.End)
	assert.Equal(t, StateIdle, m.State())
}

func TestUnknownSelectionReprompts(t *testing.T) {
	m := newMachine(&fakeGateway{})

	m.Start()
	_, err := m.Select(context.Background(), Selection("bogus"))
	assert.True(t, errors.Is(err, ErrInvalidSelection))
	assert.Equal(t, StateTradeSelect, m.State())
}

func TestAbortMidFlow(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)

	reply := m.Abort()
	assert.True(t, reply.End)
	assert.Equal(t, StateIdle, m.State())
}

func TestPercentDefaultToken(t *testing.T) {
	m := NewMachine(&fakeGateway{}, "USD", 1.5)
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)
	_, err = m.Input(ctx, "btc")
	require.NoError(t, err)

	reply, err := m.Input(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "What % change for 2 BTC (default 1.5)", reply.Text)

	// "-" skips the field and takes the configured default.
	reply, err = m.Input(ctx, "-")
	require.NoError(t, err)
	assert.Equal(t, "What price for 1 unit of BTC", reply.Text)

	_, err = m.Input(ctx, "100")
	require.NoError(t, err)
	reply, err = m.Select(ctx, SelectConfirm)
	require.NoError(t, err)
	require.NotNil(t, reply.Trade)
	assert.Equal(t, 1.5, reply.Trade.PercentChange)
	assert.InDelta(t, 101.5, reply.Trade.ExitPrice, 1e-9)
}

func TestPercentDefaultWord(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	mustAdvance(t, m, ctx, SelectShort, "eth", "1", "Default", "100")

	reply, err := m.Select(ctx, SelectConfirm)
	require.NoError(t, err)
	require.NotNil(t, reply.Trade)
	assert.Equal(t, 0.5, reply.Trade.PercentChange)
	assert.InDelta(t, 99.5, reply.Trade.ExitPrice, 1e-9)
}

func TestConfiguredQuoteCurrency(t *testing.T) {
	m := NewMachine(&fakeGateway{}, "USDT", 0.5)
	ctx := context.Background()

	m.Start()
	mustAdvance(t, m, ctx, SelectLong, "btc", "2", "10", "100")

	reply, err := m.Select(ctx, SelectConfirm)
	require.NoError(t, err)
	require.NotNil(t, reply.Trade)
	assert.Equal(t, "BTC/USDT", reply.Trade.ExchangeSymbol())
}

func TestEmptyCoinNameReprompts(t *testing.T) {
	m := newMachine(&fakeGateway{})
	ctx := context.Background()

	m.Start()
	_, err := m.Select(ctx, SelectLong)
	require.NoError(t, err)

	reply, err := m.Input(ctx, "   ")
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	assert.Equal(t, StateCoinName, m.State())
	assert.Equal(t, "Enter coin name for Long trade", reply.Text)

	// The same state accepts a real coin afterwards.
	reply, err = m.Input(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "What amount of BTC", reply.Text)
}

// mustAdvance walks kind selection and the four field inputs.
func mustAdvance(t *testing.T, m *Machine, ctx context.Context, kind Selection, coin, amount, percent, price string) {
	t.Helper()
	_, err := m.Select(ctx, kind)
	require.NoError(t, err)
	for _, text := range []string{coin, amount, percent, price} {
		_, err = m.Input(ctx, text)
		require.NoError(t, err)
	}
}
