// Package conversation drives a single operator through the trade
// wizard: pick an option, fill in the trade fields one message at a
// time, confirm, done. The machine owns the per-session state and talks
// to the exchange for the order/balance paths; actual trade submission
// is handed back to the caller so it can run off the chat turn.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fasttrade/internal/exchange"
	"fasttrade/internal/format"
	"fasttrade/internal/models"
)

var (
	// ErrBadNumber flags non-numeric input for a numeric field. The
	// machine keeps its state so the operator can retry the same field.
	ErrBadNumber = errors.New("not a number")

	// ErrInvalidSelection flags an out-of-range cancel index or an
	// unknown option button.
	ErrInvalidSelection = errors.New("invalid selection")
)

// State is the wizard's position in the flow.
type State int

const (
	StateIdle State = iota
	StateTradeSelect
	StateCoinName
	StateAmount
	StatePercentChange
	StatePrice
	StateConfirmTrade
	StateOrdersShown
	StateCancelIndex
)

// Selection is a button press forwarded by the transport.
type Selection string

const (
	SelectLong        Selection = "long_trade"
	SelectShort       Selection = "short_trade"
	SelectOpenOrders  Selection = "open_orders"
	SelectFreeBalance Selection = "free_balance"
	SelectConfirm     Selection = "confirm"
	SelectCancel      Selection = "cancel"
)

// Reply is what the transport should send back to the operator.
type Reply struct {
	Text    string
	Options []Selection
	// End marks a terminal transition; the session is already cleared.
	End bool
	// Trade is set on the confirm transition. The caller submits it.
	Trade *models.Trade
}

// session holds the fields collected so far. Discarded on any terminal
// transition and on every Start.
type session struct {
	kind       models.TradeKind
	coin       string
	amount     float64
	percent    float64
	price      float64
	openOrders []exchange.Order
}

// Machine is the conversation state machine for one operator. It is
// used from a single goroutine at a time.
type Machine struct {
	gateway        exchange.Gateway
	currency       string
	defaultPercent float64
	state          State
	session        session
}

func NewMachine(gateway exchange.Gateway, currency string, defaultPercent float64) *Machine {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Machine{gateway: gateway, currency: currency, defaultPercent: defaultPercent}
}

func (m *Machine) State() State { return m.state }

// Start begins a fresh conversation, discarding any session in flight.
func (m *Machine) Start() Reply {
	m.reset()
	m.state = StateTradeSelect
	return Reply{
		Text:    "Trade options:",
		Options: []Selection{SelectShort, SelectLong, SelectOpenOrders, SelectFreeBalance},
	}
}

// Abort ends the conversation mid-flow.
func (m *Machine) Abort() Reply {
	m.reset()
	return Reply{Text: "Conversation cancelled. Type /trade to show options", End: true}
}

// Select handles a button press.
func (m *Machine) Select(ctx context.Context, sel Selection) (Reply, error) {
	switch m.state {
	case StateTradeSelect:
		return m.selectOption(ctx, sel)
	case StateOrdersShown:
		return m.selectOrdersAction(sel)
	case StateConfirmTrade:
		return m.selectConfirmation(sel)
	default:
		return m.end("Type /trade to show options"), nil
	}
}

// Input handles a free-text message.
func (m *Machine) Input(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)

	switch m.state {
	case StateCoinName:
		if text == "" {
			err := fmt.Errorf("%w: coin name must not be empty", models.ErrInvalidArgument)
			return Reply{Text: fmt.Sprintf("Enter coin name for %s trade", m.session.kind)}, err
		}
		m.session.coin = strings.ToUpper(text)
		m.state = StateAmount
		return Reply{Text: fmt.Sprintf("What amount of %s", m.session.coin)}, nil

	case StateAmount:
		amount, err := parsePositive(text)
		if err != nil {
			return Reply{Text: fmt.Sprintf("%v. What amount of %s", err, m.session.coin)}, err
		}
		m.session.amount = amount
		m.state = StatePercentChange
		return Reply{Text: m.percentPrompt()}, nil

	case StatePercentChange:
		percent := m.defaultPercent
		if !isDefaultToken(text) {
			var err error
			percent, err = parseNumber(text)
			if err != nil {
				return Reply{Text: fmt.Sprintf("%v. %s", err, m.percentPrompt())}, err
			}
		}
		m.session.percent = percent
		m.state = StatePrice
		return Reply{Text: fmt.Sprintf("What price for 1 unit of %s", m.session.coin)}, nil

	case StatePrice:
		price, err := parsePositive(text)
		if err != nil {
			return Reply{Text: fmt.Sprintf("%v. What price for 1 unit of %s", err, m.session.coin)}, err
		}
		m.session.price = price

		trade, err := m.buildTrade()
		if err != nil {
			// Collected fields cannot form a valid trade; start over.
			return m.end(fmt.Sprintf("Cannot build trade: %v. Type /trade to start over", err)), err
		}
		m.state = StateConfirmTrade
		return Reply{
			Text:    fmt.Sprintf("Confirm the trade: '%s'", trade),
			Options: []Selection{SelectConfirm, SelectCancel},
		}, nil

	case StateCancelIndex:
		return m.cancelByIndex(ctx, text)

	default:
		return m.end("Type /trade to show options"), nil
	}
}

func (m *Machine) selectOption(ctx context.Context, sel Selection) (Reply, error) {
	switch sel {
	case SelectLong, SelectShort:
		m.session.kind = models.Long
		if sel == SelectShort {
			m.session.kind = models.Short
		}
		m.state = StateCoinName
		return Reply{Text: fmt.Sprintf("Enter coin name for %s trade", m.session.kind)}, nil

	case SelectOpenOrders:
		orders, err := m.gateway.FetchOpenOrders(ctx)
		if err != nil {
			return m.end(fmt.Sprintf("Could not fetch open orders: %v", err)), err
		}
		if len(orders) == 0 {
			return m.end("You don't have open orders"), nil
		}
		m.session.openOrders = orders
		m.state = StateOrdersShown
		return Reply{
			Text:    format.OpenOrders(orders),
			Options: []Selection{SelectConfirm, SelectCancel},
		}, nil

	case SelectFreeBalance:
		balance, err := m.gateway.FetchFreeBalance(ctx)
		if err != nil {
			return m.end(fmt.Sprintf("Could not fetch balance: %v", err)), err
		}
		if len(balance) == 0 {
			return m.end("You don't have any available balance"), nil
		}
		return m.end("Your available balance:\n" + format.Balance(balance)), nil

	default:
		return Reply{Text: "Pick one of the trade options"}, fmt.Errorf("%w: %s", ErrInvalidSelection, sel)
	}
}

func (m *Machine) selectOrdersAction(sel Selection) (Reply, error) {
	switch sel {
	case SelectConfirm:
		return m.end("Type /trade to show options"), nil
	case SelectCancel:
		m.state = StateCancelIndex
		return Reply{Text: "Enter order index to cancel: "}, nil
	default:
		return Reply{Text: "Pick Ok or Cancel order"}, fmt.Errorf("%w: %s", ErrInvalidSelection, sel)
	}
}

func (m *Machine) selectConfirmation(sel Selection) (Reply, error) {
	switch sel {
	case SelectConfirm:
		trade, err := m.buildTrade()
		if err != nil {
			return m.end(fmt.Sprintf("Cannot build trade: %v", err)), err
		}
		reply := m.end(fmt.Sprintf("Scheduled: %s", trade))
		reply.Trade = trade
		return reply, nil
	case SelectCancel:
		return m.end("Type /trade to show options"), nil
	default:
		return Reply{Text: "Pick Confirm or Cancel"}, fmt.Errorf("%w: %s", ErrInvalidSelection, sel)
	}
}

func (m *Machine) cancelByIndex(ctx context.Context, text string) (Reply, error) {
	idx, err := strconv.Atoi(text)
	if err != nil {
		return Reply{Text: "Enter a numeric order index to cancel: "}, fmt.Errorf("%w: %q", ErrBadNumber, text)
	}
	if idx < 0 || idx >= len(m.session.openOrders) {
		err := fmt.Errorf("%w: index %d out of range", ErrInvalidSelection, idx)
		return m.end(fmt.Sprintf("No order with index %d", idx)), err
	}

	order := m.session.openOrders[idx]
	if err := m.gateway.CancelOrder(ctx, order); err != nil {
		return m.end(fmt.Sprintf("Could not cancel order: %v", err)), err
	}
	return m.end(fmt.Sprintf("Canceled order: %s", format.Order(order))), nil
}

func (m *Machine) buildTrade() (*models.Trade, error) {
	return models.New(m.session.kind, m.session.price, m.session.coin,
		m.session.amount, m.session.percent, m.currency)
}

func (m *Machine) percentPrompt() string {
	return fmt.Sprintf("What %% change for %v %s (default %v)",
		m.session.amount, m.session.coin, m.defaultPercent)
}

// isDefaultToken reports whether the operator chose to skip the percent
// step and take the configured default.
func isDefaultToken(text string) bool {
	return text == "-" || strings.EqualFold(text, "default")
}

// end clears the session and produces a terminal reply.
func (m *Machine) end(text string) Reply {
	m.reset()
	return Reply{Text: text, End: true}
}

func (m *Machine) reset() {
	m.session = session{}
	m.state = StateIdle
}

func parseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, text)
	}
	return v, nil
}

func parsePositive(text string) (float64, error) {
	v, err := parseNumber(text)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %v must be positive", models.ErrInvalidArgument, v)
	}
	return v, nil
}
