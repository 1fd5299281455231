package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"fasttrade/internal/conversation"
	"fasttrade/internal/exchange"
	"fasttrade/internal/executor"
	"fasttrade/internal/models"
)

// Bot binds the conversation machine to Telegram. One authorized
// operator; everyone else is rejected by the middleware.
type Bot struct {
	bot          *tele.Bot
	machine      *conversation.Machine
	executor     *executor.TradeExecutor
	gateway      exchange.Gateway
	authorizedID int64
	currency     string

	mu sync.Mutex // telebot runs handlers concurrently; the machine is not
}

func NewBot(token string, authorizedID int64, machine *conversation.Machine, exec *executor.TradeExecutor, gateway exchange.Gateway, currency string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:          b,
		machine:      machine,
		executor:     exec,
		gateway:      gateway,
		authorizedID: authorizedID,
		currency:     currency,
	}

	bot.setupHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	log.Println("📱 Telegram bot started")
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

// Button uniques double as conversation selections.
var (
	btnShort   = tele.Btn{Text: "Short trade", Unique: string(conversation.SelectShort)}
	btnLong    = tele.Btn{Text: "Long trade", Unique: string(conversation.SelectLong)}
	btnOrders  = tele.Btn{Text: "Open orders", Unique: string(conversation.SelectOpenOrders)}
	btnBalance = tele.Btn{Text: "Available balance", Unique: string(conversation.SelectFreeBalance)}
	btnConfirm = tele.Btn{Text: "Confirm", Unique: string(conversation.SelectConfirm)}
	btnCancel  = tele.Btn{Text: "Cancel", Unique: string(conversation.SelectCancel)}

	// Same selections, order-view labels.
	btnOk          = tele.Btn{Text: "Ok", Unique: string(conversation.SelectConfirm)}
	btnCancelOrder = tele.Btn{Text: "Cancel order", Unique: string(conversation.SelectCancel)}
)

func (b *Bot) setupHandlers() {
	// Only the configured operator may talk to the bot.
	b.bot.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != b.authorizedID {
				return c.Send("⛔ Unauthorized")
			}
			return next(c)
		}
	})

	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/trade", b.handleTrade)
	b.bot.Handle("/cancel", b.handleCancel)
	b.bot.Handle("/price", b.handlePrice)

	b.bot.Handle(&btnShort, b.selectionHandler(conversation.SelectShort))
	b.bot.Handle(&btnLong, b.selectionHandler(conversation.SelectLong))
	b.bot.Handle(&btnOrders, b.selectionHandler(conversation.SelectOpenOrders))
	b.bot.Handle(&btnBalance, b.selectionHandler(conversation.SelectFreeBalance))
	b.bot.Handle(&btnConfirm, b.selectionHandler(conversation.SelectConfirm))
	b.bot.Handle(&btnCancel, b.selectionHandler(conversation.SelectCancel))

	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send("Type /trade to show options")
}

func (b *Bot) handleTrade(c tele.Context) error {
	b.mu.Lock()
	reply := b.machine.Start()
	b.mu.Unlock()
	return b.send(c, reply.Text, reply.Options, false)
}

func (b *Bot) handleCancel(c tele.Context) error {
	b.mu.Lock()
	reply := b.machine.Abort()
	b.mu.Unlock()
	return c.Send(reply.Text)
}

func (b *Bot) handlePrice(c tele.Context) error {
	coin := strings.ToUpper(strings.TrimSpace(c.Message().Payload))
	if coin == "" {
		return c.Send("Usage: /price <coin>")
	}

	symbol := coin + "/" + b.currency
	price, err := b.gateway.LastPrice(context.Background(), symbol)
	if err != nil {
		return c.Send(fmt.Sprintf("Could not fetch price for %s: %v", symbol, err))
	}
	return c.Send(fmt.Sprintf("%s: %s", symbol, models.FormatPrice(price)))
}

func (b *Bot) selectionHandler(sel conversation.Selection) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.mu.Lock()
		reply, err := b.machine.Select(context.Background(), sel)
		ordersView := b.machine.State() == conversation.StateOrdersShown
		b.mu.Unlock()
		if err != nil {
			log.Printf("selection %q: %v", sel, err)
		}

		if reply.Trade != nil {
			b.executeAsync(reply.Trade)
		}

		// Replace the prompt message the button belonged to.
		if len(reply.Options) == 0 {
			return c.Edit(reply.Text)
		}
		return c.Edit(reply.Text, b.keyboardFor(reply.Options, ordersView))
	}
}

func (b *Bot) handleText(c tele.Context) error {
	b.mu.Lock()
	if b.machine.State() == conversation.StateIdle {
		b.mu.Unlock()
		return b.handleHelp(c)
	}
	reply, err := b.machine.Input(context.Background(), c.Text())
	b.mu.Unlock()
	if err != nil {
		log.Printf("input turn: %v", err)
	}
	return b.send(c, reply.Text, reply.Options, false)
}

func (b *Bot) send(c tele.Context, text string, options []conversation.Selection, ordersView bool) error {
	if len(options) == 0 {
		return c.Send(text)
	}
	return c.Send(text, b.keyboardFor(options, ordersView))
}

// executeAsync submits the trade off the handler path so a slow
// exchange cannot block the poller turn.
func (b *Bot) executeAsync(trade *models.Trade) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		receipt, err := b.executor.Execute(ctx, trade)
		if err != nil {
			log.Printf("trade execution failed: %v", err)
			b.notify(fmt.Sprintf("⚠️ Trade failed: %v", err))
			return
		}
		b.notify(fmt.Sprintf("✅ Placed %s: entry order %s, exit order %s",
			trade, receipt.Entry.OrderID, receipt.Exit.OrderID))
	}()
}

func (b *Bot) notify(msg string) {
	if _, err := b.bot.Send(&tele.User{ID: b.authorizedID}, msg); err != nil {
		log.Printf("notify operator: %v", err)
	}
}

func (b *Bot) keyboardFor(options []conversation.Selection, ordersView bool) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	if len(options) == 0 {
		return menu
	}

	var row []tele.Btn
	for _, opt := range options {
		switch opt {
		case conversation.SelectShort:
			row = append(row, btnShort)
		case conversation.SelectLong:
			row = append(row, btnLong)
		case conversation.SelectOpenOrders:
			row = append(row, btnOrders)
		case conversation.SelectFreeBalance:
			row = append(row, btnBalance)
		case conversation.SelectConfirm:
			if ordersView {
				row = append(row, btnOk)
			} else {
				row = append(row, btnConfirm)
			}
		case conversation.SelectCancel:
			if ordersView {
				row = append(row, btnCancelOrder)
			} else {
				row = append(row, btnCancel)
			}
		}
	}

	// Two buttons per row, like the original keyboards.
	var rows []tele.Row
	for len(row) > 2 {
		rows = append(rows, menu.Row(row[0], row[1]))
		row = row[2:]
	}
	rows = append(rows, menu.Row(row...))
	menu.Inline(rows...)
	return menu
}
