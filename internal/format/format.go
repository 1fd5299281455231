// Package format renders orders and balances as plain-text replies.
// All functions are pure; callers decide what to do with the strings.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"fasttrade/internal/exchange"
)

var (
	titles  = []string{"idx", "type", "remaining", "symbol", "price"}
	spacing = []int{4, 6, 8, 10, 8}
)

// OpenOrders renders orders as a fixed-width table. The idx column is
// the zero-based position in the slice, which is also the index the
// cancel-order step accepts.
func OpenOrders(orders []exchange.Order) string {
	titleLine := joinLine(titles)
	lines := []string{titleLine}

	for idx, order := range orders {
		lines = append(lines, joinLine([]string{
			strconv.Itoa(idx),
			order.Side,
			formatFloat(order.Remaining),
			order.Symbol,
			formatFloat(order.Price),
		}))
	}

	separator := "\n" + strings.Repeat("-", len(titleLine)) + "\n"
	return strings.Join(lines, separator)
}

// Order renders a one-line order summary.
func Order(order exchange.Order) string {
	return fmt.Sprintf("%s %s priced at %s",
		formatFloat(order.Amount), order.Symbol, formatFloat(order.Price))
}

// Balance renders one "asset: amount" line per entry, in input order.
func Balance(balances []exchange.Balance) string {
	lines := make([]string, 0, len(balances))
	for _, b := range balances {
		lines = append(lines, fmt.Sprintf("%s: %s", b.Asset, formatFloat(b.Amount)))
	}
	return strings.Join(lines, "\n")
}

func joinLine(cells []string) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = center(cell, spacing[i])
	}
	return strings.Join(padded, " | ")
}

// center pads to width, leaning the extra space left when the slack is
// odd and the width is odd, right otherwise.
func center(s string, width int) string {
	margin := width - len(s)
	if margin <= 0 {
		return s
	}
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
