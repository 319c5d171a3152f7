// Package format holds the display helpers shared by every widget: dates,
// amounts and file sizes, all rendered the French way.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var months = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Date renders a timestamp as "2 novembre 2026 à 14:30".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d à %02d:%02d", t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// ShortDate renders a timestamp as "02/11/2026".
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// Amount renders a number with French grouping and two decimals, followed by
// the currency symbol when one is given.
func Amount(amount float64, symbol string) string {
	p := message.NewPrinter(language.French)
	s := p.Sprintf("%.2f", amount)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// Currency renders an amount for an ISO 4217 code, EUR when the code is
// empty or unknown.
func Currency(amount float64, code string) string {
	unit := currency.EUR
	if code != "" {
		if u, err := currency.ParseISO(code); err == nil {
			unit = u
		}
	}
	return Amount(amount, fmt.Sprint(currency.Symbol(unit)))
}

// FileSize renders a byte count in kilobytes with one decimal.
func FileSize(bytes int64) string {
	return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
}
