package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
	"github.com/shopspring/decimal"
)

var (
	quoteBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(style.DefaultPalette().Info).
			Padding(0, 1)

	quoteLabel = lipgloss.NewStyle().
			Foreground(style.DefaultPalette().TextSecondary).
			Width(14)
)

// renderQuote formats a quote for the history log.
func renderQuote(q market.Quote) string {
	name := strings.ToUpper(q.Symbol)
	if a, ok := market.Lookup(q.Symbol); ok {
		name = fmt.Sprintf("%s (%s)", a.Name, a.Ticker)
	}

	change := style.SuccessText
	sign := "+"
	if q.Change24h.IsNegative() {
		change = style.ErrorText
		sign = ""
	}

	rows := []string{
		style.Title.UnsetMarginBottom().Render(name),
		quoteLabel.Render("Price") + "$" + q.Price.StringFixed(2),
		quoteLabel.Render("24h change") + change.Render(sign+q.Change24h.StringFixed(2)+"%"),
		quoteLabel.Render("Market cap") + "$" + groupThousands(q.MarketCap),
		quoteLabel.Render("24h volume") + "$" + groupThousands(q.Volume24h),
	}
	if !q.AsOf.IsZero() {
		rows = append(rows, quoteLabel.Render("Updated")+q.AsOf.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return quoteBox.Render(strings.Join(rows, "\n"))
}

// groupThousands renders d rounded to whole units with comma separators.
func groupThousands(d decimal.Decimal) string {
	s := d.Round(0).Abs().String()
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if d.Round(0).IsNegative() {
		return "-" + b.String()
	}
	return b.String()
}
