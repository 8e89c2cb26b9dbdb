package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
)

// FormatUSD renders a price the way the bot always has: comma-grouped with
// two decimals, e.g. "$70,000.00".
func FormatUSD(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

var coinEmoji = map[string]string{
	"bitcoin":  "₿",
	"ethereum": "🔷",
	"solana":   "🟣",
	"xrp":      "🔵",
	"tether":   "💵",
}

func emoji(assetID string) string {
	if e, ok := coinEmoji[assetID]; ok {
		return e
	}
	return "🪙"
}

// FormatTriggered builds the notification text for a newly-triggered alert.
func FormatTriggered(a asset.Asset, alert model.Alert) string {
	switch alert.Kind {
	case model.KindTargetPrice:
		return fmt.Sprintf("🚨 %s has reached your target price: %s!",
			a.DisplayName, FormatUSD(alert.Target))
	case model.KindPriceRange:
		return fmt.Sprintf("🔔 %s is in your target range: %s - %s",
			a.DisplayName, FormatUSD(alert.Low), FormatUSD(alert.High))
	case model.KindPercentChange:
		return fmt.Sprintf("⚡ %s 24h price change reached your %.2f%% threshold",
			a.DisplayName, alert.Threshold)
	case model.KindVolumeChange:
		return fmt.Sprintf("📈 %s 24h trading volume changed by ≥%.2f%%",
			a.DisplayName, alert.Threshold)
	default:
		return fmt.Sprintf("🔔 %s alert triggered", a.DisplayName)
	}
}

// FormatMarketUpdate builds the periodic broadcast message. Assets keep
// registration order; prices is keyed by asset id.
func FormatMarketUpdate(assets []asset.Asset, prices map[string]float64) string {
	var b strings.Builder
	b.WriteString("📊 Market Update\n\n")
	for i, a := range assets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s %s (%s): %s",
			emoji(a.ID), a.DisplayName, a.Symbol, FormatUSD(prices[a.ID])))
	}
	return b.String()
}

// FormatPrice renders a single resolved price with its observation age.
func FormatPrice(a asset.Asset, price float64, observedAt time.Time) string {
	return fmt.Sprintf("%s Price: %s (updated %s)", a.Symbol, FormatUSD(price), timeAgo(observedAt))
}

// FormatAlertList renders a user's alerts for the /listalerts reply.
func FormatAlertList(reg *asset.Registry, alerts []model.Alert) string {
	if len(alerts) == 0 {
		return "You have no active alerts."
	}
	var b strings.Builder
	b.WriteString("Your active alerts:\n")
	for i, al := range alerts {
		name := al.Asset
		if a, err := reg.FromID(al.Asset); err == nil {
			name = a.DisplayName
		}
		switch al.Kind {
		case model.KindTargetPrice:
			b.WriteString(fmt.Sprintf("%d. %s Target: %s\n", i+1, name, FormatUSD(al.Target)))
		case model.KindPriceRange:
			b.WriteString(fmt.Sprintf("%d. %s Range: %s - %s\n", i+1, name, FormatUSD(al.Low), FormatUSD(al.High)))
		case model.KindPercentChange:
			b.WriteString(fmt.Sprintf("%d. %s 24h change ≥%.2f%%\n", i+1, name, al.Threshold))
		case model.KindVolumeChange:
			b.WriteString(fmt.Sprintf("%d. %s 24h volume change ≥%.2f%%\n", i+1, name, al.Threshold))
		}
	}
	return b.String()
}

// FormatAlertsCSV exports alerts, including triggered ones, as CSV text.
func FormatAlertsCSV(alerts []model.Alert) string {
	var b strings.Builder
	b.WriteString("Coin,Alert Type,Params,Triggered\n")
	for _, al := range alerts {
		var params string
		switch al.Kind {
		case model.KindTargetPrice:
			params = fmt.Sprintf("%.2f", al.Target)
		case model.KindPriceRange:
			params = fmt.Sprintf("%.2f - %.2f", al.Low, al.High)
		default:
			params = fmt.Sprintf("%.2f%%", al.Threshold)
		}
		b.WriteString(fmt.Sprintf("%s,%s,%s,%v\n", al.Asset, al.Kind, params, al.Triggered))
	}
	return b.String()
}

// FormatHistory renders the most recent history entries, newest first.
func FormatHistory(a asset.Asset, points []model.PricePoint, limit int) string {
	if len(points) == 0 {
		return fmt.Sprintf("No history available for %s", a.DisplayName)
	}
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 %s Price History:\n\n", a.DisplayName))
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		b.WriteString(fmt.Sprintf("%s → %s\n", p.At.Format("2006-01-02 15:04:05"), FormatUSD(p.Price)))
	}
	return b.String()
}

// PortfolioEntry is one aggregated position resolved to a current price.
type PortfolioEntry struct {
	Symbol  string
	Amount  float64
	AvgCost float64
	Price   float64
}

// FormatPortfolio renders the holdings overview with per-position gain/loss.
func FormatPortfolio(entries []PortfolioEntry) string {
	if len(entries) == 0 {
		return "Your portfolio is empty. Use /buy <coin> <amount> to add coins."
	}
	var b strings.Builder
	b.WriteString("💼 Your Crypto Portfolio\n\n")
	var totalValue float64
	for _, e := range entries {
		value := e.Amount * e.Price
		totalValue += value
		b.WriteString(fmt.Sprintf("%s: %.2f\n", e.Symbol, e.Amount))
		b.WriteString(fmt.Sprintf("Price: %s | Value: %s\n", FormatUSD(e.Price), FormatUSD(value)))
		if e.AvgCost > 0 {
			cost := e.AvgCost * e.Amount
			profit := value - cost
			pct := profit / cost * 100
			arrow, word := "🟢", "Profit"
			if profit < 0 {
				arrow, word = "🔴", "Loss"
			}
			b.WriteString(fmt.Sprintf("Gain/Loss: %s %+.2f%% (%s: %s)\n",
				arrow, pct, word, FormatUSD(abs(profit))))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("💰 Total Portfolio Value: %s", FormatUSD(totalValue)))
	return b.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// timeAgo renders how long ago a price was observed.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d mins ago", int(d.Minutes()))
	default:
		return "at " + t.Format("03:04 PM")
	}
}
