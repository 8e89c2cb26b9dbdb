package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"PricePilot/internal/asset"
	"PricePilot/internal/evaluator"
	"PricePilot/internal/model"
	"PricePilot/internal/notifier"
	"PricePilot/internal/pricecache"
	"PricePilot/internal/pricesource"
	"PricePilot/internal/store"
)

// Router parses user commands and dispatches them into the engine. All
// input validation happens here: the store and evaluator never see a bad
// number, an inverted range or an unsupported coin.
type Router struct {
	Registry *asset.Registry
	Store    store.Store
	Resolver *pricesource.Resolver
	Cache    *pricecache.Cache
	Eval     *evaluator.Evaluator
}

// NewRouter creates a Router.
func NewRouter(reg *asset.Registry, st store.Store, res *pricesource.Resolver, cache *pricecache.Cache, ev *evaluator.Evaluator) *Router {
	return &Router{Registry: reg, Store: st, Resolver: res, Cache: cache, Eval: ev}
}

const welcome = `Welcome to PricePilot!

/price <coin> — current price
/setalert <coin> <target> — target-price alert
/setrangalert <coin> <low> <high> — price-range alert
/setchangealert <coin> <percent> — 24h change alert
/setvolumealert <coin> <percent> — 24h volume alert
/listalerts — your active alerts
/exportalerts — export alerts as CSV
/subscribe, /unsubscribe — periodic market updates
/buy <coin> <amount> [price] — add to portfolio
/sell <coin> <amount> — sell from portfolio
/portfolio — holdings overview
/history <coin|all> — recent observed prices`

// Handle processes one command and returns the reply text.
func (r *Router) Handle(ctx context.Context, userID, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		return welcome
	case "/price":
		return r.price(ctx, args)
	case "/setalert":
		return r.setAlert(ctx, userID, args)
	case "/setrangalert":
		return r.setRangeAlert(ctx, userID, args)
	case "/setchangealert":
		return r.setMetricAlert(ctx, userID, args, model.KindPercentChange)
	case "/setvolumealert":
		return r.setMetricAlert(ctx, userID, args, model.KindVolumeChange)
	case "/listalerts":
		return r.listAlerts(ctx, userID)
	case "/exportalerts":
		return r.exportAlerts(ctx, userID)
	case "/subscribe":
		return r.subscribe(ctx, userID)
	case "/unsubscribe":
		return r.unsubscribe(ctx, userID)
	case "/buy":
		return r.buy(ctx, userID, args)
	case "/sell":
		return r.sell(ctx, userID, args)
	case "/portfolio":
		return r.portfolio(ctx, userID)
	case "/history":
		return r.history(args)
	case "/forcerun":
		return r.forceRun(ctx, args)
	case "/sendprices":
		return r.sendPrices(ctx)
	default:
		return welcome
	}
}

func (r *Router) unsupported(arg string) string {
	return fmt.Sprintf("Unsupported coin: %s. Supported: %s",
		arg, strings.Join(r.Registry.Symbols(), ", "))
}

func (r *Router) price(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /price <coin> (e.g., /price btc)"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	q, err := r.Resolver.Resolve(ctx, a, nil)
	if err != nil {
		return fmt.Sprintf("Failed to fetch %s price. Please try again later.", a.Symbol)
	}
	last, _ := r.Cache.Latest(a.ID)
	return notifier.FormatPrice(a, q.Price, last.At)
}

func (r *Router) setAlert(ctx context.Context, userID string, args []string) string {
	if len(args) != 2 {
		return "Usage: /setalert <coin> <target>"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	target, err := strconv.ParseFloat(args[1], 64)
	if err != nil || target <= 0 {
		return "Please enter a valid number."
	}
	alert := model.Alert{UserID: userID, Asset: a.ID, Kind: model.KindTargetPrice, Target: target}
	if _, err := r.Store.CreateAlert(ctx, alert); err != nil {
		log.Printf("[ERROR] create alert: %v", err)
		return "Failed to save alert. Please try again."
	}
	return fmt.Sprintf("%s alert set at %s", a.DisplayName, notifier.FormatUSD(target))
}

func (r *Router) setRangeAlert(ctx context.Context, userID string, args []string) string {
	if len(args) != 3 {
		return "Usage: /setrangalert <coin> <low> <high>"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	low, errLow := strconv.ParseFloat(args[1], 64)
	high, errHigh := strconv.ParseFloat(args[2], 64)
	if errLow != nil || errHigh != nil {
		return "Please enter valid numbers."
	}
	if low >= high {
		return "Low must be less than high."
	}
	alert := model.Alert{UserID: userID, Asset: a.ID, Kind: model.KindPriceRange, Low: low, High: high}
	if _, err := r.Store.CreateAlert(ctx, alert); err != nil {
		log.Printf("[ERROR] create range alert: %v", err)
		return "Failed to save alert. Please try again."
	}
	return fmt.Sprintf("%s range alert set: %s - %s",
		a.DisplayName, notifier.FormatUSD(low), notifier.FormatUSD(high))
}

func (r *Router) setMetricAlert(ctx context.Context, userID string, args []string, kind model.AlertKind) string {
	usage := "Usage: /setchangealert <coin> <percent>"
	if kind == model.KindVolumeChange {
		usage = "Usage: /setvolumealert <coin> <percent>"
	}
	if len(args) != 2 {
		return usage
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	threshold, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
	if err != nil || threshold <= 0 {
		return "Please enter a valid percentage."
	}
	alert := model.Alert{UserID: userID, Asset: a.ID, Kind: kind, Threshold: threshold}
	if _, err := r.Store.CreateAlert(ctx, alert); err != nil {
		log.Printf("[ERROR] create %s alert: %v", kind, err)
		return "Failed to save alert. Please try again."
	}
	what := "price changes"
	if kind == model.KindVolumeChange {
		what = "trading volume changes"
	}
	return fmt.Sprintf("🔔 Set alert for %s if %s by ≥%.2f%% in 24h", a.DisplayName, what, threshold)
}

func (r *Router) listAlerts(ctx context.Context, userID string) string {
	alerts, err := r.Store.ListAlertsByUser(ctx, userID, false)
	if err != nil {
		log.Printf("[ERROR] list alerts: %v", err)
		return "Failed to load alerts. Please try again."
	}
	return notifier.FormatAlertList(r.Registry, alerts)
}

func (r *Router) exportAlerts(ctx context.Context, userID string) string {
	alerts, err := r.Store.ListAlertsByUser(ctx, userID, true)
	if err != nil {
		log.Printf("[ERROR] export alerts: %v", err)
		return "Failed to load alerts. Please try again."
	}
	if len(alerts) == 0 {
		return "No alerts to export."
	}
	return notifier.FormatAlertsCSV(alerts)
}

func (r *Router) subscribe(ctx context.Context, userID string) string {
	if err := r.Store.AddSubscriber(ctx, userID); err != nil {
		log.Printf("[ERROR] subscribe %s: %v", userID, err)
		return "Failed to subscribe. Please try again."
	}
	return "✅ Subscribed to periodic price updates"
}

func (r *Router) unsubscribe(ctx context.Context, userID string) string {
	if err := r.Store.RemoveSubscriber(ctx, userID); err != nil {
		log.Printf("[ERROR] unsubscribe %s: %v", userID, err)
		return "Failed to unsubscribe. Please try again."
	}
	return "❌ Unsubscribed from price updates"
}

func (r *Router) buy(ctx context.Context, userID string, args []string) string {
	if len(args) < 2 || len(args) > 3 {
		return "Usage: /buy <coin> <amount> [price]\nExample: /buy sol 100 140"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return "Please enter a valid amount."
	}

	var price float64
	if len(args) == 3 {
		price, err = strconv.ParseFloat(args[2], 64)
		if err != nil || price < 0 {
			return "Please enter a valid price."
		}
	} else {
		q, err := r.Resolver.Resolve(ctx, a, nil)
		if err != nil {
			return fmt.Sprintf("Failed to fetch current %s price; please supply a purchase price.", a.Symbol)
		}
		price = q.Price
	}

	if err := r.Store.AddHolding(ctx, userID, a.ID, amount, price); err != nil {
		log.Printf("[ERROR] add holding: %v", err)
		return "Failed to update portfolio. Please try again."
	}
	return fmt.Sprintf("✅ Added %g %s to your portfolio. Bought at %s",
		amount, a.Symbol, notifier.FormatUSD(price))
}

func (r *Router) sell(ctx context.Context, userID string, args []string) string {
	if len(args) != 2 {
		return "Usage: /sell <coin> <amount>\nExample: /sell sol 100"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return "Please enter a valid amount."
	}

	avgCost, err := r.Store.ReduceHolding(ctx, userID, a.ID, amount)
	if errors.Is(err, store.ErrInsufficientHoldings) {
		return fmt.Sprintf("You don't have enough %s in your portfolio.", a.Symbol)
	}
	if err != nil {
		log.Printf("[ERROR] reduce holding: %v", err)
		return "Failed to update portfolio. Please try again."
	}
	return fmt.Sprintf("✅ Sold %g %s.\nSold at average cost: %s\nTotal sold value: %s",
		amount, a.Symbol, notifier.FormatUSD(avgCost), notifier.FormatUSD(amount*avgCost))
}

func (r *Router) portfolio(ctx context.Context, userID string) string {
	positions, err := r.Store.ListPositions(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] list positions: %v", err)
		return "Failed to load portfolio. Please try again."
	}

	entries := make([]notifier.PortfolioEntry, 0, len(positions))
	for _, p := range positions {
		a, err := r.Registry.FromID(p.Asset)
		if err != nil {
			continue
		}
		q, err := r.Resolver.Resolve(ctx, a, nil)
		if err != nil {
			return fmt.Sprintf("Failed to fetch current price for %s. Try again later.", a.Symbol)
		}
		entries = append(entries, notifier.PortfolioEntry{
			Symbol:  a.Symbol,
			Amount:  p.Amount,
			AvgCost: p.AvgCost(),
			Price:   q.Price,
		})
	}
	return notifier.FormatPortfolio(entries)
}

func (r *Router) history(args []string) string {
	if len(args) != 1 {
		return "Usage: /history <coin|all> (e.g., /history btc)"
	}
	if strings.EqualFold(args[0], "all") {
		var b strings.Builder
		b.WriteString("📈 Latest Observed Prices\n\n")
		any := false
		for _, a := range r.Registry.All() {
			last, ok := r.Cache.Latest(a.ID)
			if !ok {
				continue
			}
			any = true
			b.WriteString(fmt.Sprintf("%s: %s (observed %s)\n",
				a.DisplayName, notifier.FormatUSD(last.Price), last.At.Format("2006-01-02 15:04:05")))
		}
		if !any {
			return "No prices observed yet."
		}
		return b.String()
	}

	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	return notifier.FormatHistory(a, r.Cache.History(a.ID), 5)
}

func (r *Router) forceRun(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: /forcerun <coin> <price>"
	}
	a, err := r.Registry.FromSymbol(args[0])
	if err != nil {
		return r.unsupported(args[0])
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil || price <= 0 {
		return "Invalid price value."
	}

	fired, err := r.Eval.RunPass(ctx, &evaluator.Override{Asset: a.ID, Price: price})
	if err != nil {
		log.Printf("[ERROR] manual pass: %v", err)
		return "Manual check failed. Please try again."
	}
	return fmt.Sprintf("Manual check done for %s @ %s (%d alert(s) triggered)",
		a.Symbol, notifier.FormatUSD(price), len(fired))
}

func (r *Router) sendPrices(ctx context.Context) string {
	if err := r.Eval.Broadcast(ctx); err != nil {
		log.Printf("[ERROR] manual broadcast: %v", err)
		return "Failed to send market update."
	}
	return "✅ Sent market update to all subscribers!"
}
