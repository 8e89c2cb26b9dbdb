package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"PricePilot/internal/asset"
	"PricePilot/internal/command"
	"PricePilot/internal/config"
	"PricePilot/internal/evaluator"
	"PricePilot/internal/notifier"
	"PricePilot/internal/pricecache"
	"PricePilot/internal/pricesource"
	"PricePilot/internal/scheduler"
	"PricePilot/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PricePilot starting...")

	// Optional .env for local runs
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Asset registry and price cache
	registry := asset.NewDefaultRegistry()
	cache := pricecache.New(pricecache.DefaultHistorySize)

	// Price resolver: CoinGecko then CoinPaprika, CMC as key-gated fallback
	resolver := pricesource.NewResolver(cache, cfg.RetryDelay(),
		pricesource.NewCoinGeckoProvider(cfg.ProviderTimeout(), cfg.Proxy),
		pricesource.NewCoinPaprikaProvider(cfg.ProviderTimeout(), cfg.Proxy),
	)
	if cfg.Providers.CoinMarketCapKey != "" {
		resolver.Fallback = pricesource.NewCoinMarketCapProvider(cfg.Providers.CoinMarketCapKey, cfg.ProviderTimeout(), cfg.Proxy)
		log.Println("[INFO] coinmarketcap fallback enabled")
	}

	// Durable alert store
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] init sqlite store: %v", err)
	}
	defer st.Close()

	// Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Proxy)

	// Evaluator
	ev := evaluator.New(st, resolver, tn, registry)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduler
	sched := scheduler.NewScheduler(ctx, ev)
	if err := sched.Register(cfg.Schedule.EvalCron, cfg.Schedule.BroadcastCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Command surface
	router := command.NewRouter(registry, st, resolver, cache, ev)
	go tn.StartPolling(ctx, router.Handle)
	log.Println("[INFO] Telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing evaluation pass now")
		go sched.RunEvaluationNow(nil)
	}

	log.Println("[INFO] PricePilot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] PricePilot stopped")
}
