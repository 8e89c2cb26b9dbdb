package evaluator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
	"PricePilot/internal/pricecache"
	"PricePilot/internal/pricesource"
	"PricePilot/internal/store"
)

type sentMsg struct {
	To   string
	Text string
}

// fakeSink records deliveries and can fail per recipient.
type fakeSink struct {
	mu      sync.Mutex
	Sent    []sentMsg
	FailFor map[string]bool
}

func (f *fakeSink) Send(_ context.Context, recipientID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFor[recipientID] {
		return errors.New("delivery refused")
	}
	f.Sent = append(f.Sent, sentMsg{To: recipientID, Text: text})
	return nil
}

type fixture struct {
	Eval     *Evaluator
	Store    *store.SQLiteStore
	Sink     *fakeSink
	Cache    *pricecache.Cache
	Provider *pricesource.MockProvider
}

func newFixture(t *testing.T, quotes map[string]model.Quote) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cache := pricecache.New(20)
	provider := &pricesource.MockProvider{Quotes: quotes}
	resolver := pricesource.NewResolver(cache, 0, provider)
	sink := &fakeSink{FailFor: map[string]bool{}}

	return &fixture{
		Eval:     New(st, resolver, sink, asset.NewDefaultRegistry()),
		Store:    st,
		Sink:     sink,
		Cache:    cache,
		Provider: provider,
	}
}

func mustCreate(t *testing.T, st store.Store, a model.Alert) model.Alert {
	t.Helper()
	created, err := st.CreateAlert(context.Background(), a)
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return created
}

func floatPtr(v float64) *float64 { return &v }

func TestTargetPriceTriggersOnce(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{"bitcoin": {Price: 70500}})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: 70000,
	})

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 1 {
		t.Fatalf("expected 1 triggered alert, got %d", len(fired))
	}

	if len(f.Sink.Sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.Sink.Sent))
	}
	msg := f.Sink.Sent[0]
	if msg.To != "u1" {
		t.Errorf("expected recipient u1, got %s", msg.To)
	}
	if !strings.Contains(msg.Text, "Bitcoin") || !strings.Contains(msg.Text, "70,000.00") {
		t.Errorf("message missing coin or target context: %q", msg.Text)
	}

	left, err := f.Store.ListUntriggered(ctx)
	if err != nil {
		t.Fatalf("list untriggered: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("triggered alert should be retired, %d still pending", len(left))
	}
}

func TestPassIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{"bitcoin": {Price: 70500}})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: 70000,
	})

	if _, err := f.Eval.RunPass(ctx, nil); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("second pass must not re-trigger, got %d", len(fired))
	}
	if len(f.Sink.Sent) != 1 {
		t.Errorf("expected exactly 1 notification across both passes, got %d", len(f.Sink.Sent))
	}
}

func TestPriceRangePredicate(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		trigger bool
	}{
		{"inside range", 3200, true},
		{"at low bound", 3000, true},
		{"at high bound", 3500, true},
		{"above range", 3600, false},
		{"below range", 2900, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]model.Quote{"ethereum": {Price: tt.price}})
			mustCreate(t, f.Store, model.Alert{
				UserID: "u1", Asset: "ethereum", Kind: model.KindPriceRange, Low: 3000, High: 3500,
			})

			fired, err := f.Eval.RunPass(context.Background(), nil)
			if err != nil {
				t.Fatalf("pass failed: %v", err)
			}
			if got := len(fired) == 1; got != tt.trigger {
				t.Errorf("price %.0f: expected trigger=%v, got %v", tt.price, tt.trigger, got)
			}
		})
	}
}

func TestUnavailablePriceSkipsAlert(t *testing.T) {
	// No quote for solana, no cache entry either.
	f := newFixture(t, map[string]model.Quote{})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "solana", Kind: model.KindTargetPrice, Target: 100,
	})

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("expected no triggers, got %d", len(fired))
	}
	if len(f.Sink.Sent) != 0 {
		t.Errorf("expected no notifications, got %d", len(f.Sink.Sent))
	}

	left, err := f.Store.ListUntriggered(ctx)
	if err != nil {
		t.Fatalf("list untriggered: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("skipped alert must remain pending for the next pass, got %d", len(left))
	}
}

func TestOverrideScopedToSingleAsset(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{
		"bitcoin":  {Price: 60000}, // live price would NOT trigger
		"ethereum": {Price: 4100},  // live price does trigger
	})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: 70000,
	})
	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "ethereum", Kind: model.KindTargetPrice, Target: 4000,
	})

	fired, err := f.Eval.RunPass(ctx, &Override{Asset: "bitcoin", Price: 70500})
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 2 {
		t.Fatalf("expected both alerts to fire, got %d", len(fired))
	}

	// The override is an observation: it must land in the cache.
	last, ok := f.Cache.Latest("bitcoin")
	if !ok || last.Price != 70500 {
		t.Errorf("expected cached override 70500, got %+v (ok=%v)", last, ok)
	}
	// Only ethereum needed a live fetch.
	if f.Provider.Calls != 1 {
		t.Errorf("expected exactly 1 live fetch, got %d", f.Provider.Calls)
	}
}

func TestPercentChangePredicate(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{
		"bitcoin": {Price: 64000, PctChange24h: floatPtr(-6.2)},
	})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindPercentChange, Threshold: 5,
	})

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 1 {
		t.Errorf("|−6.2| >= 5 should trigger, got %d", len(fired))
	}
}

func TestMetricAlertSkippedWithoutMetric(t *testing.T) {
	// Provider supplies a price but no 24h metrics.
	f := newFixture(t, map[string]model.Quote{"bitcoin": {Price: 64000}})
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindPercentChange, Threshold: 5,
	})
	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindVolumeChange, Threshold: 10,
	})

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("metric alerts without metrics must be skipped, got %d triggers", len(fired))
	}

	left, _ := f.Store.ListUntriggered(ctx)
	if len(left) != 2 {
		t.Errorf("skipped metric alerts must remain pending, got %d", len(left))
	}
}

func TestDeliveryFailureIsolated(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{"bitcoin": {Price: 70500}})
	f.Sink.FailFor["u1"] = true
	ctx := context.Background()

	mustCreate(t, f.Store, model.Alert{
		UserID: "u1", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: 70000,
	})
	mustCreate(t, f.Store, model.Alert{
		UserID: "u2", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: 69000,
	})

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 2 {
		t.Fatalf("both alerts should trigger regardless of delivery, got %d", len(fired))
	}

	// u2 still got their notification.
	if len(f.Sink.Sent) != 1 || f.Sink.Sent[0].To != "u2" {
		t.Errorf("expected exactly one delivery to u2, got %+v", f.Sink.Sent)
	}

	// Trigger state is durable for both: no re-delivery attempt next pass.
	left, _ := f.Store.ListUntriggered(ctx)
	if len(left) != 0 {
		t.Errorf("both alerts must be marked triggered, %d pending", len(left))
	}
}

func TestEvaluationOrderIrrelevantPerDistinctAsset(t *testing.T) {
	f := newFixture(t, map[string]model.Quote{"bitcoin": {Price: 70500}})
	ctx := context.Background()

	// Three alerts on the same asset: one resolution, three evaluations.
	for _, target := range []float64{68000, 69000, 70000} {
		mustCreate(t, f.Store, model.Alert{
			UserID: "u1", Asset: "bitcoin", Kind: model.KindTargetPrice, Target: target,
		})
	}

	fired, err := f.Eval.RunPass(ctx, nil)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(fired) != 3 {
		t.Errorf("expected 3 triggers, got %d", len(fired))
	}
	if f.Provider.Calls != 1 {
		t.Errorf("expected a single fetch per distinct asset, got %d", f.Provider.Calls)
	}
}
