// Package sink holds the collaborator boundary of a run: persistence of
// normalized offers and delivery of cheapest-offer alerts.
package sink

import (
	"context"
	"log/slog"

	"github.com/futterwatch/futterwatch/internal/match"
	"github.com/futterwatch/futterwatch/internal/offer"
	"github.com/futterwatch/futterwatch/internal/sites"
)

// StoreResult reports what one chunk write changed.
type StoreResult struct {
	// NewProducts counts offers whose (externalId, site) key was not stored
	// before this write.
	NewProducts int
}

// Sink persists offer chunks. StoreChunk must be idempotent per
// (externalId, site): repeated writes update the product entity and append
// a new price observation.
type Sink interface {
	StoreChunk(ctx context.Context, chunk []offer.Offer) (StoreResult, error)
	Close(ctx context.Context) error
}

// AlertPreference is one recipient's interest: a per-kg ceiling and an
// optional brand watch list.
type AlertPreference struct {
	MaxPricePerKg float64
	Brands        []string
}

// Alerter delivers one cheapest-offer result. The returned bool reports
// whether a notification went out; a result outside the recipient's
// preference is skipped with (false, nil), and a missing delivery route is
// ErrNoAlertRoute rather than a failure.
type Alerter interface {
	Alert(ctx context.Context, res match.CheapestVariantResult, pref AlertPreference) (bool, error)
}

// wants reports whether a result falls inside a recipient's preference.
func wants(res match.CheapestVariantResult, pref AlertPreference) bool {
	ppkg := res.Primary.PricePerKg()
	if pref.MaxPricePerKg > 0 && (ppkg <= 0 || ppkg > pref.MaxPricePerKg) {
		return false
	}
	if len(pref.Brands) > 0 && !sites.MatchesWatchedBrand(res.Primary.Brand, pref.Brands) {
		return false
	}
	return true
}

// NoopSink discards chunks; used when storage is disabled. Every offer
// counts as new exactly once per process so run summaries stay meaningful.
type NoopSink struct {
	seen map[string]struct{}
}

func NewNoopSink() *NoopSink {
	return &NoopSink{seen: make(map[string]struct{})}
}

func (n *NoopSink) StoreChunk(_ context.Context, chunk []offer.Offer) (StoreResult, error) {
	var res StoreResult
	for _, o := range chunk {
		key := o.ExternalID + "|" + string(o.Site)
		if _, ok := n.seen[key]; !ok {
			n.seen[key] = struct{}{}
			res.NewProducts++
		}
	}
	return res, nil
}

func (n *NoopSink) Close(context.Context) error { return nil }

// LogAlerter writes alerts to the log; the delivery route for CLI runs.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With("component", "alerter")}
}

func (l *LogAlerter) Alert(_ context.Context, res match.CheapestVariantResult, pref AlertPreference) (bool, error) {
	if !wants(res, pref) {
		return false, nil
	}
	attrs := []any{
		"brand", res.Primary.Brand,
		"name", res.Primary.Name,
		"site", string(res.Primary.Site),
		"price", res.Primary.CurrentPrice,
		"pricePerKg", res.Primary.PricePerKg(),
		"onSale", res.Primary.IsOnSale,
		"url", res.Primary.URL,
		"alternates", len(res.Alternates),
	}
	l.logger.Info("deal", attrs...)
	return true, nil
}
