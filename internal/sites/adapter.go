// Package sites contains the five hand-written site adapters and the
// contract they implement. Adapters never materialize a whole site scan:
// they stream non-empty chunks of normalized offers so downstream stages can
// act on early results while slow sites are still fetching.
package sites

import (
	"context"
	"strings"

	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// priceHeadroom widens the scrape ceiling so items whose layout-reported
// price drifts from the computed one, or that may be discounted into range,
// are still captured.
const priceHeadroom = 1.3

// earlyStopStreak ends a price-sorted scan after this many consecutive
// qualifying items above the widened ceiling. This leans on the site
// honoring its advertised ascending price sort; if the sort is violated the
// scan may stop early and truncate coverage.
const earlyStopStreak = 10

// BrandRequest parameterizes a brand-partitioned scan.
type BrandRequest struct {
	// Brands is the user's watch list; nil means quality brands only.
	Brands []string

	// MaxPricePerKg is the per-kg ceiling of interest. Adapters scan up to
	// the configured default when this is lower, and always apply the
	// headroom multiplier on top.
	MaxPricePerKg float64

	// MaxPages bounds pagination per brand or per bulk scan.
	MaxPages int

	// IncludeDefaultBrands merges the always-included quality brand set
	// into the scan.
	IncludeDefaultBrands bool
}

// Adapter is implemented once per site. Both fetch operations are producers:
// they send successive non-empty offer chunks to out and return when the
// scan is exhausted or the context ends. An empty stream is a valid terminal
// state (brand not sold on that site). Adapters must not close out; the
// orchestrator owns the channel.
type Adapter interface {
	Site() offer.Site

	FetchBrandOffers(ctx context.Context, req BrandRequest, out chan<- []offer.Offer) error

	FetchReducedOffers(ctx context.Context, brands []string, out chan<- []offer.Offer) error

	// IsWetFood classifies a product for this site. Adapters whose fetches
	// are already scoped to a wet-food category may relax the default
	// include logic to exclude-only.
	IsWetFood(name, url string) bool
}

// emit sends one chunk, honoring cancellation. Empty chunks are dropped so a
// chunk stays non-empty by construction.
func emit(ctx context.Context, out chan<- []offer.Offer, chunk []offer.Offer) error {
	if len(chunk) == 0 {
		return nil
	}
	select {
	case out <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scanBrands merges the user's watch list with the quality brand set when
// requested, dropping duplicates case-insensitively.
func scanBrands(req BrandRequest) []string {
	var merged []string
	seen := make(map[string]struct{})
	add := func(b string) {
		key := offer.NormalizeBrand(b)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, b)
	}
	if req.IncludeDefaultBrands {
		for _, b := range extract.QualityBrands {
			add(b)
		}
	}
	for _, b := range req.Brands {
		add(b)
	}
	return merged
}

// canonicalBrand maps user input onto the known brand table's casing so
// server-side filters see the exact spelling the site indexes.
func canonicalBrand(b string) string {
	for _, known := range extract.KnownBrands {
		if strings.EqualFold(b, known) {
			return known
		}
	}
	for _, known := range extract.QualityBrands {
		if strings.EqualFold(b, known) {
			return known
		}
	}
	return b
}

// MatchesWatchedBrand reports whether a product's displayed brand matches
// any watched brand. Beyond exact comparison it accepts bidirectional
// substring matches and shared first words ("MAC's Cat" matches "MAC's",
// "animonda Carny" matches "Animonda"). The substring fallback can match
// unrelated brands whose names contain each other.
func MatchesWatchedBrand(productBrand string, watched []string) bool {
	if productBrand == "" {
		return false
	}
	productNorm := offer.NormalizeBrand(productBrand)

	for _, w := range watched {
		watchedNorm := offer.NormalizeBrand(w)
		if watchedNorm == "" {
			continue
		}
		if strings.Contains(productNorm, watchedNorm) || strings.Contains(watchedNorm, productNorm) {
			return true
		}

		productFirst := firstWord(productNorm)
		watchedFirst := firstWord(watchedNorm)
		if productFirst != "" && watchedFirst != "" {
			if productFirst == watchedFirst {
				return true
			}
			if strings.HasPrefix(watchedNorm, productFirst) || strings.HasPrefix(productFirst, watchedNorm) {
				return true
			}
		}
	}
	return false
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// scrapeCeiling returns the effective per-kg ceiling for a scan: the larger
// of the user's ceiling and the configured default.
func scrapeCeiling(userMax, defaultMax float64) float64 {
	if userMax > defaultMax {
		return userMax
	}
	return defaultMax
}

// overCeiling reports whether an offer's effective per-kg price exceeds the
// widened ceiling. Offers with no resolvable per-kg price are kept.
func overCeiling(o *offer.Offer, ceiling float64) bool {
	ppkg := o.PricePerKg()
	return ppkg > 0 && ppkg > ceiling*priceHeadroom
}
