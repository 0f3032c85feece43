package sites

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/offer"
)

func newTestZooroyal(t *testing.T) *zooroyalSite {
	t.Helper()
	return &zooroyalSite{logger: testLogger()}
}

func TestZooroyalConvertTileDiscounted(t *testing.T) {
	z := newTestZooroyal(t)
	tile := zooroyalTileData{
		URL:       "https://www.zooroyal.de/mac-s-cat-adult-huhn-herz-400-g?sDetail=2&sponsored=display123abc",
		Brand:     "MAC's",
		Name:      "MAC's Cat Adult Huhn & Herz",
		AriaLabel: "MAC's Cat Adult Huhn & Herz, 400g, 1,89 EUR",
		Size:      "400g",
		Badges:    []string{"Neu", "- 20 %"},
	}

	o, err := z.convertTile(tile)
	if err != nil {
		t.Fatalf("convertTile: %v", err)
	}
	if o.ExternalID != "zooroyal:mac-s-cat-adult-huhn-herz-400-g:2" {
		t.Errorf("ExternalID = %q", o.ExternalID)
	}
	if o.BaseProductID != "mac-s-cat-adult-huhn-herz-400-g" {
		t.Errorf("BaseProductID = %q", o.BaseProductID)
	}
	if o.CurrentPrice != 1.89 {
		t.Errorf("CurrentPrice = %v, want 1.89", o.CurrentPrice)
	}
	if o.OriginalPrice != 2.36 {
		t.Errorf("OriginalPrice = %v, want 2.36 (back-computed from -20%%)", o.OriginalPrice)
	}
	if !o.IsOnSale || o.SaleTag != "-20%" {
		t.Errorf("sale state = (%v, %q), want (true, -20%%)", o.IsOnSale, o.SaleTag)
	}
	if o.WeightGrams != 400 {
		t.Errorf("WeightGrams = %d, want 400", o.WeightGrams)
	}
	if o.OriginalPricePerKg != 5.9 {
		t.Errorf("OriginalPricePerKg = %v, want 5.9", o.OriginalPricePerKg)
	}
	if o.ReducedPricePerKg != 4.73 {
		t.Errorf("ReducedPricePerKg = %v, want 4.73", o.ReducedPricePerKg)
	}
	if o.Site != offer.SiteZooroyal {
		t.Errorf("Site = %q", o.Site)
	}
	if wantURL := "https://www.zooroyal.de/mac-s-cat-adult-huhn-herz-400-g?sDetail=2"; o.URL != wantURL {
		t.Errorf("URL = %q, want sponsored tracking stripped: %q", o.URL, wantURL)
	}
}

func TestZooroyalConvertTileRegular(t *testing.T) {
	z := newTestZooroyal(t)
	tile := zooroyalTileData{
		URL:       "https://www.zooroyal.de/leonardo-all-meat-kitten-400-g",
		Brand:     "LEONARDO",
		Name:      "LEONARDO All Meat Kitten",
		AriaLabel: "LEONARDO All Meat Kitten 400g 2,19 EUR",
		Size:      "400g",
	}

	o, err := z.convertTile(tile)
	if err != nil {
		t.Fatalf("convertTile: %v", err)
	}
	if o.IsOnSale {
		t.Error("tile without a discount badge must not be on sale")
	}
	if o.CurrentPrice != 2.19 || o.OriginalPrice != 2.19 {
		t.Errorf("prices = (%v, %v), want (2.19, 2.19)", o.CurrentPrice, o.OriginalPrice)
	}
	if o.ExternalID != "zooroyal:leonardo-all-meat-kitten-400-g" {
		t.Errorf("ExternalID = %q", o.ExternalID)
	}
	if o.ReducedPricePerKg != 0 {
		t.Errorf("ReducedPricePerKg = %v, want 0 for a regular price", o.ReducedPricePerKg)
	}
}

func TestZooroyalConvertTileNoPrice(t *testing.T) {
	z := newTestZooroyal(t)
	tile := zooroyalTileData{
		URL:       "https://www.zooroyal.de/some-product",
		Name:      "Some Product 400g",
		AriaLabel: "Some Product 400g",
	}
	if _, err := z.convertTile(tile); err == nil {
		t.Fatal("tile without an aria-label price must be rejected")
	}
}

func TestParseAriaPrice(t *testing.T) {
	tests := []struct {
		label string
		want  float64
		ok    bool
	}{
		{"MAC's Cat Adult 400g 1,89 EUR", 1.89, true},
		{"Produkt, 12,49 EUR", 12.49, true},
		{"Produkt 12.49 EUR", 12.49, true},
		{"Produkt ohne Preis", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAriaPrice(tt.label)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseAriaPrice(%q) = (%v, %v), want (%v, %v)", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBadgeDiscount(t *testing.T) {
	if pct, ok := parseBadgeDiscount([]string{"Neu", "- 20 %"}); !ok || pct != 20 {
		t.Errorf("got (%d, %v), want (20, true)", pct, ok)
	}
	if pct, ok := parseBadgeDiscount([]string{"-15%"}); !ok || pct != 15 {
		t.Errorf("got (%d, %v), want (15, true)", pct, ok)
	}
	if _, ok := parseBadgeDiscount([]string{"Neu", "Topseller"}); ok {
		t.Error("non-discount badges must not report a discount")
	}
	if _, ok := parseBadgeDiscount(nil); ok {
		t.Error("no badges, no discount")
	}
}

func TestZooroyalBrandSlugs(t *testing.T) {
	z := newTestZooroyal(t)

	slugs := z.brandSlugs(BrandRequest{Brands: []string{"Leonardo"}})
	if len(slugs) != 1 || slugs[0] != "leonardo" {
		t.Fatalf("exact lookup = %v, want [leonardo]", slugs)
	}

	slugs = z.brandSlugs(BrandRequest{Brands: []string{"MAC's Vetcare Monoprotein"}})
	if len(slugs) != 1 || slugs[0] != "mac-s-vetcare" {
		t.Fatalf("substring fallback = %v, want [mac-s-vetcare]", slugs)
	}

	slugs = z.brandSlugs(BrandRequest{Brands: []string{"Unbekannte Marke"}})
	if len(slugs) != 0 {
		t.Fatalf("unknown brand resolved to %v, want none", slugs)
	}

	slugs = z.brandSlugs(BrandRequest{Brands: []string{"Leonardo"}, IncludeDefaultBrands: true})
	if len(slugs) != len(zooroyalQualitySlugs) {
		t.Fatalf("quality set with duplicate watch entry = %d slugs, want %d", len(slugs), len(zooroyalQualitySlugs))
	}
}

func TestZooroyalBrandScanCancelStopsWorkers(t *testing.T) {
	var calls atomic.Int64
	z := &zooroyalSite{
		logger: testLogger(),
		cfg: &config.Config{Scraper: config.Scraper{
			DefaultMaxPricePerKg: 10,
			BrandConcurrency:     3,
		}},
		tiles: func(_ context.Context, _ string) ([]zooroyalTileData, error) {
			n := calls.Add(1)
			return []zooroyalTileData{{
				URL:       fmt.Sprintf("https://www.zooroyal.de/futter-%d-400-g", n),
				Brand:     "Leonardo",
				Name:      fmt.Sprintf("Leonardo All Meat %d", n),
				AriaLabel: fmt.Sprintf("Leonardo All Meat %d, 400g, 1,89 EUR", n),
				Size:      "400g",
			}}, nil
		},
	}

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan []offer.Offer)
	errc := make(chan error, 1)
	go func() {
		errc <- z.FetchBrandOffers(ctx, BrandRequest{IncludeDefaultBrands: true, MaxPages: 50}, out)
	}()

	// The first chunk proves producers are running, then nobody reads out.
	<-out
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchBrandOffers returned %v, want context.Canceled", err)
	}

	// Every per-slug goroutine must unwind, including the ones parked on
	// the semaphore and the completion-marker sends.
	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > before+2 {
		if time.Now().After(deadline) {
			t.Fatalf("%d goroutines still alive after cancel, baseline %d",
				runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
