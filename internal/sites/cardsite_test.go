package sites

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/futterwatch/futterwatch/internal/offer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestZooplus(t *testing.T) *cardSite {
	t.Helper()
	return NewZooplus(nil, nil, testLogger()).(*cardSite)
}

const cardFixture = `
<div class="results">
  <div class="ProductCard_productCard__a1b2">
    <a href="/shop/katzen/katzenfutter/nassfutter/mjamjam/123456?activeVariant=564091.13">
      <h3>MjAMjAM purer Fleischgenuss Huhn 6 x 200 g</h3>
    </a>
    <span>-10% Rabatt</span>
    <span>11,99 €</span>
    <span>11,39 € mit Abo</span>
    <span>9,99 € / kg</span>
  </div>
  <div class="ProductCard_productCard__c3d4">
    <a href="/shop/katzen/katzenfutter/nassfutter/catz_finefood/987654">
      <h3>catz finefood No. 103 Lachs 85 g</h3>
    </a>
    <span>1,99 €</span>
    <span>23,41 € / kg</span>
  </div>
  <div class="ProductCard_productCard__e5f6">
    <a href="/shop/katzen/katzenfutter/nassfutter/feline/111222">
      <h3>Feline Tester Huhn 400 g</h3>
    </a>
    <span>Nicht lieferbar</span>
    <span>2,49 €</span>
  </div>
  <div class="ProductCard_productCard__g7h8">
    <a href="/shop/katzen/katzenfutter/nassfutter/noprice/333444">
      <h3>Grau Katzentraum Huhn 400 g</h3>
    </a>
  </div>
</div>`

func TestParseCards(t *testing.T) {
	site := newTestZooplus(t)
	offers, err := site.parseCards("https://www.zooplus.de/shop/katzen", cardFixture)
	if err != nil {
		t.Fatalf("parseCards: %v", err)
	}

	if len(offers) != 2 {
		t.Fatalf("parseCards returned %d offers, want 2 (unavailable and priceless cards skipped)", len(offers))
	}

	first := offers[0]
	if first.ExternalID != "zooplus:564091.13" {
		t.Errorf("ExternalID = %q, want zooplus:564091.13", first.ExternalID)
	}
	if first.BaseProductID != "564091" {
		t.Errorf("BaseProductID = %q, want 564091", first.BaseProductID)
	}
	if first.CurrentPrice != 10.79 {
		t.Errorf("CurrentPrice = %v, want 10.79 (11,99 minus the 10%% badge)", first.CurrentPrice)
	}
	if first.OriginalPrice != 11.99 {
		t.Errorf("OriginalPrice = %v, want 11.99", first.OriginalPrice)
	}
	if !first.IsOnSale {
		t.Error("discount badge should mark the offer on sale")
	}
	if first.SaleTag != "-10% Rabatt" {
		t.Errorf("SaleTag = %q", first.SaleTag)
	}
	if first.OriginalPricePerKg != 9.99 {
		t.Errorf("OriginalPricePerKg = %v, want 9.99 (Abo per-kg excluded)", first.OriginalPricePerKg)
	}
	if first.ReducedPricePerKg != 8.99 {
		t.Errorf("ReducedPricePerKg = %v, want 8.99", first.ReducedPricePerKg)
	}
	if first.Brand != "MjAMjAM" {
		t.Errorf("Brand = %q, want MjAMjAM", first.Brand)
	}
	if first.Site != offer.SiteZooplus {
		t.Errorf("Site = %q", first.Site)
	}

	second := offers[1]
	if second.ExternalID != "zooplus:987654" {
		t.Errorf("ExternalID = %q, want zooplus:987654", second.ExternalID)
	}
	if second.CurrentPrice != 1.99 || second.OriginalPrice != 1.99 {
		t.Errorf("plain card prices = (%v, %v), want (1.99, 1.99)", second.CurrentPrice, second.OriginalPrice)
	}
	if second.IsOnSale {
		t.Error("card without a discount badge must not be on sale")
	}
	if second.OriginalPricePerKg != 23.41 {
		t.Errorf("OriginalPricePerKg = %v, want 23.41", second.OriginalPricePerKg)
	}
}

func TestParseCardsDryFoodExcluded(t *testing.T) {
	site := newTestZooplus(t)
	html := `<div class="ProductCard_productCard__x">
	  <a href="/shop/katzen/katzenfutter/trockenfutter/acme/555666"><h3>Acme Trockenfutter Huhn 2 kg</h3></a>
	  <span>9,99 €</span>
	</div>`
	offers, err := site.parseCards("https://www.zooplus.de/shop/katzen", html)
	if err != nil {
		t.Fatalf("parseCards: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("dry food card produced %d offers, want 0", len(offers))
	}
}

func TestParseCardsNoTiles(t *testing.T) {
	site := newTestZooplus(t)
	_, err := site.parseCards("https://www.zooplus.de/shop/katzen", `<html><body><p>Keine Treffer</p></body></html>`)
	if !errors.Is(err, offer.ErrNoTiles) {
		t.Fatalf("parseCards error = %v, want ErrNoTiles", err)
	}
	var fe *offer.FetchError
	if !errors.As(err, &fe) || fe.Site != offer.SiteZooplus {
		t.Fatalf("error = %#v, want a FetchError carrying the site", err)
	}
}

func TestExtractIDs(t *testing.T) {
	site := newTestZooplus(t)
	tests := []struct {
		url    string
		rawID  string
		baseID string
	}{
		{"https://www.zooplus.de/shop/katzen/x/y/123456?activeVariant=564091.13", "564091.13", "564091"},
		{"https://www.zooplus.de/shop/katzen/x/y/123456", "123456", "123456"},
		{"https://www.zooplus.de/shop/katzen/x/y/123456?foo=bar", "123456", "123456"},
	}
	for _, tt := range tests {
		rawID, baseID := site.extractIDs(tt.url)
		if rawID != tt.rawID || baseID != tt.baseID {
			t.Errorf("extractIDs(%q) = (%q, %q), want (%q, %q)", tt.url, rawID, baseID, tt.rawID, tt.baseID)
		}
	}
}
