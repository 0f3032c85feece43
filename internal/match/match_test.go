package match

import (
	"reflect"
	"testing"

	"github.com/futterwatch/futterwatch/internal/offer"
)

func testOffer(site offer.Site, id, brand, size string, pricePerKg float64) offer.Offer {
	return offer.Offer{
		ExternalID:         string(site) + ":" + id,
		Name:               brand + " Testfutter " + size,
		Brand:              brand,
		Size:               size,
		CurrentPrice:       1,
		OriginalPricePerKg: pricePerKg,
		URL:                "https://example.test/" + id,
		Site:               site,
	}
}

func TestCheapestDeduplicatesPerSite(t *testing.T) {
	offers := []offer.Offer{
		testOffer(offer.SiteZooplus, "1", "Leonardo", "6x400g", 5.20),
		testOffer(offer.SiteZooplus, "2", "Leonardo", "6x400g", 4.80),
	}
	results := Cheapest(offers)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Primary.ExternalID != "zooplus:2" {
		t.Errorf("primary = %q, want the cheaper zooplus:2", results[0].Primary.ExternalID)
	}
	if len(results[0].Alternates) != 0 {
		t.Errorf("same-site duplicate must collapse, got %d alternates", len(results[0].Alternates))
	}
}

func TestCheapestCrossSiteGrouping(t *testing.T) {
	offers := []offer.Offer{
		testOffer(offer.SiteZooplus, "a", "Leonardo", "6x400g", 4.50),
		testOffer(offer.SiteBitiba, "b", "Leonardo", "6x400g", 4.10),
	}
	results := Cheapest(offers)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 cross-site group", len(results))
	}
	res := results[0]
	if res.Primary.Site != offer.SiteBitiba {
		t.Errorf("primary site = %q, want bitiba (4.10 < 4.50)", res.Primary.Site)
	}
	if len(res.Alternates) != 1 || res.Alternates[0].Site != offer.SiteZooplus {
		t.Fatalf("alternates = %+v, want one zooplus entry", res.Alternates)
	}
	if res.Alternates[0].PricePerKg != 4.50 {
		t.Errorf("alternate price per kg = %v, want 4.50", res.Alternates[0].PricePerKg)
	}
}

func TestCheapestResultOrderAndDeterminism(t *testing.T) {
	offers := []offer.Offer{
		testOffer(offer.SiteZooplus, "exp", "MjAMjAM", "6x200g", 9.00),
		testOffer(offer.SiteZooplus, "mid", "Leonardo", "6x400g", 5.00),
		testOffer(offer.SiteBitiba, "low", "Catz Finefood", "85g", 3.50),
	}
	first := Cheapest(offers)
	if len(first) != 3 {
		t.Fatalf("got %d results, want 3", len(first))
	}
	if first[0].Primary.ExternalID != "bitiba:low" || first[2].Primary.ExternalID != "zooplus:exp" {
		t.Errorf("results not ascending by primary price per kg: %q .. %q",
			first[0].Primary.ExternalID, first[2].Primary.ExternalID)
	}

	reversed := []offer.Offer{offers[2], offers[1], offers[0]}
	second := Cheapest(reversed)
	if !reflect.DeepEqual(first, second) {
		t.Error("matching must be deterministic under input re-ordering")
	}
}

func TestCheapestTieBreaksOnExternalID(t *testing.T) {
	a := testOffer(offer.SiteZooplus, "aaa", "Leonardo", "400g", 5.00)
	b := testOffer(offer.SiteZooplus, "bbb", "Leonardo", "400g", 5.00)

	res1 := Cheapest([]offer.Offer{a, b})
	res2 := Cheapest([]offer.Offer{b, a})
	if res1[0].Primary.ExternalID != "zooplus:aaa" {
		t.Errorf("primary = %q, want lexically smaller external ID", res1[0].Primary.ExternalID)
	}
	if !reflect.DeepEqual(res1, res2) {
		t.Error("tie-break must not depend on input order")
	}
}

func TestCheapestAlternateSiteOrder(t *testing.T) {
	offers := []offer.Offer{
		testOffer(offer.SiteZoo24, "z24", "Leonardo", "400g", 6.00),
		testOffer(offer.SiteZooplus, "zp", "Leonardo", "400g", 5.50),
		testOffer(offer.SiteBitiba, "bit", "Leonardo", "400g", 5.40),
		testOffer(offer.SiteFressnapf, "fn", "Leonardo", "400g", 5.30),
	}
	results := Cheapest(offers)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Primary.Site != offer.SiteFressnapf {
		t.Fatalf("primary site = %q, want fressnapf", results[0].Primary.Site)
	}
	var order []offer.Site
	for _, alt := range results[0].Alternates {
		order = append(order, alt.Site)
	}
	want := []offer.Site{offer.SiteZooplus, offer.SiteBitiba, offer.SiteZoo24}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("alternate order = %v, want %v", order, want)
	}
}

func TestCheapestUnknownSizeCollapses(t *testing.T) {
	// Offers without a resolvable size share the "nosize" key per brand and
	// must still group within that brand, not across brands.
	offers := []offer.Offer{
		testOffer(offer.SiteZooplus, "1", "Leonardo", "", 5.00),
		testOffer(offer.SiteBitiba, "2", "Leonardo", "", 4.00),
		testOffer(offer.SiteZooplus, "3", "Felix", "", 3.00),
	}
	results := Cheapest(offers)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (one per brand)", len(results))
	}
}

func TestCheapestUnresolvablePricePerKgSortsLast(t *testing.T) {
	offers := []offer.Offer{
		testOffer(offer.SiteZooplus, "nop", "Leonardo", "400g", 0),
		testOffer(offer.SiteBitiba, "ok", "MjAMjAM", "400g", 4.00),
	}
	results := Cheapest(offers)
	if results[0].Primary.ExternalID != "bitiba:ok" {
		t.Errorf("offer without price per kg sorted before a priced one")
	}
}
