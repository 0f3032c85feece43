package sink

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/futterwatch/futterwatch/internal/match"
	"github.com/futterwatch/futterwatch/internal/offer"
)

func result(brand string, pricePerKg float64) match.CheapestVariantResult {
	return match.CheapestVariantResult{
		Primary: offer.Offer{
			ExternalID:         "zooplus:1",
			Brand:              brand,
			CurrentPrice:       1,
			OriginalPricePerKg: pricePerKg,
			Site:               offer.SiteZooplus,
		},
	}
}

func TestLogAlerterPreference(t *testing.T) {
	a := NewLogAlerter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	tests := []struct {
		name string
		res  match.CheapestVariantResult
		pref AlertPreference
		want bool
	}{
		{"within ceiling", result("Leonardo", 4.5), AlertPreference{MaxPricePerKg: 6}, true},
		{"over ceiling", result("Leonardo", 7.5), AlertPreference{MaxPricePerKg: 6}, false},
		{"unknown price per kg", result("Leonardo", 0), AlertPreference{MaxPricePerKg: 6}, false},
		{"watched brand", result("Leonardo", 4.5), AlertPreference{Brands: []string{"Leonardo"}}, true},
		{"unwatched brand", result("Felix", 4.5), AlertPreference{Brands: []string{"Leonardo"}}, false},
		{"no constraints", result("Felix", 4.5), AlertPreference{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivered, err := a.Alert(ctx, tt.res, tt.pref)
			if err != nil {
				t.Fatalf("Alert: %v", err)
			}
			if delivered != tt.want {
				t.Errorf("delivered = %v, want %v", delivered, tt.want)
			}
		})
	}
}

func TestNoopSinkCountsFirstSightings(t *testing.T) {
	s := NewNoopSink()
	ctx := context.Background()
	chunk := []offer.Offer{
		{ExternalID: "zooplus:1", Site: offer.SiteZooplus, CurrentPrice: 1},
		{ExternalID: "bitiba:1", Site: offer.SiteBitiba, CurrentPrice: 1},
	}

	res, err := s.StoreChunk(ctx, chunk)
	if err != nil || res.NewProducts != 2 {
		t.Fatalf("first write = (%d, %v), want (2, nil)", res.NewProducts, err)
	}
	res, err = s.StoreChunk(ctx, chunk)
	if err != nil || res.NewProducts != 0 {
		t.Fatalf("repeat write = (%d, %v), want (0, nil)", res.NewProducts, err)
	}
}
