package offer

import "testing"

func TestValid(t *testing.T) {
	base := Offer{ExternalID: "zooplus:1", URL: "https://example.test/1", CurrentPrice: 1.99}

	if !base.Valid() {
		t.Error("positive price with ID and URL must be valid")
	}

	noPrice := base
	noPrice.CurrentPrice = 0
	if noPrice.Valid() {
		t.Error("offer without a price must be invalid")
	}

	inverted := base
	inverted.OriginalPricePerKg = 4.0
	inverted.ReducedPricePerKg = 5.0
	if inverted.Valid() {
		t.Error("reduced per-kg above original must be invalid")
	}

	reduced := base
	reduced.OriginalPricePerKg = 5.0
	reduced.ReducedPricePerKg = 4.0
	if !reduced.Valid() {
		t.Error("reduced per-kg below original must be valid")
	}

	noID := base
	noID.ExternalID = ""
	if noID.Valid() {
		t.Error("offer without an external ID must be invalid")
	}
}

func TestNormalizeBrand(t *testing.T) {
	tests := []struct{ in, want string }{
		{"MAC´s", "mac's"},
		{"Cat’s Love", "cat's love"},
		{"Lily`s Kitchen", "lily's kitchen"},
		{"LEONARDO", "leonardo"},
	}
	for _, tt := range tests {
		if got := NormalizeBrand(tt.in); got != tt.want {
			t.Errorf("NormalizeBrand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name  string
		offer Offer
		want  string
	}{
		{
			"size field",
			Offer{Brand: "Leonardo", Size: "6 x 400 g"},
			"leonardo|6x400g",
		},
		{
			"multi-pack from name",
			Offer{Brand: "MAC's", Name: "MAC's Cat Huhn 6 x 400 g"},
			"macs|6x400g",
		},
		{
			"single weight from name",
			Offer{Brand: "Catz Finefood", Name: "Catz Finefood No. 103 85 g"},
			"catzfinefood|85g",
		},
		{
			"no size anywhere",
			Offer{Brand: "Felix", Name: "Felix Sensations"},
			"felix|nosize",
		},
		{
			"unknown brand collapses",
			Offer{Name: "Mystery Morsels 400 g"},
			"unknown|400g",
		},
		{
			"apostrophe variants produce one key",
			Offer{Brand: "Cat’s Love", Size: "400g"},
			"catslove|400g",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.offer.MatchKey(); got != tt.want {
				t.Errorf("MatchKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatchKeyEqualAcrossSites(t *testing.T) {
	a := Offer{Brand: "Leonardo", Size: "6x400g", Site: SiteZooplus}
	b := Offer{Brand: "LEONARDO", Name: "LEONARDO All Meat 6 x 400 g", Site: SiteBitiba}
	if a.MatchKey() != b.MatchKey() {
		t.Errorf("same product on two sites produced different keys: %q vs %q", a.MatchKey(), b.MatchKey())
	}
}
