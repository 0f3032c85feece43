package extract

import "testing"

func TestPrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12,99 €", 12.99, true},
		{"4,06€", 4.06, true},
		{"  0,89 € ", 0.89, true},
		{"12.99", 12.99, true},
		{"not a price", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := Price(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Price(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Leonardo All Meat 6 x 400 g Huhn", "6 x 400 g"},
		{"Catz Finefood 85 g Pute", "85 g"},
		{"Happy Cat 1 kg", "1 kg"},
		{"Brühe 250 ml", "250 ml"},
		{"no size here", ""},
	}
	for _, tt := range tests {
		if got := Size(tt.in); got != tt.want {
			t.Errorf("Size(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestWeightGrams(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"6 x 400 g", 2400},
		{"12x200g", 2400},
		{"400 g", 400},
		{"800g", 800},
		{"1,5 kg", 1500},
		{"2 kg", 2000},
		{"no size here", 0},
	}
	for _, tt := range tests {
		if got := WeightGrams(tt.in); got != tt.want {
			t.Errorf("WeightGrams(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestPricePerKg(t *testing.T) {
	if got := PricePerKg(12.00, 2400); got != 5.0 {
		t.Errorf("PricePerKg(12.00, 2400) = %v; want 5.0", got)
	}
	if got := PricePerKg(7.99, 0); got != 0 {
		t.Errorf("PricePerKg with zero grams = %v; want 0", got)
	}
	if got := PricePerKg(9.99, 2400); got != 4.16 {
		t.Errorf("PricePerKg(9.99, 2400) = %v; want 4.16", got)
	}
}

func TestBrandLongestMatchWins(t *testing.T) {
	// "Venandi Animal" must beat shorter brands contained in the same name.
	got := Brand("Venandi Animal Katzenfutter Huhn 400g")
	if got != "Venandi Animal" {
		t.Errorf("Brand = %q; want Venandi Animal", got)
	}
}

func TestBrandWordBoundary(t *testing.T) {
	// A 4-letter brand must not match inside a longer unrelated token.
	if got := Brand("Katzenkorb grauschwarz 40cm"); got != "" {
		t.Errorf("Brand matched inside longer word: %q", got)
	}
	if got := Brand("GRAU Schnurren Huhn 400 g"); got != "GRAU" {
		t.Errorf("Brand = %q; want GRAU", got)
	}
}

func TestBrandApostropheVariants(t *testing.T) {
	for _, name := range []string{
		"MAC's Cat Huhn 400g",
		"MAC´s Cat Huhn 400g",
		"MAC’s Cat Huhn 400g",
	} {
		if got := Brand(name); got != "MAC's" {
			t.Errorf("Brand(%q) = %q; want MAC's", name, got)
		}
	}
}

func TestVariant(t *testing.T) {
	tests := []struct {
		name, brand, size string
		want              string
	}{
		{"MAC's Cat 24x400g - Chicken", "MAC's", "24x400g", "Chicken"},
		{"Leonardo All Meat 6x400g Reich an Huhn", "Leonardo", "6x400g", "Reich an Huhn"},
		{"Animonda Carny 6x400g Rind + Herz", "Animonda Carny", "6x400g", "Rind + Herz"},
		{"Feringa 400g", "Feringa", "400g", ""},
	}
	for _, tt := range tests {
		if got := Variant(tt.name, tt.brand, tt.size); got != tt.want {
			t.Errorf("Variant(%q) = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsWetFood(t *testing.T) {
	tests := []struct {
		name, url string
		want      bool
	}{
		// Exclusion keywords win regardless of other signals.
		{"Trockenfutter Nassfutter Mix", "https://example.de/katzen", false},
		{"Katzenstreu Klumpstreu", "https://example.de/katzen", false},
		// Positive signals.
		{"Nassfutter Huhn", "https://example.de/katzen", true},
		{"Irgendwas", "https://example.de/katze/nassfutter/x", true},
		{"Paté mit Lachs", "https://example.de/katzen", true},
		{"Mystery Food 6 x 400 g", "https://example.de/katzen", true},
		{"Mystery Food 85 g", "https://example.de/katzen", true},
		// No signal at all.
		{"Mystery Produkt", "https://example.de/katzen", false},
	}
	for _, tt := range tests {
		if got := IsWetFood(tt.name, tt.url); got != tt.want {
			t.Errorf("IsWetFood(%q, %q) = %v; want %v", tt.name, tt.url, got, tt.want)
		}
	}
}
