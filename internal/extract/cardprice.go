package extract

import (
	"math"
	"regexp"
	"strings"
)

// The zooplus/bitiba card engine renders every price as undifferentiated
// euro-amount text inside one card: subscription (Abo) prices, per-unit
// prices, "Einzeln" single-item prices, manufacturer list (UVP) prices, and
// multi-pack bundle prices. Each exclusion set below is a standalone pure
// function so it can be tested against literal card text independently.

var (
	aboLeadingRe   = regexp.MustCompile(`(?i)(?:Abo|Abonnement)[^\d]*(\d+,\d{2})\s*€`)
	aboTrailingRe  = regexp.MustCompile(`(?i)(\d+,\d{2})\s*€\s*(?:Abo|mit\s*Abo)`)
	aboPerKgRe     = regexp.MustCompile(`(?i)(\d+,\d{2})\s*€\s*/\s*kg\s*(?:mit\s*)?Abo`)
	aboUnlabeledRe = regexp.MustCompile(`(?i)€\s*/\s*kg\s+(\d+,\d{2})\s*€`)

	perKgRe    = regexp.MustCompile(`(?i)(\d+,\d{2})\s*€\s*/\s*kg`)
	perUnitRe  = regexp.MustCompile(`(?i)(\d+,\d{2})\s*€\s*/\s*(?:kg|g|ml|l|Stück)`)
	einzelnRe  = regexp.MustCompile(`(?i)Einzeln\s*(\d+,\d{2})\s*€`)
	uvpRe      = regexp.MustCompile(`(?i)UVP[^\d]*(\d+,\d{2})\s*€`)
	mixpaketRe = regexp.MustCompile(`(?i)(?:Mixpaket|Mix-?Paket|Sparpaket)[^€]*?(\d+,\d{2})\s*€`)
	discountRe = regexp.MustCompile(`(?i)(-?\s*\d+)\s*%\s*(?:Extra-?)?Rabatt`)
	anyPriceRe = regexp.MustCompile(`(\d+,\d{2})\s*€`)
	digitsRe   = regexp.MustCompile(`[^0-9]`)

	ratingAreaRe     = regexp.MustCompile(`(?i)This is a stars rating area[^:]*:\s*`)
	ratingScaleRe    = regexp.MustCompile(`(?i)from zero to \d+:\s*`)
	ratingScoreRe    = regexp.MustCompile(`\d+/5\s*\(\d+\)`)
	leadingRabattRe  = regexp.MustCompile(`^\d+%\s*Rabatt\s*`)
	trailingSingleRe = regexp.MustCompile(`Einzeln\s*[\d,]+\s*€.*$`)
	trailingPerKgRe  = regexp.MustCompile(`[\d,]+\s*€\s*/\s*kg.*$`)
	trailingPriceRe  = regexp.MustCompile(`[\d,]+\s*€.*$`)
)

// PriceSet is a set of already-classified euro amounts.
type PriceSet map[float64]struct{}

func (s PriceSet) add(vals []float64) {
	for _, v := range vals {
		s[v] = struct{}{}
	}
}

// Has reports whether the amount is in the set.
func (s PriceSet) Has(v float64) bool {
	_, ok := s[v]
	return ok
}

func capturedPrices(re *regexp.Regexp, text string) []float64 {
	var out []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, ok := Price(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}

// AboPrices collects every subscription price in the card text: labeled
// leading/trailing Abo amounts, per-kg Abo amounts, and the bitiba variant
// where an unlabeled Abo price follows directly after a per-kg price.
func AboPrices(text string) PriceSet {
	set := make(PriceSet)
	set.add(capturedPrices(aboLeadingRe, text))
	set.add(capturedPrices(aboTrailingRe, text))
	set.add(capturedPrices(aboPerKgRe, text))
	set.add(capturedPrices(aboUnlabeledRe, text))
	return set
}

// PerUnitPrices collects €/kg, €/g, €/ml, €/l and €/Stück amounts.
func PerUnitPrices(text string) PriceSet {
	set := make(PriceSet)
	set.add(capturedPrices(perUnitRe, text))
	return set
}

// EinzelnPrices collects "Einzeln" single-item amounts.
func EinzelnPrices(text string) PriceSet {
	set := make(PriceSet)
	set.add(capturedPrices(einzelnRe, text))
	return set
}

// UVPPrices collects manufacturer list price amounts ("UVP | 23,88 €").
func UVPPrices(text string) PriceSet {
	set := make(PriceSet)
	set.add(capturedPrices(uvpRe, text))
	return set
}

// MixpaketPrice returns the explicit Mixpaket/Sparpaket bundle price, if any.
func MixpaketPrice(text string) (float64, bool) {
	if m := mixpaketRe.FindStringSubmatch(text); m != nil {
		return Price(m[1])
	}
	return 0, false
}

// OriginalPerKg returns the first per-kg price in the card that is not a
// subscription price.
func OriginalPerKg(text string, abo PriceSet) (float64, bool) {
	for _, m := range perKgRe.FindAllStringSubmatch(text, -1) {
		if v, ok := Price(m[1]); ok && !abo.Has(v) {
			return v, true
		}
	}
	return 0, false
}

// DiscountPercent reads the "-20% Extra-Rabatt" style badge from card text.
func DiscountPercent(text string) (int, bool) {
	m := discountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := digitsRe.ReplaceAllString(m[1], "")
	pct := 0
	for _, c := range digits {
		pct = pct*10 + int(c-'0')
	}
	if pct == 0 {
		return 0, false
	}
	return pct, true
}

// CardPrices resolves the (current, original) price pair for one card.
// Every euro amount that belongs to an exclusion set is dropped; of the
// remaining 1-2 values the larger is the original and the smaller the
// current. An explicit bundle price takes precedence as the original. A
// discount badge re-derives the current price from the original; only an
// explicit badge marks the offer as on sale.
func CardPrices(text string) (current, original float64, onSale bool) {
	abo := AboPrices(text)
	perUnit := PerUnitPrices(text)
	einzeln := EinzelnPrices(text)
	uvp := UVPPrices(text)

	var actual []float64
	for _, m := range anyPriceRe.FindAllStringSubmatch(text, -1) {
		v, ok := Price(m[1])
		if !ok {
			continue
		}
		if abo.Has(v) || perUnit.Has(v) || einzeln.Has(v) || uvp.Has(v) {
			continue
		}
		actual = append(actual, v)
	}

	if mix, ok := MixpaketPrice(text); ok {
		original = mix
	} else if len(actual) > 1 {
		original, current = actual[0], actual[0]
		for _, v := range actual[1:] {
			if v > original {
				original = v
			}
			if v < current {
				current = v
			}
		}
	} else if len(actual) == 1 {
		original, current = actual[0], actual[0]
	}

	if pct, ok := DiscountPercent(text); ok && original > 0 {
		current = math.Round(original*(1-float64(pct)/100)*100) / 100
		onSale = true
	}
	return current, original, onSale
}

// CleanName strips star-rating text, leading discount percentages, and
// trailing price fragments from a raw card title.
func CleanName(raw string) string {
	name := ratingAreaRe.ReplaceAllString(raw, "")
	name = ratingScaleRe.ReplaceAllString(name, "")
	name = ratingScoreRe.ReplaceAllString(name, "")
	name = leadingRabattRe.ReplaceAllString(name, "")
	name = trailingSingleRe.ReplaceAllString(name, "")
	name = trailingPerKgRe.ReplaceAllString(name, "")
	name = trailingPriceRe.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}
