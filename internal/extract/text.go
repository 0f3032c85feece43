package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	priceCleanRe = regexp.MustCompile(`[€\s]`)

	sizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\s*x\s*\d+\s*g)`),
		regexp.MustCompile(`(?i)(\d+\s*g)`),
		regexp.MustCompile(`(?i)(\d+\s*kg)`),
		regexp.MustCompile(`(?i)(\d+\s*ml)`),
	}

	multiWeightRe  = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d+)\s*g`)
	singleWeightRe = regexp.MustCompile(`(?i)(\d+)\s*g(\b|$)`)
	kgWeightRe     = regexp.MustCompile(`(?i)(\d+(?:[,.]\d+)?)\s*kg`)
)

// Price parses German comma-decimal currency text ("12,99 €" -> 12.99).
// Returns ok=false on non-numeric input.
func Price(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	cleaned := priceCleanRe.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Size extracts the first size token from a product name, trying multi-pack,
// gram, kilogram, then milliliter patterns in that order.
func Size(name string) string {
	for _, re := range sizePatterns {
		if m := re.FindStringSubmatch(name); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// WeightGrams resolves the total pack weight in grams from a product name.
// A multi-pack pattern multiplies count by unit weight; single-gram and
// kilogram patterns convert directly. Returns 0 if nothing matches.
func WeightGrams(name string) int {
	if m := multiWeightRe.FindStringSubmatch(name); m != nil {
		count, _ := strconv.Atoi(m[1])
		weight, _ := strconv.Atoi(m[2])
		return count * weight
	}
	if m := singleWeightRe.FindStringSubmatch(name); m != nil {
		grams, _ := strconv.Atoi(m[1])
		return grams
	}
	if m := kgWeightRe.FindStringSubmatch(name); m != nil {
		kg, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return int(kg * 1000)
		}
	}
	return 0
}

// PricePerKg computes price/(grams/1000) rounded to cents, or 0 when the
// weight is unknown.
func PricePerKg(price float64, grams int) float64 {
	if grams <= 0 {
		return 0
	}
	return math.Round(price/(float64(grams)/1000)*100) / 100
}
