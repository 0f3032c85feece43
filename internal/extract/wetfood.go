package extract

import (
	"regexp"
	"strings"
)

var (
	wetMultiPackRe   = regexp.MustCompile(`\d+\s*x\s*\d+\s*g\b`)
	wetTypicalSizeRe = regexp.MustCompile(`\b\d{2,3}\s*g\b`)
)

// IsWetFood classifies a product as wet cat food from its name and URL.
// Exclusion keywords (dry food, litter, toys, accessories, grooming,
// carriers) always win; otherwise a wet-food category URL, a wet-food
// keyword, a multi-pack pattern, or a typical wet-food single weight
// (85g..400g range of two/three digit gram sizes) qualifies the product.
func IsWetFood(name, url string) bool {
	combined := strings.ToLower(name) + " " + strings.ToLower(url)

	for _, kw := range excludeKeywords {
		if strings.Contains(combined, kw) {
			return false
		}
	}

	if strings.Contains(strings.ToLower(url), "/nassfutter") {
		return true
	}

	for _, kw := range wetFoodKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}

	nameLower := strings.ToLower(name)
	if wetMultiPackRe.MatchString(nameLower) {
		return true
	}
	return wetTypicalSizeRe.MatchString(nameLower)
}

// IsObviousNonFood is the relaxed, exclude-only check used by adapters whose
// fetches are already scoped to a wet-food category page.
func IsObviousNonFood(name string) bool {
	nameLower := strings.ToLower(name)
	for _, kw := range []string{"trockenfutter", "snack", "leckerli", "treat", "sticks", "dreamies", "knuspies"} {
		if strings.Contains(nameLower, kw) {
			return true
		}
	}
	return false
}
