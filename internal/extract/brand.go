package extract

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/futterwatch/futterwatch/internal/offer"
)

var brandsByLength struct {
	once sync.Once
	list []string
}

// Brand resolves the brand in a product name by scanning the known and
// quality brand tables longest-first with word-boundary checks, so a short
// brand is never matched as a substring of an unrelated longer token ("GRAU"
// must not match inside "Grauschnäuzchen") and "Venandi Animal" wins over
// "Animonda" prefix collisions. Returns the canonical casing from the table,
// or "".
func Brand(name string) string {
	brandsByLength.once.Do(func() {
		seen := make(map[string]struct{})
		for _, b := range KnownBrands {
			seen[offer.NormalizeBrand(b)] = struct{}{}
			brandsByLength.list = append(brandsByLength.list, b)
		}
		for _, b := range QualityBrands {
			if _, ok := seen[offer.NormalizeBrand(b)]; ok {
				continue
			}
			brandsByLength.list = append(brandsByLength.list, b)
		}
		sort.SliceStable(brandsByLength.list, func(i, j int) bool {
			return len(brandsByLength.list[i]) > len(brandsByLength.list[j])
		})
	})

	nameNorm := offer.NormalizeBrand(name)
	for _, brand := range brandsByLength.list {
		if containsWord(nameNorm, offer.NormalizeBrand(brand)) {
			return brand
		}
	}
	return ""
}

// containsWord reports whether needle occurs in haystack bounded by
// non-alphanumeric runes or the string edges.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for offset := 0; ; {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)

		startOK := start == 0 || !isWordRune(runeBefore(haystack, start))
		endOK := end == len(haystack) || !isWordRune(runeAt(haystack, end))
		if startOK && endOK {
			return true
		}
		offset = start + 1
		if offset >= len(haystack) {
			return false
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runeAt(s string, i int) rune {
	for _, r := range s[i:] {
		return r
	}
	return 0
}

func runeBefore(s string, i int) rune {
	r := rune(0)
	for _, c := range s[:i] {
		r = c
	}
	return r
}
