// Package offer defines the normalized record every site adapter emits and
// the cross-site identity key the matching engine groups by.
package offer

import (
	"regexp"
	"strings"
)

// Site identifies one of the supported shops.
type Site string

const (
	SiteZooplus   Site = "zooplus"
	SiteBitiba    Site = "bitiba"
	SiteZooroyal  Site = "zooroyal"
	SiteFressnapf Site = "fressnapf"
	SiteZoo24     Site = "zoo24"
)

// AllSites lists every supported site in preference order.
var AllSites = []Site{SiteZooplus, SiteBitiba, SiteZooroyal, SiteFressnapf, SiteZoo24}

// Offer is one site's priced listing for one purchasable unit, normalized
// from whatever the site renders. Offers are immutable once emitted.
type Offer struct {
	// ExternalID is the site-prefixed identifier of this specific
	// offer/variant, e.g. "zooplus:564091.13".
	ExternalID string

	// BaseProductID is shared by variants of one catalog entry on one site,
	// e.g. "564091". Used only for within-site variant grouping.
	BaseProductID string

	// VariantName is the flavor/variant descriptor extracted from the title.
	VariantName string

	Name  string
	Brand string
	Size  string

	CurrentPrice  float64
	OriginalPrice float64
	IsOnSale      bool
	SaleTag       string

	WeightGrams        int
	OriginalPricePerKg float64
	ReducedPricePerKg  float64

	URL  string
	Site Site
}

// Valid reports whether the offer satisfies the emission invariants: a
// positive current price, and a reduced price per kg never above the
// original one when both are set.
func (o *Offer) Valid() bool {
	if o.CurrentPrice <= 0 {
		return false
	}
	if o.ReducedPricePerKg > 0 && o.OriginalPricePerKg > 0 &&
		o.ReducedPricePerKg > o.OriginalPricePerKg {
		return false
	}
	return o.ExternalID != "" && o.URL != ""
}

// PricePerKg returns the effective per-kg price for ranking: the reduced one
// when the offer is discounted, otherwise the original.
func (o *Offer) PricePerKg() float64 {
	if o.ReducedPricePerKg > 0 {
		return o.ReducedPricePerKg
	}
	return o.OriginalPricePerKg
}

var (
	apostropheSet = strings.NewReplacer("´", "'", "’", "'", "`", "'")
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]`)
	nonSizeRe     = regexp.MustCompile(`[^a-z0-9x]`)
	spaceRe       = regexp.MustCompile(`\s+`)
	multiSizeRe   = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d+)\s*g`)
	singleSizeRe  = regexp.MustCompile(`(?i)(\d+)\s*g\b`)
)

// NormalizeBrand lower-cases a brand name and unifies apostrophe variants
// (acute accent, right single quote, backtick) so "MAC´s" and "MAC's"
// compare equal.
func NormalizeBrand(brand string) string {
	return apostropheSet.Replace(strings.ToLower(brand))
}

// MatchKey derives the cross-site identity "brand|size" for an offer. Brand
// normalization strips punctuation entirely; size normalization reduces the
// size field to a canonical NxMg/Mg token, falling back to patterns in the
// product name, then "nosize". Offers with no resolvable brand collapse to
// the "unknown|..." key space — an accepted limitation, not special-cased.
func (o *Offer) MatchKey() string {
	brand := o.Brand
	if brand == "" {
		brand = "unknown"
	}
	brandNorm := nonAlnumRe.ReplaceAllString(NormalizeBrand(brand), "")

	sizeNorm := ""
	if o.Size != "" {
		sizeNorm = nonSizeRe.ReplaceAllString(spaceRe.ReplaceAllString(strings.ToLower(o.Size), ""), "")
	}
	if sizeNorm == "" && o.Name != "" {
		if m := multiSizeRe.FindStringSubmatch(o.Name); m != nil {
			sizeNorm = m[1] + "x" + m[2] + "g"
		} else if m := singleSizeRe.FindStringSubmatch(o.Name); m != nil {
			sizeNorm = m[1] + "g"
		}
	}
	if sizeNorm == "" {
		sizeNorm = "nosize"
	}

	return brandNorm + "|" + sizeNorm
}
