// Package match reconciles offers gathered from different sites into one
// cheapest-offer view per product identity.
package match

import (
	"math"
	"sort"

	"github.com/futterwatch/futterwatch/internal/offer"
)

// Alternate is a non-primary offer for the same product on another site.
type Alternate struct {
	Site       offer.Site
	ExternalID string
	PricePerKg float64
	URL        string
}

// CheapestVariantResult is the cross-site view of one product identity:
// the cheapest offer plus every other site's offer for the same match key.
type CheapestVariantResult struct {
	MatchKey   string
	Primary    offer.Offer
	Alternates []Alternate
}

// sitePreference fixes the display order of alternates. The order follows
// the shops' relevance for comparison shopping; sites without an entry sort
// last, alphabetically.
var sitePreference = map[offer.Site]int{
	offer.SiteZooplus: 0,
	offer.SiteBitiba:  1,
	offer.SiteZoo24:   4,
}

func sitePreferenceRank(s offer.Site) int {
	if rank, ok := sitePreference[s]; ok {
		return rank
	}
	return 99
}

// effectivePricePerKg orders offers without a resolvable per-kg price last
// instead of treating them as free.
func effectivePricePerKg(o *offer.Offer) float64 {
	if ppkg := o.PricePerKg(); ppkg > 0 {
		return ppkg
	}
	return math.Inf(1)
}

// Cheapest is a pure function over one run's offer set. It deduplicates
// offers per (match key, site) keeping the cheapest, groups the survivors
// across sites, and returns one result per group, primary first, the whole
// list ascending by the primary's price per kg. Ties break on external ID
// so re-ordered input yields identical output.
func Cheapest(offers []offer.Offer) []CheapestVariantResult {
	type slot struct {
		key   string
		offer offer.Offer
	}

	perSite := make(map[string]slot)
	for _, o := range offers {
		key := o.MatchKey()
		siteKey := key + "|" + string(o.Site)
		cur, ok := perSite[siteKey]
		if !ok || cheaper(&o, &cur.offer) {
			perSite[siteKey] = slot{key: key, offer: o}
		}
	}

	groups := make(map[string][]offer.Offer)
	for _, s := range perSite {
		groups[s.key] = append(groups[s.key], s.offer)
	}

	results := make([]CheapestVariantResult, 0, len(groups))
	for key, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return cheaper(&group[i], &group[j])
		})

		res := CheapestVariantResult{MatchKey: key, Primary: group[0]}
		for _, alt := range group[1:] {
			res.Alternates = append(res.Alternates, Alternate{
				Site:       alt.Site,
				ExternalID: alt.ExternalID,
				PricePerKg: alt.PricePerKg(),
				URL:        alt.URL,
			})
		}
		sort.Slice(res.Alternates, func(i, j int) bool {
			a, b := res.Alternates[i], res.Alternates[j]
			ra, rb := sitePreferenceRank(a.Site), sitePreferenceRank(b.Site)
			if ra != rb {
				return ra < rb
			}
			if a.Site != b.Site {
				return a.Site < b.Site
			}
			return a.ExternalID < b.ExternalID
		})
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		pi := effectivePricePerKg(&results[i].Primary)
		pj := effectivePricePerKg(&results[j].Primary)
		if pi != pj {
			return pi < pj
		}
		return results[i].MatchKey < results[j].MatchKey
	})
	return results
}

// cheaper orders two offers by effective price per kg, breaking ties on
// external ID.
func cheaper(a, b *offer.Offer) bool {
	pa, pb := effectivePricePerKg(a), effectivePricePerKg(b)
	if pa != pb {
		return pa < pb
	}
	return a.ExternalID < b.ExternalID
}
