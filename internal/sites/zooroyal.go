package sites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/fetch"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// zooroyalSite scrapes a storefront built from custom elements with shadow
// roots. Outer-DOM selectors cannot see into the tiles, so extraction runs
// as an in-page script that walks the shadow trees and returns raw tile data
// as JSON. The price is carried in an aria-label ("... NN.NN EUR"), not in
// visible text; discount badges live in a nested shadow component and the
// original price is back-computed from the discount percentage.
type zooroyalSite struct {
	session *fetch.Session
	cfg     *config.Config
	logger  *slog.Logger

	// tiles fetches one listing page and returns its raw tile data. Split
	// from the scan logic so the fan-out is testable without a browser.
	tiles func(ctx context.Context, pageURL string) ([]zooroyalTileData, error)
}

const (
	zooroyalBase        = "https://www.zooroyal.de"
	zooroyalCategoryURL = "https://www.zooroyal.de/katze/katzenfutter/katzen-nassfutter/"
	zooroyalTile        = "zr-product-tile"
)

// zooroyalSlugs maps normalized brand names onto the URL slugs the site
// partitions its wet-food category by. Brands without a slug cannot be
// brand-scoped here and are resolved through the quality slug set only.
var zooroyalSlugs = map[string]string{
	"almo nature":              "almo-nature",
	"animonda":                 "animonda-carny",
	"animonda carny":           "animonda-carny",
	"animonda integra protect": "animonda-integra-protect",
	"animonda vom feinsten":    "animonda-vom-feinsten",
	"applaws":                  "applaws",
	"bozita":                   "bozita",
	"brit care":                "brit-care",
	"carnilove":                "carnilove",
	"cat's love":               "cat-s-love",
	"catz finefood":            "catz-finefood",
	"defu":                     "defu",
	"edgard & cooper":          "edgard-cooper",
	"felix":                    "felix",
	"gimcat":                   "gimcat",
	"gourmet":                  "gourmet",
	"granatapet":               "granatapet",
	"happy cat":                "happy-cat",
	"hardys":                   "hardys",
	"josera":                   "josera",
	"kattovit":                 "kattovit",
	"leonardo":                 "leonardo",
	"lily's kitchen":           "lily-s-kitchen",
	"lucky lou":                "lucky-lou",
	"mac's":                    "macs",
	"mac's cat":                "macs",
	"mac's vetcare":            "mac-s-vetcare",
	"miamor":                   "miamor",
	"mjamjam":                  "mjamjam",
	"pure nature":              "pure-nature",
	"purina one":               "purina-one",
	"royal canin":              "royal-canin",
	"sanabelle":                "sanabelle",
	"schesir":                  "schesir",
	"sheba":                    "sheba",
	"strayz":                   "strayz",
	"terra faelis":             "terra-felis",
	"the goodstuff":            "the-goodstuff",
	"tundra":                   "tundra",
	"venandi animal":           "venandi-animal",
	"vitakraft":                "vitakraft",
	"whiskas":                  "whiskas",
	"wildes land":              "wildes-land",
}

// zooroyalQualitySlugs are the quality brands that exist on this site,
// always scanned.
var zooroyalQualitySlugs = []string{
	"leonardo", "macs", "catz-finefood", "mjamjam", "animonda-carny",
	"animonda-vom-feinsten", "granatapet", "wildes-land", "applaws",
	"lily-s-kitchen", "bozita", "terra-felis", "venandi-animal", "carnilove",
	"schesir", "almo-nature", "lucky-lou", "tundra", "edgard-cooper",
	"cat-s-love", "hardys", "defu", "the-goodstuff", "pure-nature", "strayz",
	"miamor", "sanabelle", "happy-cat", "royal-canin", "kattovit",
	"brit-care", "josera",
}

// zooroyalExtractJS walks every product tile's shadow root and returns the
// raw fields as a JSON array. Badges require descending two shadow levels.
const zooroyalExtractJS = `() => {
	const tiles = [];
	document.querySelectorAll('zr-product-tile').forEach(tile => {
		const shadow = tile.shadowRoot;
		if (!shadow) return;
		const t = {};
		const link = shadow.querySelector('a[href]');
		t.url = link ? link.href : '';
		const supplier = shadow.querySelector('.zr-product-tile__supplier');
		t.brand = supplier ? supplier.textContent.trim() : '';
		const nameEl = shadow.querySelector('.zr-product-tile__name');
		t.name = nameEl ? nameEl.textContent.trim() : '';
		t.ariaLabel = nameEl ? (nameEl.getAttribute('aria-label') || '') : '';
		const variantEl = shadow.querySelector('.zr-product-tile__current-variant');
		if (variantEl) {
			const text = variantEl.textContent.trim();
			const m = text.match(/^([\d]+x?[\d]*(?:g|kg|ml))/i);
			t.size = m ? m[1] : text;
		}
		t.badges = [];
		const badgesComp = shadow.querySelector('zr-badges');
		if (badgesComp && badgesComp.shadowRoot) {
			badgesComp.shadowRoot.querySelectorAll('zr-badge').forEach(badge => {
				if (badge.shadowRoot) {
					const bt = badge.shadowRoot.textContent.trim();
					if (bt) t.badges.push(bt);
				}
			});
		}
		if (t.url) tiles.push(t);
	});
	return JSON.stringify(tiles);
}`

// zooroyalTileData is the raw shape the in-page script returns per tile.
type zooroyalTileData struct {
	URL       string   `json:"url"`
	Brand     string   `json:"brand"`
	Name      string   `json:"name"`
	AriaLabel string   `json:"ariaLabel"`
	Size      string   `json:"size"`
	Badges    []string `json:"badges"`
}

var (
	ariaPriceRe     = regexp.MustCompile(`(?i)([\d,.]+)\s*EUR\s*$`)
	badgeDiscountRe = regexp.MustCompile(`-\s*(\d+)\s*%`)
	sponsoredRe     = regexp.MustCompile(`[?&]sponsored=display[^&]*`)
)

// NewZooroyal returns the shadow-DOM adapter.
func NewZooroyal(session *fetch.Session, cfg *config.Config, logger *slog.Logger) Adapter {
	z := &zooroyalSite{
		session: session,
		cfg:     cfg,
		logger:  logger.With("component", "adapter", "site", string(offer.SiteZooroyal)),
	}
	z.tiles = z.fetchTiles
	return z
}

func (z *zooroyalSite) Site() offer.Site { return offer.SiteZooroyal }

// IsWetFood relaxes the default classification: every fetch here is scoped
// to the wet-food category path, so only obvious non-food is excluded.
func (z *zooroyalSite) IsWetFood(name, _ string) bool {
	return !extract.IsObviousNonFood(name)
}

// brandMsg is one producer-to-consumer message in the per-brand fan-out.
// A done marker carries no chunk; the consumer terminates after it has seen
// one marker per producer, or on cancellation. Every producer send selects
// on ctx so no goroutine is left parked when the consumer exits early.
type brandMsg struct {
	slug  string
	chunk []offer.Offer
	done  bool
}

// FetchBrandOffers scans one URL-partitioned brand page sequence per slug,
// in parallel, bounded by the configured semaphore. Each brand task streams
// its page chunks through a shared bounded queue and signals completion
// independently, so one slow brand never gates the others' results.
func (z *zooroyalSite) FetchBrandOffers(ctx context.Context, req BrandRequest, out chan<- []offer.Offer) error {
	slugs := z.brandSlugs(req)
	if len(slugs) == 0 {
		z.logger.Warn("no brand slugs resolved")
		return nil
	}

	ceiling := scrapeCeiling(req.MaxPricePerKg, z.cfg.Scraper.DefaultMaxPricePerKg)
	concurrency := z.cfg.Scraper.BrandConcurrency

	z.logger.Info("brand scan", "slugs", len(slugs), "concurrency", concurrency)

	sem := make(chan struct{}, concurrency)
	msgs := make(chan brandMsg, concurrency)

	for _, slug := range slugs {
		go func(slug string) {
			defer func() {
				select {
				case msgs <- brandMsg{slug: slug, done: true}:
				case <-ctx.Done():
				}
			}()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			z.scanBrandSlug(ctx, slug, ceiling, req.MaxPages, msgs)
		}(slug)
	}

	seen := make(map[string]struct{})
	for remaining := len(slugs); remaining > 0; {
		var msg brandMsg
		select {
		case msg = <-msgs:
		case <-ctx.Done():
			return ctx.Err()
		}
		if msg.done {
			remaining--
			continue
		}

		var chunk []offer.Offer
		for _, o := range msg.chunk {
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}
			chunk = append(chunk, o)
		}
		if err := emit(ctx, out, chunk); err != nil {
			return err
		}
	}
	return nil
}

// scanBrandSlug paginates one brand's category partition, pushing each
// page's qualifying offers as a chunk.
func (z *zooroyalSite) scanBrandSlug(ctx context.Context, slug string, ceiling float64, maxPages int, msgs chan<- brandMsg) {
	if maxPages <= 0 {
		maxPages = 10
	}
	brandURL := zooroyalCategoryURL + slug

	for page := 1; page <= maxPages; page++ {
		pageURL := brandURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s?p=%d", brandURL, page)
		}

		tiles, err := z.tiles(ctx, pageURL)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				z.logger.Warn("brand page failed, stopping", "slug", slug, "page", page, "error", err)
			}
			return
		}
		if len(tiles) == 0 {
			return
		}

		var chunk []offer.Offer
		for _, tile := range tiles {
			o, err := z.convertTile(tile)
			if err != nil {
				z.logger.Debug("tile skipped", "slug", slug, "error", err)
				continue
			}
			if overCeiling(o, ceiling) {
				continue
			}
			chunk = append(chunk, *o)
		}

		if len(chunk) > 0 {
			select {
			case msgs <- brandMsg{slug: slug, chunk: chunk}:
			case <-ctx.Done():
				return
			}
		} else if page > 1 {
			return
		}
	}
}

// FetchReducedOffers scans the category sorted by discount and filters
// client-side: the site's search has no reliable brand filter, so offers
// are kept when their displayed brand matches the watch list.
func (z *zooroyalSite) FetchReducedOffers(ctx context.Context, brands []string, out chan<- []offer.Offer) error {
	tiles, err := z.tiles(ctx, zooroyalCategoryURL+"?sSort=7")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		z.logger.Warn("reduced scan failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var chunk []offer.Offer
	for _, tile := range tiles {
		o, err := z.convertTile(tile)
		if err != nil {
			continue
		}
		if !o.IsOnSale {
			continue
		}
		if len(brands) > 0 && !MatchesWatchedBrand(o.Brand, brands) {
			continue
		}
		if _, dup := seen[o.ExternalID]; dup {
			continue
		}
		seen[o.ExternalID] = struct{}{}
		chunk = append(chunk, *o)
	}
	return emit(ctx, out, chunk)
}

// fetchTiles renders a page and runs the shadow-root extraction script.
func (z *zooroyalSite) fetchTiles(ctx context.Context, pageURL string) ([]zooroyalTileData, error) {
	raw, err := z.session.EvalJSON(ctx, pageURL, zooroyalTile, zooroyalExtractJS)
	if err != nil {
		return nil, &offer.FetchError{Site: offer.SiteZooroyal, URL: pageURL, Err: err}
	}
	var tiles []zooroyalTileData
	if err := json.Unmarshal([]byte(raw), &tiles); err != nil {
		return nil, &offer.FetchError{Site: offer.SiteZooroyal, URL: pageURL, Err: fmt.Errorf("decode tiles: %w", err)}
	}
	return tiles, nil
}

// convertTile turns raw shadow-root data into a normalized offer.
func (z *zooroyalSite) convertTile(tile zooroyalTileData) (*offer.Offer, error) {
	if tile.URL == "" || tile.Name == "" {
		return nil, errors.New("incomplete tile")
	}

	// Sponsored placements duplicate organic tiles under tracking URLs.
	href := sponsoredRe.ReplaceAllString(tile.URL, "")
	href = strings.TrimRight(strings.Replace(href, "?&", "?", 1), "?")

	current, ok := parseAriaPrice(tile.AriaLabel)
	if !ok {
		return nil, offer.ErrNoPrice
	}

	if !z.IsWetFood(tile.Name, href) {
		return nil, offer.ErrNotWetFood
	}

	size := tile.Size
	if size == "" {
		size = extract.Size(tile.Name)
	}

	original := current
	onSale := false
	saleTag := ""
	if pct, okPct := parseBadgeDiscount(tile.Badges); okPct {
		// The aria-label price is already discounted; recover the original.
		original = math.Round(current/(1-float64(pct)/100)*100) / 100
		onSale = true
		saleTag = fmt.Sprintf("-%d%%", pct)
	}

	externalID, baseID := zooroyalIDs(href)

	name := tile.Name
	if size != "" && !strings.Contains(name, size) {
		name = strings.TrimSpace(name + " " + size)
	}

	brand := tile.Brand
	if brand == "" {
		brand = extract.Brand(name)
	}

	weight := extract.WeightGrams(name + " " + size)
	originalPerKg := extract.PricePerKg(original, weight)
	var reducedPerKg float64
	if onSale {
		reducedPerKg = extract.PricePerKg(current, weight)
	}

	return &offer.Offer{
		ExternalID:         externalID,
		BaseProductID:      baseID,
		VariantName:        extract.Variant(tile.Name, brand, size),
		Name:               name,
		Brand:              brand,
		Size:               size,
		CurrentPrice:       current,
		OriginalPrice:      original,
		IsOnSale:           onSale,
		SaleTag:            saleTag,
		WeightGrams:        weight,
		OriginalPricePerKg: originalPerKg,
		ReducedPricePerKg:  reducedPerKg,
		URL:                href,
		Site:               offer.SiteZooroyal,
	}, nil
}

// parseAriaPrice reads the trailing "NN.NN EUR" amount from a tile's
// aria-label.
func parseAriaPrice(ariaLabel string) (float64, bool) {
	m := ariaPriceRe.FindStringSubmatch(ariaLabel)
	if m == nil {
		return 0, false
	}
	return extract.Price(m[1])
}

// parseBadgeDiscount reads the first "- NN %" badge.
func parseBadgeDiscount(badges []string) (int, bool) {
	for _, badge := range badges {
		if m := badgeDiscountRe.FindStringSubmatch(badge); m != nil {
			pct := 0
			for _, c := range m[1] {
				pct = pct*10 + int(c-'0')
			}
			if pct > 0 {
				return pct, true
			}
		}
	}
	return 0, false
}

// zooroyalIDs derives the external and base product IDs from a product URL
// slug, appending the sDetail variant parameter when present.
func zooroyalIDs(rawURL string) (externalID, baseID string) {
	path := rawURL
	detail := ""
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.Trim(u.Path, "/")
		detail = u.Query().Get("sDetail")
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	baseID = path
	id := path
	if detail != "" {
		id = path + ":" + detail
	}
	return string(offer.SiteZooroyal) + ":" + id, baseID
}

// brandSlugs resolves the slug set for a scan: the quality slugs plus any
// watched brands that map onto the slug table (exact first, then the
// substring fallback shared with the other adapters).
func (z *zooroyalSite) brandSlugs(req BrandRequest) []string {
	seen := make(map[string]struct{})
	var slugs []string
	add := func(slug string) {
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}

	if req.IncludeDefaultBrands {
		for _, slug := range zooroyalQualitySlugs {
			add(slug)
		}
	}

	for _, brand := range req.Brands {
		norm := offer.NormalizeBrand(brand)
		if slug, ok := zooroyalSlugs[norm]; ok {
			add(slug)
			continue
		}
		// Substring fallback, longest name first so "mac's vetcare" wins
		// over "mac's"; length then lexical order keeps it deterministic.
		keys := make([]string, 0, len(zooroyalSlugs))
		for k := range zooroyalSlugs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		for _, known := range keys {
			if strings.Contains(norm, known) || strings.Contains(known, norm) {
				add(zooroyalSlugs[known])
				break
			}
		}
	}
	return slugs
}
