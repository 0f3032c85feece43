package sites

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/fetch"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// zoo24Site scrapes a Shopify storefront. The listing is server-rendered,
// so a plain HTTP client suffices; prices live in the theme's sale-price,
// compare-at-price and unit-price custom elements. Brand scoping goes
// through per-brand collection URLs; brands without a known collection are
// silently skipped.
type zoo24Site struct {
	client *fetch.HTTPClient
	cfg    *config.Config
	logger *slog.Logger
}

const (
	zoo24Base       = "https://www.zoo24.de"
	zoo24SaleURL    = "https://www.zoo24.de/collections/sale-katzen-nassfutter"
	zoo24CardExpr   = `//div[contains(@class,'card--product')]`
	zoo24LinkExpr   = `.//a[contains(@class,'card__link') or contains(@href,'/products/')]`
	zoo24TitleExpr  = `.//*[contains(@class,'card__title')]`
	zoo24SaleExpr   = `.//sale-price`
	zoo24CompExpr   = `.//compare-at-price`
	zoo24UnitExpr   = `.//unit-price`
	zoo24VendorExpr = `.//*[contains(@class,'card__vendor')]`
)

// zoo24Collections maps normalized brand names to collection handles. The
// table is deliberately small: the shop stocks far fewer brands than the
// big platforms, and an unknown brand simply yields nothing from this site.
var zoo24Collections = map[string]string{
	"animonda":              "animonda-katzen-nassfutter",
	"animonda carny":        "animonda-carny",
	"animonda vom feinsten": "animonda-vom-feinsten",
	"bozita":                "bozita-katzen-nassfutter",
	"catz finefood":         "catz-finefood",
	"granatapet":            "granatapet-katzen-nassfutter",
	"kattovit":              "kattovit",
	"leonardo":              "leonardo-katzen-nassfutter",
	"mac's":                 "macs-katzen-nassfutter",
	"miamor":                "miamor",
	"mjamjam":               "mjamjam-katzen-nassfutter",
	"royal canin":           "royal-canin-katzen-nassfutter",
	"schesir":               "schesir",
	"wildes land":           "wildes-land-katzen-nassfutter",
}

// zoo24QualityBrands are the quality brands with a collection here.
var zoo24QualityBrands = []string{
	"leonardo", "mac's", "catz finefood", "mjamjam", "animonda carny",
	"animonda vom feinsten", "granatapet", "wildes land", "bozita",
	"schesir", "miamor", "royal canin", "kattovit",
}

// NewZoo24 returns the static-HTML adapter.
func NewZoo24(client *fetch.HTTPClient, cfg *config.Config, logger *slog.Logger) Adapter {
	return &zoo24Site{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "adapter", "site", string(offer.SiteZoo24)),
	}
}

func (z *zoo24Site) Site() offer.Site { return offer.SiteZoo24 }

// IsWetFood applies the full classification: collections occasionally mix
// in snacks and dry variants.
func (z *zoo24Site) IsWetFood(name, url string) bool {
	return extract.IsWetFood(name, url)
}

// FetchBrandOffers walks each resolved brand collection. Collections are
// short enough that every page is fetched; pagination stops on the first
// page without cards.
func (z *zoo24Site) FetchBrandOffers(ctx context.Context, req BrandRequest, out chan<- []offer.Offer) error {
	handles := z.collectionHandles(req)
	if len(handles) == 0 {
		z.logger.Warn("no collections resolved")
		return nil
	}

	ceiling := scrapeCeiling(req.MaxPricePerKg, z.cfg.Scraper.DefaultMaxPricePerKg)
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	z.logger.Info("collection scan", "collections", len(handles))

	seen := make(map[string]struct{})
	for _, handle := range handles {
		if err := z.scanCollection(ctx, handle, ceiling, maxPages, seen, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			z.logger.Warn("collection failed", "collection", handle, "error", err)
		}
	}
	return nil
}

func (z *zoo24Site) scanCollection(ctx context.Context, handle string, ceiling float64, maxPages int, seen map[string]struct{}, out chan<- []offer.Offer) error {
	for page := 1; page <= maxPages; page++ {
		pageURL := fmt.Sprintf("%s/collections/%s", zoo24Base, handle)
		if page > 1 {
			pageURL = fmt.Sprintf("%s?page=%d", pageURL, page)
		}

		offers, err := z.fetchListing(ctx, pageURL)
		if err != nil {
			return err
		}
		if len(offers) == 0 {
			return nil
		}

		var chunk []offer.Offer
		for _, o := range offers {
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}
			if overCeiling(&o, ceiling) {
				continue
			}
			chunk = append(chunk, o)
		}
		if err := emit(ctx, out, chunk); err != nil {
			return err
		}
	}
	return nil
}

// FetchReducedOffers reads the shop's sale collection and keeps on-sale
// cards matching the watch list.
func (z *zoo24Site) FetchReducedOffers(ctx context.Context, brands []string, out chan<- []offer.Offer) error {
	offers, err := z.fetchListing(ctx, zoo24SaleURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		z.logger.Warn("sale collection failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var chunk []offer.Offer
	for _, o := range offers {
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
		chunk = append(chunk, o)
	}
	return emit(ctx, out, chunk)
}

// fetchListing downloads one listing page and parses its product cards.
func (z *zoo24Site) fetchListing(ctx context.Context, pageURL string) ([]offer.Offer, error) {
	body, err := z.client.Get(ctx, pageURL)
	if err != nil {
		return nil, &offer.FetchError{Site: offer.SiteZoo24, URL: pageURL, Err: err}
	}
	return z.parseListing(body)
}

func (z *zoo24Site) parseListing(body []byte) ([]offer.Offer, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &offer.ExtractError{Site: offer.SiteZoo24, Err: fmt.Errorf("parse html: %w", err)}
	}

	cards, err := htmlquery.QueryAll(doc, zoo24CardExpr)
	if err != nil {
		return nil, &offer.ExtractError{Site: offer.SiteZoo24, Err: fmt.Errorf("query cards: %w", err)}
	}

	var offers []offer.Offer
	for _, card := range cards {
		o, err := z.parseCard(card)
		if err != nil {
			z.logger.Debug("card skipped", "error", err)
			continue
		}
		offers = append(offers, *o)
	}
	return offers, nil
}

// parseCard reads one Shopify product card. A populated compare-at-price
// element marks a discount; the unit-price element then carries the
// reduced per-kilogram amount and the original is derived from the price
// ratio.
func (z *zoo24Site) parseCard(card *html.Node) (*offer.Offer, error) {
	link := queryFirst(card, zoo24LinkExpr)
	if link == nil {
		return nil, errors.New("card without link")
	}
	href := htmlquery.SelectAttr(link, "href")
	if href == "" {
		return nil, errors.New("card without link")
	}
	if strings.HasPrefix(href, "/") {
		href = zoo24Base + href
	}

	name := nodeText(queryFirst(card, zoo24TitleExpr))
	if name == "" {
		name = strings.TrimSpace(htmlquery.InnerText(link))
	}
	name = extract.CleanName(name)
	if name == "" {
		return nil, errors.New("card without name")
	}

	if !z.IsWetFood(name, href) {
		return nil, offer.ErrNotWetFood
	}

	current, ok := extract.Price(nodeText(queryFirst(card, zoo24SaleExpr)))
	if !ok || current <= 0 {
		return nil, offer.ErrNoPrice
	}

	original := current
	onSale := false
	if compare, okC := extract.Price(nodeText(queryFirst(card, zoo24CompExpr))); okC && compare > current {
		original = compare
		onSale = true
	}

	brand := nodeText(queryFirst(card, zoo24VendorExpr))
	if brand == "" {
		brand = extract.Brand(name)
	}

	size := extract.Size(name)
	weight := extract.WeightGrams(name)

	// The theme's unit price always reflects the charged price. When the
	// card is discounted that is the reduced per-kg; the original per-kg
	// follows from the price ratio.
	unitPerKg, hasUnit := firstPerUnitPrice(nodeText(queryFirst(card, zoo24UnitExpr)))

	var originalPerKg, reducedPerKg float64
	switch {
	case hasUnit && onSale:
		reducedPerKg = unitPerKg
		originalPerKg = extract.PricePerKg(unitPerKg*original/current, 1000)
	case hasUnit:
		originalPerKg = unitPerKg
	default:
		originalPerKg = extract.PricePerKg(original, weight)
		if onSale {
			reducedPerKg = extract.PricePerKg(current, weight)
		}
	}

	saleTag := ""
	if onSale {
		saleTag = "Sale"
	}

	externalID, baseID := zoo24IDs(href)
	return &offer.Offer{
		ExternalID:         externalID,
		BaseProductID:      baseID,
		VariantName:        extract.Variant(name, brand, size),
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
		Site:               offer.SiteZoo24,
	}, nil
}

// zoo24IDs derives IDs from the product handle; a variant query parameter
// distinguishes sizes of the same product.
func zoo24IDs(rawURL string) (externalID, baseID string) {
	path := rawURL
	variant := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		query := path[i+1:]
		path = path[:i]
		for _, kv := range strings.Split(query, "&") {
			if v, ok := strings.CutPrefix(kv, "variant="); ok {
				variant = v
			}
		}
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	baseID = path
	id := path
	if variant != "" {
		id = path + ":" + variant
	}
	return string(offer.SiteZoo24) + ":" + id, baseID
}

// collectionHandles resolves the collections for a scan. Watched brands
// without a collection are dropped without a warning per entry; one summary
// line reports how many resolved.
func (z *zoo24Site) collectionHandles(req BrandRequest) []string {
	seen := make(map[string]struct{})
	var handles []string
	add := func(handle string) {
		if _, ok := seen[handle]; ok {
			return
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}

	if req.IncludeDefaultBrands {
		for _, brand := range zoo24QualityBrands {
			if handle, ok := zoo24Collections[offer.NormalizeBrand(brand)]; ok {
				add(handle)
			}
		}
	}

	dropped := 0
	for _, brand := range req.Brands {
		if handle, ok := zoo24Collections[offer.NormalizeBrand(brand)]; ok {
			add(handle)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		z.logger.Info("brands without collection skipped", "count", dropped)
	}
	sort.Strings(handles)
	return handles
}

// queryFirst returns the first node matching the expression, or nil. The
// expressions are compile-time constants, so a query error means a typo
// and is treated as no match.
func queryFirst(node *html.Node, expr string) *html.Node {
	n, err := htmlquery.Query(node, expr)
	if err != nil {
		return nil
	}
	return n
}

// nodeText returns a node's trimmed inner text, tolerating nil.
func nodeText(node *html.Node) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}
