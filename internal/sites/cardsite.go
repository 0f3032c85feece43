package sites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/fetch"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// cardSite is the shared engine behind the two shops that run the same
// hydrated-HTML storefront under different base URLs. Product cards arrive
// server-rendered, then hydrate; all price variants (Abo, per-unit, Einzeln,
// UVP, bundle) are undifferentiated euro text inside one card, so extraction
// leans entirely on the rule sets in the extract package.
type cardSite struct {
	site              offer.Site
	baseURL           string
	categoryURL       string
	searchURL         string
	shopLinkPattern   string // substring identifying product links
	categoryPath      string // category path used in search filters
	categoryPathCheck string // category-level URLs to skip

	session *fetch.Session
	cfg     *config.Config
	logger  *slog.Logger
}

const (
	cardTileSelector     = `[class*="ProductCard"]`
	cardFallbackSelector = `[class*="product"]`
)

var (
	cardIDRe       = regexp.MustCompile(`/(\d+)(?:\?|$|#)`)
	slashCountMin  = 6
	nameSelectors  = `[class*="productName"], [class*="ProductName"], [class*="title"], h2, h3, h4`
	ariaBadgeClean = strings.NewReplacer("aktivieren", "")
)

// NewZooplus returns the adapter for the zooplus storefront.
func NewZooplus(session *fetch.Session, cfg *config.Config, logger *slog.Logger) Adapter {
	return &cardSite{
		site:              offer.SiteZooplus,
		baseURL:           "https://www.zooplus.de",
		categoryURL:       "https://www.zooplus.de/shop/katzen/katzenfutter/nassfutter",
		searchURL:         "https://www.zooplus.de/search/results",
		shopLinkPattern:   "/shop/katzen/",
		categoryPath:      "katzen/katzenfutter_dose",
		categoryPathCheck: "/shop/katzen/katzenfutter/nassfutter",
		session:           session,
		cfg:               cfg,
		logger:            logger.With("component", "adapter", "site", string(offer.SiteZooplus)),
	}
}

// NewBitiba returns the adapter for the bitiba storefront, which runs the
// same engine as zooplus under a different base URL.
func NewBitiba(session *fetch.Session, cfg *config.Config, logger *slog.Logger) Adapter {
	return &cardSite{
		site:              offer.SiteBitiba,
		baseURL:           "https://www.bitiba.de",
		categoryURL:       "https://www.bitiba.de/shop/katze/katzenfutter_nass",
		searchURL:         "https://www.bitiba.de/search/results",
		shopLinkPattern:   "/shop/katze/",
		categoryPath:      "katze/katzenfutter_nass",
		categoryPathCheck: "/shop/katze/katzenfutter_nass",
		session:           session,
		cfg:               cfg,
		logger:            logger.With("component", "adapter", "site", string(offer.SiteBitiba)),
	}
}

func (c *cardSite) Site() offer.Site { return c.site }

func (c *cardSite) IsWetFood(name, rawURL string) bool {
	return extract.IsWetFood(name, rawURL)
}

// FetchBrandOffers runs one bulk scan: all brands go into a single
// semicolon-joined server-side filter, results are requested sorted by
// ascending price per unit, and pagination stops early once a streak of
// consecutive items exceeds the widened ceiling.
func (c *cardSite) FetchBrandOffers(ctx context.Context, req BrandRequest, out chan<- []offer.Offer) error {
	brands := scanBrands(req)
	if len(brands) == 0 {
		return nil
	}

	canonical := make([]string, len(brands))
	for i, b := range brands {
		canonical[i] = canonicalBrand(b)
	}

	ceiling := scrapeCeiling(req.MaxPricePerKg, c.cfg.Scraper.DefaultMaxPricePerKg)
	// Server-side per-kg filter widened by the headroom so discounts that
	// pull an item into range are not filtered out before we see them.
	fetchMax := int(ceiling/0.7) + 1

	filters := fmt.Sprintf("brand=%s~price_per_kg=0;%d", strings.Join(canonical, ";"), fetchMax)
	baseURL := fmt.Sprintf("%s/shop/%s?sorting=lowest-price-per-unit&filters=%s",
		c.baseURL, c.categoryPath, url.QueryEscape(filters))

	c.logger.Info("bulk brand scan", "brands", len(canonical), "ceiling", ceiling)

	seen := make(map[string]struct{})
	overStreak := 0

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = c.cfg.Scraper.MaxPages
	}

	for page := 1; page <= maxPages; page++ {
		pageURL := baseURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&p=%d", baseURL, page)
		}

		html, err := c.session.HTML(ctx, pageURL, cardTileSelector, cardFallbackSelector)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("page fetch failed, stopping pagination", "page", page, "error", err)
			return nil
		}

		parsed, err := c.parseCards(pageURL, html)
		if err != nil {
			if errors.Is(err, offer.ErrNoTiles) && page > 1 {
				return nil // past the last page
			}
			c.logger.Warn("page parse failed, stopping pagination", "page", page, "error", err)
			return nil
		}
		if len(parsed) == 0 {
			return nil
		}

		var chunk []offer.Offer
		stop := false
		for _, o := range parsed {
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}

			if overCeiling(&o, ceiling) {
				overStreak++
				if overStreak >= earlyStopStreak {
					stop = true
					break
				}
				continue
			}
			overStreak = 0
			chunk = append(chunk, o)
		}

		if err := emit(ctx, out, chunk); err != nil {
			return err
		}
		if stop {
			c.logger.Info("early stop: price-sorted results above ceiling", "page", page)
			return nil
		}
		if len(chunk) == 0 && overStreak == 0 {
			// Whole page was duplicates; the site has started repeating.
			return nil
		}
	}
	return nil
}

// FetchReducedOffers searches with the site's "Reduziert" filter, one search
// per watched brand (or a single unfiltered search when no brands given).
// Everything returned by that filter is a confirmed discount.
func (c *cardSite) FetchReducedOffers(ctx context.Context, brands []string, out chan<- []offer.Offer) error {
	searches := brands
	if len(searches) == 0 {
		searches = []string{""}
	}

	seen := make(map[string]struct{})
	for _, brand := range searches {
		filters := "action=Reduziert"
		if brand != "" {
			filters += "~brand=" + canonicalBrand(brand)
		}
		categoryEncoded := strings.ReplaceAll(c.categoryPath, "/", "%2F")
		searchURL := fmt.Sprintf("%s?q=nassfutter&ct=%s&filters=%s",
			c.searchURL, categoryEncoded, url.QueryEscape(filters))

		html, err := c.session.HTML(ctx, searchURL, cardTileSelector, cardFallbackSelector)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("reduced search failed", "brand", brand, "error", err)
			continue
		}

		parsed, err := c.parseCards(searchURL, html)
		if err != nil {
			c.logger.Warn("reduced search yielded no tiles", "brand", brand, "error", err)
			continue
		}

		var chunk []offer.Offer
		for _, o := range parsed {
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}
			o.IsOnSale = true // the filter guarantees a real reduction
			chunk = append(chunk, o)
		}
		if err := emit(ctx, out, chunk); err != nil {
			return err
		}
	}
	return nil
}

// parseCards locates product tiles in rendered HTML via a selector cascade
// and converts each into a normalized offer. A tile that fails to convert is
// skipped; its siblings are still processed. An exhausted cascade returns
// ErrNoTiles so callers can tell an empty page from the end of a sequence.
func (c *cardSite) parseCards(pageURL, html string) ([]offer.Offer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &offer.FetchError{Site: c.site, URL: pageURL, Err: err}
	}

	cards := doc.Find(`[class*="ProductCard_productCard"]`)
	if cards.Length() == 0 {
		cards = doc.Find(`[class*="productCard"]`)
	}
	if cards.Length() == 0 {
		cards = doc.Find(`[data-testid*="product"]`)
	}
	if cards.Length() == 0 {
		cards = doc.Find(fmt.Sprintf(`a[href*=%q]`, c.shopLinkPattern)).Parent()
	}
	if cards.Length() == 0 {
		return nil, &offer.FetchError{Site: c.site, URL: pageURL, Err: offer.ErrNoTiles}
	}

	var offers []offer.Offer
	cards.Each(func(_ int, card *goquery.Selection) {
		o, err := c.parseCard(card)
		if err != nil {
			c.logger.Debug("card skipped", "error", err)
			return
		}
		offers = append(offers, *o)
	})
	return offers, nil
}

// parseCard converts one product card into an offer.
func (c *cardSite) parseCard(card *goquery.Selection) (*offer.Offer, error) {
	link := card.Find(`a[href*="/shop/"]`).First()
	href, ok := link.Attr("href")
	if !ok {
		if h, isLink := card.Attr("href"); isLink && strings.Contains(h, "/shop/") {
			href = h
		} else {
			return nil, errors.New("no product link")
		}
	}
	if !strings.HasPrefix(href, "http") {
		href = c.baseURL + href
	}

	// Category-level links surface in the same cascade as products.
	if strings.Contains(href, c.categoryPathCheck) && strings.Count(href, "/") < slashCountMin {
		return nil, errors.New("category-level url")
	}

	rawID, baseID := c.extractIDs(href)

	name := strings.TrimSpace(card.Find(nameSelectors).First().Text())
	if name == "" {
		name = strings.TrimSpace(link.Text())
	}
	name = extract.CleanName(name)
	if len(name) < 3 {
		return nil, errors.New("no usable name")
	}

	// "aktivieren" marks coupon discounts that are not active yet; strip it
	// so its percentage does not read as an applied discount.
	text := ariaBadgeClean.Replace(card.Text())
	lower := strings.ToLower(text)
	if strings.Contains(lower, "nicht lieferbar") || strings.Contains(lower, "not available") {
		return nil, errors.New("unavailable")
	}

	current, original, onSale := extract.CardPrices(text)
	if current <= 0 {
		return nil, offer.ErrNoPrice
	}

	if !c.IsWetFood(name, href) {
		return nil, offer.ErrNotWetFood
	}

	originalPerKg, _ := extract.OriginalPerKg(text, extract.AboPrices(text))

	var reducedPerKg float64
	var saleTag string
	if pct, okPct := extract.DiscountPercent(text); okPct {
		saleTag = fmt.Sprintf("-%d%% Rabatt", pct)
		if originalPerKg > 0 {
			reducedPerKg = math.Round(originalPerKg*(1-float64(pct)/100)*100) / 100
		}
	}

	brand := extract.Brand(name)
	size := extract.Size(name)

	return &offer.Offer{
		ExternalID:         string(c.site) + ":" + rawID,
		BaseProductID:      baseID,
		VariantName:        extract.Variant(name, brand, size),
		Name:               name,
		Brand:              brand,
		Size:               size,
		CurrentPrice:       current,
		OriginalPrice:      original,
		IsOnSale:           onSale,
		SaleTag:            saleTag,
		OriginalPricePerKg: originalPerKg,
		ReducedPricePerKg:  reducedPerKg,
		URL:                href,
		Site:               c.site,
	}, nil
}

// extractIDs resolves the offer and base product identifiers from a product
// URL. The activeVariant query parameter carries the full variant ID
// ("564091.13"); without it the last numeric path segment is used.
func (c *cardSite) extractIDs(rawURL string) (rawID, baseID string) {
	rawID = rawURL
	if u, err := url.Parse(rawURL); err == nil {
		if v := u.Query().Get("activeVariant"); v != "" {
			rawID = v
		} else if m := cardIDRe.FindStringSubmatch(rawURL); m != nil {
			rawID = m[1]
		}
	}
	baseID = rawID
	if i := strings.IndexByte(rawID, '.'); i >= 0 {
		baseID = rawID[:i]
	}
	return rawID, baseID
}
