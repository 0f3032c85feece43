package sites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/extract"
	"github.com/futterwatch/futterwatch/internal/fetch"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// fressnapfSite scrapes a client-rendered storefront whose teaser cards
// expose each field under a stable utility class. The category listing has
// no usable brand filter, so a scan walks the wet-food category and
// classifies tiles by their displayed brand; tiles without a recognizable
// brand are discarded.
type fressnapfSite struct {
	session *fetch.Session
	cfg     *config.Config
	logger  *slog.Logger
}

const (
	fressnapfBase        = "https://www.fressnapf.de"
	fressnapfCategoryURL = "https://www.fressnapf.de/c/katze/katzenfutter/nassfutter/"
	fressnapfReducedURL  = "https://www.fressnapf.de/c/katze/katzenfutter/nassfutter/?facet=reduced"

	fressnapfCard       = ".product-teaser"
	fressnapfBrandSel   = ".product-teaser__brand"
	fressnapfNameSel    = ".product-teaser__name"
	fressnapfPriceSel   = ".product-teaser__price-current"
	fressnapfStrikeSel  = ".product-teaser__price-strike"
	fressnapfPerUnitSel = ".product-teaser__base-price"
	fressnapfBadgeSel   = ".product-teaser__badge"
)

// NewFressnapf returns the teaser-card adapter.
func NewFressnapf(session *fetch.Session, cfg *config.Config, logger *slog.Logger) Adapter {
	return &fressnapfSite{
		session: session,
		cfg:     cfg,
		logger:  logger.With("component", "adapter", "site", string(offer.SiteFressnapf)),
	}
}

func (f *fressnapfSite) Site() offer.Site { return offer.SiteFressnapf }

// IsWetFood only excludes obvious non-food: the scan is already scoped to
// the wet-food category.
func (f *fressnapfSite) IsWetFood(name, _ string) bool {
	return !extract.IsObviousNonFood(name)
}

// FetchBrandOffers walks the category pages and keeps tiles whose brand
// matches the resolved watch set. Without a server-side brand filter the
// early-termination heuristic of the filterable sites does not apply;
// pagination stops on the first empty page.
func (f *fressnapfSite) FetchBrandOffers(ctx context.Context, req BrandRequest, out chan<- []offer.Offer) error {
	brands := scanBrands(req)
	ceiling := scrapeCeiling(req.MaxPricePerKg, f.cfg.Scraper.DefaultMaxPricePerKg)
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = f.cfg.Scraper.MaxPages
	}

	f.logger.Info("category scan", "brands", len(brands), "maxPages", maxPages)

	seen := make(map[string]struct{})
	for page := 1; page <= maxPages; page++ {
		pageURL := fressnapfCategoryURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s?page=%d", fressnapfCategoryURL, page)
		}

		offers, err := f.fetchPage(ctx, pageURL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.logger.Warn("page failed, stopping", "page", page, "error", err)
			return nil
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
			if o.Brand == "" {
				continue
			}
			if len(brands) > 0 && !MatchesWatchedBrand(o.Brand, brands) {
				continue
			}
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

// FetchReducedOffers scans the reduced facet of the category and keeps
// on-sale tiles matching the watch list.
func (f *fressnapfSite) FetchReducedOffers(ctx context.Context, brands []string, out chan<- []offer.Offer) error {
	offers, err := f.fetchPage(ctx, fressnapfReducedURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		f.logger.Warn("reduced scan failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var chunk []offer.Offer
	for _, o := range offers {
		if !o.IsOnSale || o.Brand == "" {
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

// fetchPage renders one listing page and parses its teaser cards.
func (f *fressnapfSite) fetchPage(ctx context.Context, pageURL string) ([]offer.Offer, error) {
	html, err := f.session.HTML(ctx, pageURL, fressnapfCard, "[class*='product']")
	if err != nil {
		return nil, &offer.FetchError{Site: offer.SiteFressnapf, URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &offer.ExtractError{Site: offer.SiteFressnapf, URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}

	var offers []offer.Offer
	doc.Find(fressnapfCard).Each(func(_ int, card *goquery.Selection) {
		o, err := f.parseCard(card)
		if err != nil {
			f.logger.Debug("card skipped", "error", err)
			return
		}
		offers = append(offers, *o)
	})
	return offers, nil
}

// parseCard reads one teaser card. The current price sits in its own
// element; a strike price above it marks a discount.
func (f *fressnapfSite) parseCard(card *goquery.Selection) (*offer.Offer, error) {
	link := card.Find("a[href]").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return nil, errors.New("card without link")
	}
	if strings.HasPrefix(href, "/") {
		href = fressnapfBase + href
	}

	brand := strings.TrimSpace(card.Find(fressnapfBrandSel).First().Text())
	name := strings.TrimSpace(card.Find(fressnapfNameSel).First().Text())
	if name == "" {
		return nil, errors.New("card without name")
	}
	fullName := name
	if brand != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(brand)) {
		fullName = brand + " " + name
	}
	fullName = extract.CleanName(fullName)

	if !f.IsWetFood(fullName, href) {
		return nil, offer.ErrNotWetFood
	}

	current, ok := extract.Price(card.Find(fressnapfPriceSel).First().Text())
	if !ok || current <= 0 {
		return nil, offer.ErrNoPrice
	}

	original := current
	onSale := false
	saleTag := ""
	if strike, okStrike := extract.Price(card.Find(fressnapfStrikeSel).First().Text()); okStrike && strike > current {
		original = strike
		onSale = true
		saleTag = strings.TrimSpace(card.Find(fressnapfBadgeSel).First().Text())
		if saleTag == "" {
			saleTag = "Reduziert"
		}
	}

	size := extract.Size(fullName)
	weight := extract.WeightGrams(fullName)

	originalPerKg := extract.PricePerKg(original, weight)
	var reducedPerKg float64
	if onSale {
		reducedPerKg = extract.PricePerKg(current, weight)
	}
	// The listed base price refers to the price actually charged; when it
	// can be read it corrects rounding drift from the weight heuristic.
	if perUnit, okUnit := firstPerUnitPrice(card.Find(fressnapfPerUnitSel).First().Text()); okUnit {
		if onSale {
			reducedPerKg = perUnit
		} else {
			originalPerKg = perUnit
		}
	}

	if brand == "" {
		brand = extract.Brand(fullName)
	}

	externalID, baseID := fressnapfIDs(href)
	return &offer.Offer{
		ExternalID:         externalID,
		BaseProductID:      baseID,
		VariantName:        extract.Variant(fullName, brand, size),
		Name:               fullName,
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
		Site:               offer.SiteFressnapf,
	}, nil
}

// firstPerUnitPrice reads a "(NN,NN € / 1 kg)" style base-price annotation,
// accepting only per-kilogram units. With several annotations the lowest
// amount wins, keeping the choice deterministic.
func firstPerUnitPrice(text string) (float64, bool) {
	set := extract.PerUnitPrices(text)
	if len(set) == 0 || !strings.Contains(strings.ToLower(text), "kg") {
		return 0, false
	}
	best := 0.0
	for v := range set {
		if best == 0 || v < best {
			best = v
		}
	}
	return best, true
}

// fressnapfIDs derives IDs from the trailing numeric article segment of a
// product URL, falling back to the slug.
func fressnapfIDs(rawURL string) (externalID, baseID string) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.Trim(u.Path, "/")
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	// Article URLs end in "-<digits>"; the numeric tail identifies the
	// variant and the slug without it the base product.
	baseID = path
	id := path
	if i := strings.LastIndexByte(path, '-'); i >= 0 && i < len(path)-1 {
		tail := path[i+1:]
		numeric := true
		for _, c := range tail {
			if c < '0' || c > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			id = tail
			baseID = path[:i]
		}
	}
	return string(offer.SiteFressnapf) + ":" + id, baseID
}
