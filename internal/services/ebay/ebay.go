package ebay

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"flip-finder/internal/market"
	"flip-finder/internal/models"
	"flip-finder/internal/pacing"
)

const sourceName = "ebay"

// maxComparables caps how many sold listings one lookup keeps.
const maxComparables = 20

// Scraper fetches sold-listing comparables from eBay search results
// through a headless browser. The browser allocator lives for the
// scraper's lifetime; Close must be called to release it.
type Scraper struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	logger      *log.Logger
	clock       pacing.Clock
	pace        time.Duration
}

// NewScraper builds the browser allocator. chromeBin overrides the
// browser binary when set.
func NewScraper(chromeBin string, logger *log.Logger, clock pacing.Clock, pace time.Duration) *Scraper {
	if logger == nil {
		logger = log.Default()
	}
	if clock == nil {
		clock = pacing.RealClock{}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Scraper{
		allocCtx: silentCtx,
		cancelAlloc: func() {
			cancelSilent()
			cancelAlloc()
		},
		logger: logger,
		clock:  clock,
		pace:   pace,
	}
}

// Close releases the browser allocator. Safe to call more than once.
func (s *Scraper) Close() {
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
}

type cardData struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Shipping string `json:"shipping"`
	SoldDate string `json:"soldDate"`
	URL      string `json:"url"`
}

// FetchMarketPrice searches sold and completed listings for query and
// aggregates them. Returns nil when no comparables are found or the
// page cannot be loaded; lookup failure is not an error to the caller.
func (s *Scraper) FetchMarketPrice(ctx context.Context, query, category string) *models.MarketPrice {
	searchURL := fmt.Sprintf(
		"https://www.ebay.com/sch/i.html?_nkw=%s&LH_Sold=1&LH_Complete=1&_sop=13",
		url.QueryEscape(query))

	pageCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()

	pageCtx, cancelTimeout := context.WithTimeout(pageCtx, 60*time.Second)
	defer cancelTimeout()

	// Honor the caller's deadline too.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-pageCtx.Done():
		}
	}()

	var cards []cardData
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(searchURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(`
			(function() {
				var out = [];
				var items = document.querySelectorAll('li.s-item, li.s-card');
				for (var i = 0; i < items.length && out.length < `+fmt.Sprint(maxComparables)+`; i++) {
					var el = items[i];
					var titleEl = el.querySelector('.s-item__title, .s-card__title');
					var priceEl = el.querySelector('.s-item__price, .s-card__price');
					var shipEl = el.querySelector('.s-item__shipping, .s-card__shipping');
					var soldEl = el.querySelector('.s-item__caption, .s-item__title--tag, .s-card__caption');
					var linkEl = el.querySelector('a.s-item__link, a[href*="/itm/"]');
					if (!titleEl || !priceEl) continue;
					var title = titleEl.textContent.trim();
					if (!title || title.toLowerCase().indexOf('shop on ebay') !== -1) continue;
					out.push({
						title: title,
						price: priceEl.textContent.trim(),
						shipping: shipEl ? shipEl.textContent.trim() : '',
						soldDate: soldEl ? soldEl.textContent.replace(/^Sold\s*/i, '').trim() : '',
						url: linkEl ? linkEl.href : ''
					});
				}
				return out;
			})()
		`, &cards),
	)
	if err != nil {
		s.logger.Printf("ebay lookup %q: %v", query, err)
		return nil
	}

	listings := cardsToListings(cards)
	if len(listings) == 0 {
		s.logger.Printf("ebay lookup %q: no sold comparables", query)
		return nil
	}

	s.logger.Printf("ebay lookup %q: %d comparables", query, len(listings))
	return market.BuildMarketPrice(sourceName, query, listings)
}

// cardsToListings converts scraped result cards into sold listings,
// dropping cards whose price cannot be parsed. Search cards do not
// expose item condition, so it is left empty.
func cardsToListings(cards []cardData) []models.SoldListing {
	listings := make([]models.SoldListing, 0, len(cards))
	for _, c := range cards {
		price := market.ParsePrice(c.Price)
		if price <= 0 {
			continue
		}
		listings = append(listings, models.SoldListing{
			Title:        c.Title,
			Price:        price,
			SoldDate:     c.SoldDate,
			URL:          c.URL,
			ShippingCost: market.ParsePrice(c.Shipping),
		})
	}
	return listings
}

// FetchMarketPrices runs lookups sequentially with a pacing delay
// between requests. Results are keyed by query; queries with no data
// are absent from the map.
func (s *Scraper) FetchMarketPrices(ctx context.Context, queries []string, category string) map[string]*models.MarketPrice {
	out := make(map[string]*models.MarketPrice, len(queries))
	for i, q := range queries {
		if i > 0 {
			if err := s.clock.Sleep(ctx, s.pace); err != nil {
				return out
			}
		}
		if mp := s.FetchMarketPrice(ctx, q, category); mp != nil {
			out[q] = mp
		}
	}
	return out
}
