package mercari

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

const baseURL = "https://api.mercari.com/v2/search"

// SearchParams filter a Mercari search. Zero values mean "no filter".
type SearchParams struct {
	Keywords    string
	Category    string
	Condition   string
	MinPrice    float64
	MaxPrice    float64
	IncludeSold bool
}

// Item is one raw search result as Mercari returns it.
type Item struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Condition    string  `json:"condition"`
	Brand        string  `json:"brand"`
	Category     string  `json:"category"`
	ShippingCost float64 `json:"shipping_cost"`
	SellerName   string  `json:"seller_username"`
	ImageURLs    []string `json:"image_urls"`
	URL          string  `json:"url"`
	IsSold       bool    `json:"is_sold"`
}

// Maps the shared condition values onto Mercari's numeric filter codes.
var conditionCodes = map[string]string{
	"new":      "1",
	"like_new": "2",
	"good":     "3",
	"fair":     "4",
}

// Client searches the Mercari catalog. The credential is optional;
// unauthenticated requests still work for public search.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *log.Logger
}

func NewClient(apiKey string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:   resty.New().SetTimeout(30 * time.Second),
		apiKey: apiKey,
		logger: logger,
	}
}

type searchResponse struct {
	Items []struct {
		ID                   string   `json:"id"`
		Name                 string   `json:"name"`
		Description          string   `json:"description"`
		Price                float64  `json:"price"`
		ConditionDescription string   `json:"condition_description"`
		Brand                string   `json:"brand"`
		Category             string   `json:"category"`
		ShippingCost         float64  `json:"shipping_cost"`
		SellerUsername       string   `json:"seller_username"`
		ImageURLs            []string `json:"image_urls"`
		Status               string   `json:"status"`
	} `json:"items"`
}

// Search runs a filtered search. Network or API errors are logged and
// return an empty slice, never an error: a failed marketplace lookup
// must not stop a scan.
func (c *Client) Search(ctx context.Context, p SearchParams) []Item {
	params := map[string]string{
		"keyword": p.Keywords,
		"limit":   "100",
	}
	if p.Category != "" {
		params["category_id"] = p.Category
	}
	if p.Condition != "" {
		if code, ok := conditionCodes[p.Condition]; ok {
			params["condition"] = code
		} else {
			params["condition"] = p.Condition
		}
	}
	if p.MinPrice > 0 {
		params["price_min"] = fmt.Sprintf("%.0f", p.MinPrice)
	}
	if p.MaxPrice > 0 {
		params["price_max"] = fmt.Sprintf("%.0f", p.MaxPrice)
	}
	if !p.IncludeSold {
		params["status"] = "on_sale"
	}

	req := c.http.R().SetContext(ctx).SetQueryParams(params)
	if c.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+c.apiKey)
	}

	var out searchResponse
	resp, err := req.SetResult(&out).Get(baseURL)
	if err != nil {
		c.logger.Printf("mercari search %q: %v", p.Keywords, err)
		return []Item{}
	}
	if resp.IsError() {
		c.logger.Printf("mercari search %q: status %d", p.Keywords, resp.StatusCode())
		return []Item{}
	}

	items := make([]Item, 0, len(out.Items))
	for _, it := range out.Items {
		items = append(items, Item{
			ID:           it.ID,
			Title:        it.Name,
			Description:  it.Description,
			Price:        it.Price,
			Condition:    it.ConditionDescription,
			Brand:        it.Brand,
			Category:     it.Category,
			ShippingCost: it.ShippingCost,
			SellerName:   it.SellerUsername,
			ImageURLs:    it.ImageURLs,
			URL:          "https://mercari.com/item/" + it.ID,
			IsSold:       it.Status == "sold",
		})
	}
	c.logger.Printf("mercari search %q: %d results", p.Keywords, len(items))
	return items
}
