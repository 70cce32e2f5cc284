package sources

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Wirsuchen/wisuchen-sub003/internal/httpclient"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

// DealFeed scrapes a static HTML hot-deals listing. Unlike the API-backed
// sources there is no credential; the source is enabled by configuring its
// base URL.
type DealFeed struct {
	BaseURL string
	client  *httpclient.Client
}

func NewDealFeed(baseURL string, client *httpclient.Client) *DealFeed {
	return &DealFeed{BaseURL: baseURL, client: client}
}

func (d *DealFeed) Name() string            { return "dealfeed" }
func (d *DealFeed) Kind() models.SourceKind { return models.SourceKindDeal }
func (d *DealFeed) Configured() bool        { return d.BaseURL != "" }

func (d *DealFeed) Search(ctx context.Context, q SearchQuery) ([]models.Offer, error) {
	body, err := d.client.Get(ctx, d.BaseURL+"/deals", map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; wirsuchen-bot/1.0)",
	})
	if err != nil {
		return nil, fmt.Errorf("dealfeed fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dealfeed parse: %w", err)
	}

	var offers []models.Offer
	doc.Find("article.deal-item").Each(func(_ int, sel *goquery.Selection) {
		if q.Limit > 0 && len(offers) >= q.Limit {
			return
		}

		externalID, ok := sel.Attr("data-deal-id")
		if !ok {
			return
		}
		titleSel := sel.Find("a.deal-title").First()
		title := strings.TrimSpace(titleSel.Text())
		if title == "" {
			return
		}
		if q.Query != "" && !matchesQuery(title, q.Query) {
			return
		}

		href, _ := titleSel.Attr("href")
		price := parsePrice(sel.Find("span.deal-price").First().Text())
		originalPrice := parsePrice(sel.Find("span.deal-price-old").First().Text())

		var published time.Time
		if dt, ok := sel.Find("time").First().Attr("datetime"); ok {
			published, _ = time.Parse(time.RFC3339, dt)
		}

		offers = append(offers, models.Offer{
			Type:          models.OfferTypeAffiliate,
			Title:         title,
			Description:   strings.TrimSpace(sel.Find("p.deal-summary").First().Text()),
			Price:         price,
			OriginalPrice: originalPrice,
			OnSale:        originalPrice > price && price > 0,
			URL:           href,
			Source:        d.Name(),
			ExternalID:    externalID,
			Category:      strings.TrimSpace(sel.Find("span.deal-category").First().Text()),
			Status:        models.OfferStatusActive,
			PublishedAt:   published,
		})
	})

	return offers, nil
}

// parsePrice extracts a decimal amount from strings like "€49.99" or
// "49,99 €". Missing or malformed prices map to 0.
func parsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteByte('.')
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
