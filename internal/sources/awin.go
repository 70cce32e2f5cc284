package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/httpclient"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

const awinDefaultBaseURL = "https://api.awin.com"

// Awin fetches affiliate deals from the Awin publisher API using a bearer
// token scoped to one publisher account.
type Awin struct {
	APIToken    string
	PublisherID string
	BaseURL     string
	client      *httpclient.Client
}

func NewAwin(token, publisherID string, client *httpclient.Client) *Awin {
	return &Awin{APIToken: token, PublisherID: publisherID, BaseURL: awinDefaultBaseURL, client: client}
}

func (a *Awin) Name() string            { return "awin" }
func (a *Awin) Kind() models.SourceKind { return models.SourceKindDeal }
func (a *Awin) Configured() bool        { return a.APIToken != "" && a.PublisherID != "" }

type awinPromotion struct {
	PromotionID int    `json:"promotionId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Advertiser  struct {
		Name string `json:"name"`
	} `json:"advertiser"`
	URLTracking string `json:"urlTracking"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Voucher     struct {
		Code string `json:"code"`
	} `json:"voucher"`
}

func (a *Awin) Search(ctx context.Context, q SearchQuery) ([]models.Offer, error) {
	endpoint := fmt.Sprintf("%s/publishers/%s/promotions", a.BaseURL, a.PublisherID)
	headers := map[string]string{"Authorization": "Bearer " + a.APIToken}
	body, err := a.client.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("awin promotions: %w", err)
	}

	var promotions []awinPromotion
	if err := json.Unmarshal(body, &promotions); err != nil {
		return nil, fmt.Errorf("awin unmarshal: %w", err)
	}

	var offers []models.Offer
	for _, p := range promotions {
		if q.Query != "" && !matchesQuery(p.Title+" "+p.Description, q.Query) {
			continue
		}
		published, _ := time.Parse("2006-01-02 15:04:05", p.StartDate)
		expires, _ := time.Parse("2006-01-02 15:04:05", p.EndDate)
		offers = append(offers, models.Offer{
			Type:        models.OfferTypeAffiliate,
			Title:       p.Title,
			Description: p.Description,
			Company:     p.Advertiser.Name,
			OnSale:      true,
			URL:         p.URLTracking,
			Source:      a.Name(),
			ExternalID:  strconv.Itoa(p.PromotionID),
			Category:    p.Type,
			Status:      models.OfferStatusActive,
			PublishedAt: published,
			ExpiresAt:   expires,
		})
		if q.Limit > 0 && len(offers) >= q.Limit {
			break
		}
	}
	return offers, nil
}

// matchesQuery is the client-side filter for APIs without server-side text
// search: every whitespace-separated term must appear, case-insensitively.
func matchesQuery(haystack, query string) bool {
	haystack = strings.ToLower(haystack)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
