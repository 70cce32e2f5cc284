package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/httpclient"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

const adzunaDefaultBaseURL = "https://api.adzuna.com/v1/api/jobs"

// Adzuna fetches job offers from the Adzuna public API. With missing
// credentials the source reports unconfigured and is skipped upstream.
type Adzuna struct {
	AppID   string
	AppKey  string
	Country string // "de", "gb", "us", ...
	BaseURL string
	client  *httpclient.Client
}

func NewAdzuna(appID, appKey, country string, client *httpclient.Client) *Adzuna {
	return &Adzuna{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		BaseURL: adzunaDefaultBaseURL,
		client:  client,
	}
}

func (a *Adzuna) Name() string            { return "adzuna" }
func (a *Adzuna) Kind() models.SourceKind { return models.SourceKindJob }
func (a *Adzuna) Configured() bool        { return a.AppID != "" && a.AppKey != "" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
	Category    struct {
		Label string `json:"label"`
	} `json:"category"`
}

func (a *Adzuna) Search(ctx context.Context, q SearchQuery) ([]models.Offer, error) {
	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(q.Limit))
	params.Set("what", q.Query)
	params.Set("sort_by", "date")
	if q.Category != "" {
		params.Set("category", q.Category)
	}

	endpoint := fmt.Sprintf("%s/%s/search/1?%s", a.BaseURL, a.Country, params.Encode())
	body, err := a.client.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("adzuna search: %w", err)
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("adzuna unmarshal: %w", err)
	}

	offers := make([]models.Offer, 0, len(resp.Results))
	for _, r := range resp.Results {
		published, _ := time.Parse(time.RFC3339, r.Created)
		offers = append(offers, models.Offer{
			Type:        models.OfferTypeJob,
			Title:       r.Title,
			Description: r.Description,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			SalaryMin:   r.SalaryMin,
			SalaryMax:   r.SalaryMax,
			URL:         r.RedirectURL,
			Source:      a.Name(),
			ExternalID:  r.ID,
			Category:    r.Category.Label,
			Status:      models.OfferStatusActive,
			PublishedAt: published,
		})
	}
	return offers, nil
}
