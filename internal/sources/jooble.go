package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Wirsuchen/wisuchen-sub003/internal/httpclient"
	"github.com/Wirsuchen/wisuchen-sub003/internal/models"
)

const joobleDefaultBaseURL = "https://jooble.org/api"

// Jooble fetches job offers from the Jooble aggregation API. The API key is
// a path segment, and search parameters go in the POST body.
type Jooble struct {
	APIKey  string
	BaseURL string
	client  *httpclient.Client
}

func NewJooble(apiKey string, client *httpclient.Client) *Jooble {
	return &Jooble{APIKey: apiKey, BaseURL: joobleDefaultBaseURL, client: client}
}

func (j *Jooble) Name() string            { return "jooble" }
func (j *Jooble) Kind() models.SourceKind { return models.SourceKindJob }
func (j *Jooble) Configured() bool        { return j.APIKey != "" }

type joobleRequest struct {
	Keywords string `json:"keywords"`
	Page     string `json:"page"`
}

type joobleResponse struct {
	TotalCount int         `json:"totalCount"`
	Jobs       []joobleJob `json:"jobs"`
}

type joobleJob struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	Location string      `json:"location"`
	Snippet  string      `json:"snippet"`
	Salary   string      `json:"salary"`
	Link     string      `json:"link"`
	Company  string      `json:"company"`
	Updated  string      `json:"updated"`
}

func (j *Jooble) Search(ctx context.Context, q SearchQuery) ([]models.Offer, error) {
	payload, err := json.Marshal(joobleRequest{Keywords: q.Query, Page: "1"})
	if err != nil {
		return nil, fmt.Errorf("jooble marshal: %w", err)
	}

	endpoint := j.BaseURL + "/" + j.APIKey
	headers := map[string]string{"Content-Type": "application/json"}
	body, err := j.client.Post(ctx, endpoint, headers, payload)
	if err != nil {
		return nil, fmt.Errorf("jooble search: %w", err)
	}

	var resp joobleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jooble unmarshal: %w", err)
	}

	limit := len(resp.Jobs)
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	offers := make([]models.Offer, 0, limit)
	for _, job := range resp.Jobs[:limit] {
		published, _ := time.Parse(time.RFC3339, job.Updated)
		offers = append(offers, models.Offer{
			Type:        models.OfferTypeJob,
			Title:       job.Title,
			Description: job.Snippet,
			Company:     job.Company,
			Location:    job.Location,
			SalaryMin:   parseSalary(job.Salary),
			URL:         job.Link,
			Source:      j.Name(),
			ExternalID:  job.ID.String(),
			Status:      models.OfferStatusActive,
			PublishedAt: published,
		})
	}
	return offers, nil
}

// parseSalary best-efforts a numeric lower bound out of Jooble's free-form
// salary strings ("45.000 €", "45000 - 60000"). Unparseable input maps to 0.
func parseSalary(s string) float64 {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			continue
		}
		if len(digits) > 0 && r != '.' {
			break
		}
	}
	if len(digits) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(string(digits), 64)
	if err != nil {
		return 0
	}
	return v
}
