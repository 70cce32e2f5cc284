package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a normalized search request. Validation tags are enforced at the
// HTTP boundary before any provider is contacted.
type Params struct {
	Query       string   `validate:"omitempty,max=200"`
	Category    string   `validate:"omitempty,max=100"`
	MinPrice    float64  `validate:"gte=0"`
	MaxPrice    float64  `validate:"gte=0"`
	OnSale      bool
	Page        int      `validate:"min=1"`
	Limit       int      `validate:"min=1,max=100"`
	Sources     []string `validate:"dive,alphanum"`
	BypassCache bool
}

// Normalize applies defaults and canonicalizes fields so that equivalent
// requests produce the same cache key.
func (p *Params) Normalize() {
	p.Query = strings.ToLower(strings.TrimSpace(p.Query))
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	for i, s := range p.Sources {
		p.Sources[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(p.Sources)
}

// CacheKey hashes the normalized parameters in a stable field order.
func (p Params) CacheKey() string {
	canonical := fmt.Sprintf("q=%s|cat=%s|min=%g|max=%g|sale=%t|page=%d|limit=%d|src=%s",
		p.Query, p.Category, p.MinPrice, p.MaxPrice, p.OnSale, p.Page, p.Limit,
		strings.Join(p.Sources, ","))
	sum := sha256.Sum256([]byte(canonical))
	return "search:" + hex.EncodeToString(sum[:])
}
