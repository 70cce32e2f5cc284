package models

import (
	"errors"
	"time"
)

// ErrOfferExists is returned when attempting to create an offer whose dedup
// key is already present in canonical storage.
var ErrOfferExists = errors.New("offer already exists")

// ErrAllProvidersFailed is returned when every enabled source failed, or no
// source was enabled for the request at all.
var ErrAllProvidersFailed = errors.New("all providers failed or none enabled")

// ErrRateLimited is returned when an identity's request budget for the
// current window is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

type OfferType string

const (
	OfferTypeJob       OfferType = "job"
	OfferTypeAffiliate OfferType = "affiliate"
)

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

// Offer is the normalized shape every provider response is mapped into.
// ID is the canonical internal identifier and is independent of the
// provider-native ExternalID; the pair (Source, ExternalID) forms the dedup
// key used for merging and reconciliation.
type Offer struct {
	ID            string      `json:"id"`
	Type          OfferType   `json:"type"`
	Title         string      `json:"title" validate:"required"`
	Description   string      `json:"description,omitempty"`
	Company       string      `json:"company,omitempty"`
	Location      string      `json:"location,omitempty"`
	SalaryMin     float64     `json:"salaryMin,omitempty"`
	SalaryMax     float64     `json:"salaryMax,omitempty"`
	Price         float64     `json:"price,omitempty"`
	OriginalPrice float64     `json:"originalPrice,omitempty"`
	OnSale        bool        `json:"onSale,omitempty"`
	URL           string      `json:"url,omitempty" validate:"omitempty,url"`
	Source        string      `json:"source" validate:"required"`
	ExternalID    string      `json:"externalId" validate:"required"`
	Category      string      `json:"category,omitempty"`
	Status        OfferStatus `json:"status"`
	Featured      bool        `json:"featured,omitempty"`
	Urgent        bool        `json:"urgent,omitempty"`
	PublishedAt   time.Time   `json:"publishedAt"`
	ExpiresAt     time.Time   `json:"expiresAt,omitempty"`
}

// DedupKey derives the stable merge identity for a provider-sourced offer.
func (o Offer) DedupKey() string {
	return o.Source + ":" + o.ExternalID
}

// ContentEquals reports whether the tracked mutable fields match. Fields set
// administratively (Status, Featured) are deliberately excluded so a sync run
// never reverts a manual correction.
func (o Offer) ContentEquals(other Offer) bool {
	return o.Title == other.Title &&
		o.Description == other.Description &&
		o.Location == other.Location &&
		o.SalaryMin == other.SalaryMin &&
		o.SalaryMax == other.SalaryMax &&
		o.ExpiresAt.Equal(other.ExpiresAt)
}
