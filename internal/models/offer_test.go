package models

import (
	"testing"
	"time"
)

func TestDedupKey(t *testing.T) {
	o := Offer{Source: "adzuna", ExternalID: "4001"}
	if o.DedupKey() != "adzuna:4001" {
		t.Errorf("Expected adzuna:4001, got %q", o.DedupKey())
	}

	other := Offer{Source: "jooble", ExternalID: "4001"}
	if o.DedupKey() == other.DedupKey() {
		t.Error("Expected the same provider id on different sources to yield different keys")
	}
}

func TestContentEquals_IgnoresAdminFields(t *testing.T) {
	base := Offer{
		Title:       "Developer",
		Description: "Go backend",
		Location:    "Berlin",
		SalaryMin:   50000,
		ExpiresAt:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		Status:      OfferStatusActive,
	}

	rejected := base
	rejected.Status = OfferStatusRejected
	rejected.Featured = true
	if !base.ContentEquals(rejected) {
		t.Error("Expected admin-set fields to be excluded from the content comparison")
	}

	retitled := base
	retitled.Title = "Senior Developer"
	if base.ContentEquals(retitled) {
		t.Error("Expected title change to be detected")
	}

	extended := base
	extended.ExpiresAt = extended.ExpiresAt.AddDate(0, 1, 0)
	if base.ContentEquals(extended) {
		t.Error("Expected expiry change to be detected")
	}
}
