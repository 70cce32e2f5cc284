package models

import "time"

type SourceKind string

const (
	SourceKindJob  SourceKind = "job"
	SourceKindDeal SourceKind = "affiliate"
)

// Source describes a registered provider. Enabled is derived from credential
// presence at startup; LastImportAt is bumped by the sync engine after each
// successful per-source import.
type Source struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Kind         SourceKind `json:"kind"`
	Enabled      bool       `json:"enabled"`
	LastImportAt time.Time  `json:"lastImportAt,omitempty"`
}
