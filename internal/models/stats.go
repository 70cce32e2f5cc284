package models

// SyncStats is the write-once summary of a single sync run.
type SyncStats struct {
	New             int `json:"new"`
	Updated         int `json:"updated"`
	Skipped         int `json:"skipped"`
	Errors          int `json:"errors"`
	TotalInDatabase int `json:"totalInDatabase"`
}
