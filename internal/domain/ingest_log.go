package domain

import "time"

// IngestLogEntry records the outcome of a single feed refresh.
type IngestLogEntry struct {
	Source       string
	LastUpdate   time.Time
	RecordsAdded int
	SkippedRows  int
	Status       string // IngestStatusSuccess | IngestStatusError
}

// Ingest log status values
const (
	IngestStatusSuccess = "success"
	IngestStatusError   = "error"
)
