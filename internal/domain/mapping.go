package domain

import "time"

// MagicMapping redirects one magic number to another.
// FromMagic is the unique key; a later upsert for the same FromMagic
// replaces the previous target. Applied to new rows at ingestion time.
type MagicMapping struct {
	FromMagic int64
	ToMagic   int64
	CreatedAt time.Time
}
