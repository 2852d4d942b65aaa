package models

import "time"

// ArchiveCursor marks how far the event log has been exported under one
// object prefix. Boundary holds the ids already exported with OccurredAt == Since.
type ArchiveCursor struct {
	Prefix    string
	Since     time.Time
	Boundary  []string
	UpdatedAt time.Time
}
