package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord is the audit row written after each completed job.
// Keep it compact and schema-stable.
type DeliveryRecord struct {
	At           time.Time
	RunID        string
	JobIndex     int
	Recipient    string
	Sent         bool
	FailedFacets []string // facet kinds that exhausted their retries
	Attempts     int
	TookMS       int64
	Error        string
}
