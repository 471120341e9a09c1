// Package domain holds the catalog sync types and the ports the engine drives
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SourceRecord is one product as the remote catalog reports it, narrowed to
// the fields the sync needs. Raw keeps the original payload and is never inspected.
type SourceRecord struct {
	SKU         string          `json:"sku" validate:"sku"`
	ExternalID  string          `json:"id_meli"`
	SalePrice   float64         `json:"meli_sale_price" validate:"gte=0"`
	Stock       int             `json:"stock_quantity"`
	Status      string          `json:"meli_status"`
	LeadTime    *string         `json:"manufacturing_time"`
	ListingType string          `json:"listing_type_id"`
	Raw         json.RawMessage `json:"-"`
}

// Fingerprint is the hex digest over a record's sync-relevant fields
type Fingerprint string

// ChangedRecord is a record whose fingerprint differs from the stored one
type ChangedRecord struct {
	SKU         string
	Fingerprint Fingerprint
	Record      SourceRecord
}

// TargetStatus is the two-valued status the target store accepts
type TargetStatus string

const (
	StatusActive   TargetStatus = "active"
	StatusInactive TargetStatus = "inactive"
)

// TargetUpdateRecord is the projection of a SourceRecord the target store upserts
type TargetUpdateRecord struct {
	SKU          string
	Price        decimal.Decimal
	Stock        int
	Status       TargetStatus
	LeadTimeDays *int
}

// Mode selects the pagination contract of one deployment
type Mode string

const (
	ModeCursor Mode = "cursor"
	ModePages  Mode = "pages"
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomeRunning    Outcome = "running"
	OutcomeOK         Outcome = "ok"
	OutcomeFailed     Outcome = "failed"
	OutcomeLockDenied Outcome = "lock_denied"
)

// SyncStats aggregates one run. Only the orchestrator mutates it.
//
// Fetched counts records handed to change detection (after listing-type
// filtering); Skipped counts fetched records that had not changed.
type SyncStats struct {
	RunID   string  `json:"run_id"`
	Seller  string  `json:"seller"`
	Mode    Mode    `json:"mode"`
	Outcome Outcome `json:"outcome"`

	Fetched       int   `json:"fetched"`
	Changed       int   `json:"changed"`
	Updated       int64 `json:"updated"`
	HashesUpdated int   `json:"hashes_updated"`
	Skipped       int   `json:"skipped"`
	Filtered      int   `json:"filtered"`
	Rejected      int   `json:"rejected"`

	Pages       int `json:"pages"`
	FailedPages int `json:"failed_pages"`
	Batches     int `json:"batches"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// Duration is EndedAt-StartedAt, or zero while unset
func (s SyncStats) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// ChangeRate is Changed/Fetched as a percentage
func (s SyncStats) ChangeRate() float64 {
	if s.Fetched == 0 {
		return 0
	}
	return float64(s.Changed) / float64(s.Fetched) * 100
}
