package audit

import (
	"time"

	"github.com/hostelcore/hostelcore/internal/authz"
)

// Actions recorded on the authorization audit trail.
const (
	ActionUpdate = "update"
	ActionReset  = "reset"
)

// MaxReasonLength bounds the free-text reason accepted on a mutation.
const MaxReasonLength = 500

// Record is one append-only entry on the authorization audit trail. Before and
// After carry the full override values verbatim, so any historical effective
// snapshot can be reconstructed by replaying records against the role catalog.
// Records are never updated or deleted.
type Record struct {
	ID         string         `json:"id"`
	Target     string         `json:"target"`
	Action     string         `json:"action"`
	ChangedBy  int64          `json:"changedBy"`
	Reason     string         `json:"reason,omitempty"`
	Before     authz.Override `json:"beforeOverride"`
	After      authz.Override `json:"afterOverride"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Filters narrows trail listings to one target subject.
type Filters struct {
	Target   string
	Page     int
	PageSize int
}

// PagingInfo holds simple pagination metadata.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
}

// Result bundles a trail page with paging metadata.
type Result struct {
	Rows   []Record
	Paging PagingInfo
}
