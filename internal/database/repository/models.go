package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one imported accounting movement line. Entries are owned by the
// import pipeline and read-only here; archival is expressed through DeleteDate.
type LedgerEntry struct {
	ID            string
	Country       string
	AccountID     string
	SignedAmount  decimal.Decimal
	OperationDate time.Time
	RawLabel      string
	ExternalRef   string
	Category      string
	CreationDate  time.Time
	DeleteDate    *time.Time
}

// ReconRecord is the mutable reconciliation state, 1:1 with a ledger entry by ID.
type ReconRecord struct {
	ID                 string
	InvoiceID          string
	GuaranteeID        string
	PaymentRef         string
	InternalInvoiceRef string
	Action             *int64
	ActionStatus       string
	KPI                *int64
	IncidentType       *int64
	RiskyItem          *bool
	ReasonNonRisky     string
	Comments           string
	Assignee           string
	TriggerDate        *time.Time
	FirstClaimDate     *time.Time
	LastClaimDate      *time.Time
	ToRemind           bool
	ToRemindDate       *time.Time
	CreationDate       time.Time
	ModifiedBy         string
	LastModified       *time.Time
	DeleteDate         *time.Time
}

// RefInvoice is a read-only external invoice catalog row.
type RefInvoice struct {
	ID        string
	Debtor    string
	Amount    decimal.Decimal
	IssueDate *time.Time
	DueDate   *time.Time
	Status    string
}

// RefGuarantee is a read-only external guarantee catalog row.
type RefGuarantee struct {
	ID          string
	Beneficiary string
	Amount      decimal.Decimal
	IssueDate   *time.Time
	ExpiryDate  *time.Time
	Status      string
}

// Joined pairs a ledger entry with its reconciliation record, nil when the
// entry has never been touched (get-or-create happens above this layer).
type Joined struct {
	Entry  LedgerEntry
	Record *ReconRecord
}
