// Package recon holds the domain logic that turns raw ledger and
// reconciliation rows into an annotated view: canonical key resolution,
// cross-side grouping, and the ordered rule table.
package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerrecon/internal/database/repository"
)

// AccountSide classifies a ledger entry into one of the two mirrored
// accounting sides of the same economic flow.
type AccountSide int

const (
	SideUnknown AccountSide = iota
	SidePivot
	SideReceivable
)

func (s AccountSide) String() string {
	switch s {
	case SidePivot:
		return "pivot"
	case SideReceivable:
		return "receivable"
	default:
		return "unknown"
	}
}

// Tri is a three-valued condition result. Unknown means the condition could
// not be evaluated, which is not the same thing as false: a rule that needs a
// definite answer must not match on Unknown.
type Tri int

const (
	TriUnknown Tri = iota
	TriTrue
	TriFalse
)

// TriOf lifts a definite boolean into a Tri.
func TriOf(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// BalanceTolerance is the residual below which a matched group counts as
// balanced: one cent.
var BalanceTolerance = decimal.New(1, -2)

// ViewRow is the ephemeral projection served to callers: ledger entry,
// reconciliation record, resolved reference fields and computed flags.
type ViewRow struct {
	Entry  repository.LedgerEntry
	Record repository.ReconRecord

	// Resolved reference catalog fields, empty on lookup miss.
	Counterparty    string
	ReferenceStatus string
	ReferenceAmount *decimal.Decimal

	Side          AccountSide
	CanonicalKey  string
	CandidateKeys []string
	Matched       bool
	MissingAmount *decimal.Decimal

	IsNewlyAdded bool
	IsUpdated    bool

	// LinkageDirty marks a non-destructive backfill that has not been
	// persisted yet; the next save of this record writes it.
	LinkageDirty bool
}

// ID returns the shared ledger/record identifier.
func (v ViewRow) ID() string { return v.Entry.ID }

// Catalogs is an immutable snapshot of the external reference data. Refreshes
// swap the whole snapshot; nothing edits one in place.
type Catalogs struct {
	Invoices   map[string]repository.RefInvoice
	Guarantees map[string]repository.RefGuarantee
}

// NewCatalogs indexes the catalog rows by normalized key.
func NewCatalogs(invoices []repository.RefInvoice, guarantees []repository.RefGuarantee) *Catalogs {
	c := &Catalogs{
		Invoices:   make(map[string]repository.RefInvoice, len(invoices)),
		Guarantees: make(map[string]repository.RefGuarantee, len(guarantees)),
	}
	for _, v := range invoices {
		c.Invoices[NormalizeKey(v.ID)] = v
	}
	for _, g := range guarantees {
		c.Guarantees[NormalizeKey(g.ID)] = g
	}
	return c
}

// Keys returns every catalog key, used by the fuzzy linkage fallback.
func (c *Catalogs) Keys() []string {
	out := make([]string, 0, len(c.Invoices)+len(c.Guarantees))
	for k := range c.Guarantees {
		out = append(out, k)
	}
	for k := range c.Invoices {
		out = append(out, k)
	}
	return out
}

// NormalizeKey canonicalizes a reference identifier: trim, uppercase, and
// collapse the separator between the code family and the number.
func NormalizeKey(raw string) string {
	k := strings.ToUpper(strings.TrimSpace(raw))
	k = strings.ReplaceAll(k, " ", "-")
	k = strings.ReplaceAll(k, "--", "-")
	return k
}
