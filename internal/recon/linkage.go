package recon

import (
	"regexp"

	"github.com/agnivade/levenshtein"

	"github.com/jask/ledgerrecon/internal/database/repository"
)

// refTokenPattern matches the domain's reference code family (guarantee and
// invoice identifiers) inside free text: "BGI-42", "bgi 42", "INV0071".
var refTokenPattern = regexp.MustCompile(`(?i)\b(BGI|INV)[-\s]?(\d+)\b`)

// fuzzySnapMaxDistance bounds the levenshtein fallback. Distance 1 covers a
// single dropped or swapped character without letting BGI-42 claim BGI-421's
// group by accident at larger distances.
const fuzzySnapMaxDistance = 1

// Resolution is the outcome of canonical key resolution for one row.
type Resolution struct {
	// Key is the canonical grouping key, empty when nothing resolved.
	Key string
	// Candidates lists every key dimension the row belongs to. Groupings
	// are non-exclusive: a row can sit in the explicit-id group and the
	// internal-reference group at once.
	Candidates []string
	// Source names the stage that produced Key, for diagnostics.
	Source string
}

// Resolve derives the canonical reference key for one ledger row. Priority
// order, first non-empty wins: explicit linkage ids on the record, the ledger
// side's textual reference, a token extracted from free text, and the internal
// invoice reference as last resort. Resolution never mutates anything; the
// caller decides whether to backfill (see BackfillRecord). A row that resolves
// nothing gets an empty Resolution, not an error.
func Resolve(entry repository.LedgerEntry, record *repository.ReconRecord, catalogs *Catalogs) Resolution {
	var res Resolution

	if record != nil {
		switch {
		case record.GuaranteeID != "":
			res.Key = NormalizeKey(record.GuaranteeID)
			res.Source = "guarantee_id"
		case record.InvoiceID != "":
			res.Key = NormalizeKey(record.InvoiceID)
			res.Source = "invoice_id"
		case record.PaymentRef != "":
			res.Key = NormalizeKey(record.PaymentRef)
			res.Source = "payment_ref"
		}
	}

	if res.Key == "" && entry.ExternalRef != "" {
		res.Key = NormalizeKey(entry.ExternalRef)
		res.Source = "external_ref"
	}

	if res.Key == "" {
		texts := []string{entry.RawLabel}
		if record != nil {
			texts = append(texts, record.Comments, record.InternalInvoiceRef)
		}
		for _, text := range texts {
			if tok := extractToken(text, catalogs); tok != "" {
				res.Key = tok
				res.Source = "token"
				break
			}
		}
	}

	if res.Key == "" && record != nil && record.InternalInvoiceRef != "" {
		res.Key = NormalizeKey(record.InternalInvoiceRef)
		res.Source = "internal_invoice_ref"
	}

	if res.Key != "" {
		res.Candidates = append(res.Candidates, res.Key)
	}
	if record != nil && record.InternalInvoiceRef != "" {
		if k := NormalizeKey(record.InternalInvoiceRef); k != res.Key {
			res.Candidates = append(res.Candidates, k)
		}
	}
	return res
}

// extractToken pulls the first reference token out of free text and snaps a
// near-miss to a known catalog key.
func extractToken(text string, catalogs *Catalogs) string {
	m := refTokenPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	key := NormalizeKey(m[1] + "-" + m[2])
	if catalogs == nil {
		return key
	}
	if _, ok := catalogs.Guarantees[key]; ok {
		return key
	}
	if _, ok := catalogs.Invoices[key]; ok {
		return key
	}
	if snapped := fuzzySnap(key, catalogs); snapped != "" {
		return snapped
	}
	return key
}

// fuzzySnap finds the closest catalog key within the edit-distance bound.
// Ties keep the extracted token as-is rather than guessing.
func fuzzySnap(key string, catalogs *Catalogs) string {
	best := ""
	bestDist := fuzzySnapMaxDistance + 1
	ties := 0
	for _, k := range catalogs.Keys() {
		d := levenshtein.ComputeDistance(key, k)
		switch {
		case d < bestDist:
			best, bestDist, ties = k, d, 1
		case d == bestDist:
			ties++
		}
	}
	if bestDist > fuzzySnapMaxDistance || ties != 1 {
		return ""
	}
	return best
}

// BackfillRecord writes a heuristically resolved key into the matching empty
// explicit field. Non-destructive: an existing non-empty value always stands.
// Returns true when a field was filled; the caller marks the row dirty and the
// next save persists it.
func BackfillRecord(record *repository.ReconRecord, res Resolution, catalogs *Catalogs) bool {
	if record == nil || res.Key == "" {
		return false
	}
	switch res.Source {
	case "guarantee_id", "invoice_id", "payment_ref":
		return false // already explicit
	}
	if catalogs != nil {
		if _, ok := catalogs.Guarantees[res.Key]; ok && record.GuaranteeID == "" {
			record.GuaranteeID = res.Key
			return true
		}
		if _, ok := catalogs.Invoices[res.Key]; ok && record.InvoiceID == "" {
			record.InvoiceID = res.Key
			return true
		}
	}
	if record.PaymentRef == "" && res.Source != "internal_invoice_ref" {
		record.PaymentRef = res.Key
		return true
	}
	return false
}
