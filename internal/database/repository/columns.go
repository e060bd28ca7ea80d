package repository

import "time"

// ReconColumn maps one mutable recon_records column to its struct field. Every
// query against the table declares its columns through this table instead of
// discovering them at runtime, so a schema drift fails loudly at the first diff.
type ReconColumn struct {
	Name  string
	Value func(r *ReconRecord) any
}

// ReconBusinessColumns lists every column the diff-aware save compares. Audit
// columns (modified_by, last_modified) are excluded: they are stamped on every
// update and never participate in the diff.
var ReconBusinessColumns = []ReconColumn{
	{"invoice_id", func(r *ReconRecord) any { return r.InvoiceID }},
	{"guarantee_id", func(r *ReconRecord) any { return r.GuaranteeID }},
	{"payment_ref", func(r *ReconRecord) any { return r.PaymentRef }},
	{"internal_invoice_ref", func(r *ReconRecord) any { return r.InternalInvoiceRef }},
	{"action", func(r *ReconRecord) any { return r.Action }},
	{"action_status", func(r *ReconRecord) any { return r.ActionStatus }},
	{"kpi", func(r *ReconRecord) any { return r.KPI }},
	{"incident_type", func(r *ReconRecord) any { return r.IncidentType }},
	{"risky_item", func(r *ReconRecord) any { return r.RiskyItem }},
	{"reason_non_risky", func(r *ReconRecord) any { return r.ReasonNonRisky }},
	{"comments", func(r *ReconRecord) any { return r.Comments }},
	{"assignee", func(r *ReconRecord) any { return r.Assignee }},
	{"trigger_date", func(r *ReconRecord) any { return r.TriggerDate }},
	{"first_claim_date", func(r *ReconRecord) any { return r.FirstClaimDate }},
	{"last_claim_date", func(r *ReconRecord) any { return r.LastClaimDate }},
	{"to_remind", func(r *ReconRecord) any { return r.ToRemind }},
	{"to_remind_date", func(r *ReconRecord) any { return r.ToRemindDate }},
	{"deleted_at", func(r *ReconRecord) any { return r.DeleteDate }},
}

// linkageColumns are the columns whose change shifts a row's canonical grouping
// key. A save touching any of them invalidates the country cache instead of
// taking the in-place patch path.
var linkageColumns = map[string]bool{
	"invoice_id":           true,
	"guarantee_id":         true,
	"payment_ref":          true,
	"internal_invoice_ref": true,
}

// IsLinkageColumn reports whether col participates in canonical key resolution.
func IsLinkageColumn(col string) bool { return linkageColumns[col] }

// ColumnEqual compares two column values with null-aware semantics: two nil
// pointers are equal, a nil and a non-nil are not, times compare with Equal.
func ColumnEqual(a, b any) bool {
	switch av := a.(type) {
	case *int64:
		bv, ok := b.(*int64)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return *av == *bv
	case *bool:
		bv, ok := b.(*bool)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return *av == *bv
	case *time.Time:
		bv, ok := b.(*time.Time)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return av.Equal(*bv)
	default:
		return a == b
	}
}
