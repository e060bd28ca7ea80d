package repository

import (
	"context"
	"database/sql"
	"time"
)

// LedgerRepo reads imported ledger entries. The import pipeline owns writes;
// Insert exists for that pipeline and for test fixtures.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Insert(ctx context.Context, e LedgerEntry) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ledger_entries(
	 id, country, account_id, signed_amount, operation_date, raw_label,
	 external_ref, category, created_at, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Country, e.AccountID, e.SignedAmount, e.OperationDate, e.RawLabel,
		e.ExternalRef, e.Category, e.CreationDate, e.DeleteDate)
	return err
}

// joinedSelect declares every column QueryJoined scans, in scan order.
const joinedSelect = `
	SELECT
		l.id, l.country, l.account_id, l.signed_amount, l.operation_date,
		l.raw_label, l.external_ref, l.category, l.created_at, l.deleted_at,
		r.id,
		COALESCE(r.invoice_id, ''), COALESCE(r.guarantee_id, ''),
		COALESCE(r.payment_ref, ''), COALESCE(r.internal_invoice_ref, ''),
		r.action, COALESCE(r.action_status, ''), r.kpi, r.incident_type,
		r.risky_item, COALESCE(r.reason_non_risky, ''), COALESCE(r.comments, ''),
		COALESCE(r.assignee, ''), r.trigger_date, r.first_claim_date,
		r.last_claim_date, COALESCE(r.to_remind, 0), r.to_remind_date,
		r.created_at, COALESCE(r.modified_by, ''), r.last_modified, r.deleted_at
	FROM ledger_entries l
	LEFT JOIN recon_records r ON r.id = l.id
	WHERE 1=1
`

// QueryJoined fetches the ledger/recon join for one country. fragment is a
// sanitized predicate slotted into the WHERE clause; it must already have been
// through recon.SanitizeFragment — this layer does not vet it again.
func (r *LedgerRepo) QueryJoined(ctx context.Context, country, fragment string, includeDeleted bool) ([]Joined, error) {
	args := []any{country}
	query := joinedSelect + ` AND l.country = ?`
	if !includeDeleted {
		query += ` AND l.deleted_at IS NULL`
	}
	if fragment != "" {
		query += ` AND (` + fragment + `)`
	}
	query += ` ORDER BY l.operation_date ASC, l.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Joined, 0, 256)
	for rows.Next() {
		var j Joined
		var rec ReconRecord
		var recID *string
		var recCreated *time.Time
		var remind int64
		if err := rows.Scan(
			&j.Entry.ID, &j.Entry.Country, &j.Entry.AccountID, &j.Entry.SignedAmount,
			&j.Entry.OperationDate, &j.Entry.RawLabel, &j.Entry.ExternalRef,
			&j.Entry.Category, &j.Entry.CreationDate, &j.Entry.DeleteDate,
			&recID,
			&rec.InvoiceID, &rec.GuaranteeID, &rec.PaymentRef, &rec.InternalInvoiceRef,
			&rec.Action, &rec.ActionStatus, &rec.KPI, &rec.IncidentType,
			&rec.RiskyItem, &rec.ReasonNonRisky, &rec.Comments,
			&rec.Assignee, &rec.TriggerDate, &rec.FirstClaimDate,
			&rec.LastClaimDate, &remind, &rec.ToRemindDate,
			&recCreated, &rec.ModifiedBy, &rec.LastModified, &rec.DeleteDate,
		); err != nil {
			return nil, err
		}
		if recID != nil {
			rec.ID = *recID
			rec.ToRemind = remind != 0
			if recCreated != nil {
				rec.CreationDate = *recCreated
			}
			j.Record = &rec
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
