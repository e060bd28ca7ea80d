package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// ReconRepo handles reconciliation records.
type ReconRepo struct{ db *sql.DB }

func NewReconRepo(db *sql.DB) *ReconRepo { return &ReconRepo{db: db} }

const reconSelect = `
	SELECT id, invoice_id, guarantee_id, payment_ref, internal_invoice_ref,
	       action, action_status, kpi, incident_type, risky_item,
	       reason_non_risky, comments, assignee,
	       trigger_date, first_claim_date, last_claim_date,
	       to_remind, to_remind_date,
	       created_at, modified_by, last_modified, deleted_at
	FROM recon_records WHERE id = ?
`

func scanRecon(row *sql.Row) (*ReconRecord, error) {
	var rec ReconRecord
	var remind int64
	err := row.Scan(
		&rec.ID, &rec.InvoiceID, &rec.GuaranteeID, &rec.PaymentRef, &rec.InternalInvoiceRef,
		&rec.Action, &rec.ActionStatus, &rec.KPI, &rec.IncidentType, &rec.RiskyItem,
		&rec.ReasonNonRisky, &rec.Comments, &rec.Assignee,
		&rec.TriggerDate, &rec.FirstClaimDate, &rec.LastClaimDate,
		&remind, &rec.ToRemindDate,
		&rec.CreationDate, &rec.ModifiedBy, &rec.LastModified, &rec.DeleteDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.ToRemind = remind != 0
	return &rec, nil
}

// Get returns the stored record, or nil when the entry has never been saved.
func (r *ReconRepo) Get(ctx context.Context, id string) (*ReconRecord, error) {
	return scanRecon(r.db.QueryRowContext(ctx, reconSelect, id))
}

// GetTx is Get inside an open save transaction, so the diff reads the same
// snapshot the update will write against.
func (r *ReconRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (*ReconRecord, error) {
	return scanRecon(tx.QueryRowContext(ctx, reconSelect, id))
}

// InsertTx writes a full record.
func (r *ReconRepo) InsertTx(ctx context.Context, tx *sql.Tx, rec *ReconRecord) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO recon_records(
	 id, invoice_id, guarantee_id, payment_ref, internal_invoice_ref,
	 action, action_status, kpi, incident_type, risky_item,
	 reason_non_risky, comments, assignee,
	 trigger_date, first_claim_date, last_claim_date,
	 to_remind, to_remind_date,
	 created_at, modified_by, last_modified, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.InvoiceID, rec.GuaranteeID, rec.PaymentRef, rec.InternalInvoiceRef,
		rec.Action, rec.ActionStatus, rec.KPI, rec.IncidentType, rec.RiskyItem,
		rec.ReasonNonRisky, rec.Comments, rec.Assignee,
		rec.TriggerDate, rec.FirstClaimDate, rec.LastClaimDate,
		rec.ToRemind, rec.ToRemindDate,
		rec.CreationDate, rec.ModifiedBy, rec.LastModified, rec.DeleteDate)
	return err
}

// UpdateColumnsTx writes only the named business columns plus the audit
// columns. Column names come from ReconBusinessColumns, never from callers.
func (r *ReconRepo) UpdateColumnsTx(ctx context.Context, tx *sql.Tx, rec *ReconRecord, cols []string, modifiedBy string, now time.Time) error {
	if len(cols) == 0 {
		return nil
	}
	byName := make(map[string]ReconColumn, len(ReconBusinessColumns))
	for _, c := range ReconBusinessColumns {
		byName[c.Name] = c
	}
	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	for _, name := range cols {
		col, ok := byName[name]
		if !ok {
			continue
		}
		sets = append(sets, col.Name+" = ?")
		args = append(args, col.Value(rec))
	}
	sets = append(sets, "modified_by = ?", "last_modified = ?")
	args = append(args, modifiedBy, now, rec.ID)

	_, err := tx.ExecContext(ctx,
		`UPDATE recon_records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

// GetOrCreate returns the stored record or a fresh in-memory one stamped with
// now. The fresh record is not persisted; the first save inserts it.
func (r *ReconRepo) GetOrCreate(ctx context.Context, id string, now time.Time) (*ReconRecord, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	return &ReconRecord{ID: id, CreationDate: now}, nil
}
