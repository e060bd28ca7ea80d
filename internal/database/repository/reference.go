package repository

import (
	"context"
	"database/sql"
)

// ReferenceRepo loads the external invoice and guarantee catalogs.
type ReferenceRepo struct{ db *sql.DB }

func NewReferenceRepo(db *sql.DB) *ReferenceRepo { return &ReferenceRepo{db: db} }

func (r *ReferenceRepo) ListInvoices(ctx context.Context) ([]RefInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, debtor, amount, issue_date, due_date, status
	FROM ref_invoices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RefInvoice
	for rows.Next() {
		var v RefInvoice
		if err := rows.Scan(&v.ID, &v.Debtor, &v.Amount, &v.IssueDate, &v.DueDate, &v.Status); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ReferenceRepo) ListGuarantees(ctx context.Context) ([]RefGuarantee, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, beneficiary, amount, issue_date, expiry_date, status
	FROM ref_guarantees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RefGuarantee
	for rows.Next() {
		var g RefGuarantee
		if err := rows.Scan(&g.ID, &g.Beneficiary, &g.Amount, &g.IssueDate, &g.ExpiryDate, &g.Status); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *ReferenceRepo) UpsertInvoice(ctx context.Context, v RefInvoice) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ref_invoices(id, debtor, amount, issue_date, due_date, status)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 debtor=excluded.debtor,
	 amount=excluded.amount,
	 issue_date=excluded.issue_date,
	 due_date=excluded.due_date,
	 status=excluded.status;
	`, v.ID, v.Debtor, v.Amount, v.IssueDate, v.DueDate, v.Status)
	return err
}

func (r *ReferenceRepo) UpsertGuarantee(ctx context.Context, g RefGuarantee) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ref_guarantees(id, beneficiary, amount, issue_date, expiry_date, status)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 beneficiary=excluded.beneficiary,
	 amount=excluded.amount,
	 issue_date=excluded.issue_date,
	 expiry_date=excluded.expiry_date,
	 status=excluded.status;
	`, g.ID, g.Beneficiary, g.Amount, g.IssueDate, g.ExpiryDate, g.Status)
	return err
}
