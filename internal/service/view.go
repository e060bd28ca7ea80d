package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jask/ledgerrecon/internal/database"
	"github.com/jask/ledgerrecon/internal/recon"
)

// nowFunc is swapped in tests that need a fixed clock.
var nowFunc = database.Now

// buildView runs the full assembly pipeline for one cache key: joined fetch,
// get-or-create materialization, linkage resolution, grouping, reference
// enrichment, transient flags.
func (s *Service) buildView(ctx context.Context, country, fragment string, includeDeleted bool) ([]recon.ViewRow, error) {
	joined, err := s.ledger.QueryJoined(ctx, country, fragment, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("query view rows: %w", err)
	}

	catalogs := s.loadCatalogs(ctx)
	now := nowFunc()

	rows := make([]recon.ViewRow, 0, len(joined))
	for _, j := range joined {
		row := recon.ViewRow{Entry: j.Entry}
		if j.Record != nil {
			row.Record = *j.Record
		} else {
			// First access to this entry: materialize an empty record
			// in memory. It reaches storage on its first save.
			row.Record.ID = j.Entry.ID
			row.Record.CreationDate = now
		}

		res := recon.Resolve(row.Entry, &row.Record, catalogs)
		if recon.BackfillRecord(&row.Record, res, catalogs) {
			row.LinkageDirty = true
			res = recon.Resolve(row.Entry, &row.Record, catalogs)
		}
		row.CanonicalKey = res.Key
		row.CandidateKeys = res.Candidates

		s.resolveReference(&row, catalogs)
		rows = append(rows, row)
	}

	countryCfg, ok := s.cfg.Country(country)
	if ok {
		recon.GroupRows(rows, countryCfg)
	} else {
		// Rows stay visible, just unannotated.
		s.log.Warn("grouping skipped, country not configured", zap.String("country", country))
	}

	for i := range rows {
		s.computeTransientFlags(&rows[i], countryCfg.AutomatedActor, now)
	}
	return rows, nil
}

// resolveReference copies descriptive catalog fields onto the row. A lookup
// miss leaves them empty; it is not an error.
func (s *Service) resolveReference(row *recon.ViewRow, catalogs *recon.Catalogs) {
	if row.Record.GuaranteeID != "" {
		if g, ok := catalogs.Guarantees[recon.NormalizeKey(row.Record.GuaranteeID)]; ok {
			amount := g.Amount
			row.Counterparty = g.Beneficiary
			row.ReferenceStatus = g.Status
			row.ReferenceAmount = &amount
			return
		}
	}
	if row.Record.InvoiceID != "" {
		if v, ok := catalogs.Invoices[recon.NormalizeKey(row.Record.InvoiceID)]; ok {
			amount := v.Amount
			row.Counterparty = v.Debtor
			row.ReferenceStatus = v.Status
			row.ReferenceAmount = &amount
		}
	}
}

// computeTransientFlags derives the per-day view markers. IsUpdated only
// counts automated edits: a manual save is the user's own work, not news.
func (s *Service) computeTransientFlags(row *recon.ViewRow, automatedActor string, now time.Time) {
	row.IsNewlyAdded = sameDay(row.Record.CreationDate, now)
	row.IsUpdated = row.Record.LastModified != nil &&
		sameDay(*row.Record.LastModified, now) &&
		row.Record.LastModified.After(row.Record.CreationDate) &&
		automatedActor != "" &&
		row.Record.ModifiedBy == automatedActor
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
