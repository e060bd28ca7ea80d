package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/ledgerrecon/internal/database"
	"github.com/jask/ledgerrecon/internal/database/repository"
)

// SaveOutcome describes what one record's save actually did. Descriptor is
// the change-log encoding: "INSERT", "NOOP" or "UPDATE(col1,col2,...)".
type SaveOutcome struct {
	ID             string
	Descriptor     string
	ChangedColumns []string
	LinkageChanged bool
}

// DiffRecord computes the minimal changed-column set between the stored and
// candidate record, over the explicit column mapping table.
func DiffRecord(stored, candidate *repository.ReconRecord) []string {
	var changed []string
	for _, col := range repository.ReconBusinessColumns {
		if !repository.ColumnEqual(col.Value(stored), col.Value(candidate)) {
			changed = append(changed, col.Name)
		}
	}
	return changed
}

// Save persists a batch of reconciliation records in one transaction and
// reports whether anything was written. Per record it inserts, writes only
// the changed columns plus audit columns, or no-ops. Any failure rolls the
// whole batch back. After a successful commit, cache maintenance and the
// change-log append run best-effort: their failures are logged and never
// surface to the caller.
func (s *Service) Save(ctx context.Context, country string, records []repository.ReconRecord) (bool, error) {
	outcomes, err := s.SaveOutcomes(ctx, country, records)
	if err != nil {
		return false, err
	}
	for _, out := range outcomes {
		if out.Descriptor != "NOOP" {
			return true, nil
		}
	}
	return false, nil
}

// SaveOutcomes is the save path itself; Save is sugar over it. It returns the
// per-record change descriptors downstream sync consumes.
func (s *Service) SaveOutcomes(ctx context.Context, country string, records []repository.ReconRecord) ([]SaveOutcome, error) {
	if len(records) == 0 {
		return nil, nil
	}
	now := nowFunc()
	outcomes := make([]SaveOutcome, 0, len(records))

	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		for i := range records {
			rec := &records[i]
			if rec.ID == "" {
				return fmt.Errorf("record without id in save batch")
			}
			if rec.ModifiedBy == "" {
				rec.ModifiedBy = "system"
			}

			stored, err := s.records.GetTx(ctx, tx, rec.ID)
			if err != nil {
				return fmt.Errorf("read record %s: %w", rec.ID, err)
			}

			if stored == nil {
				if rec.CreationDate.IsZero() {
					rec.CreationDate = now
				}
				lm := now
				rec.LastModified = &lm
				if err := s.records.InsertTx(ctx, tx, rec); err != nil {
					return fmt.Errorf("insert record %s: %w", rec.ID, err)
				}
				outcomes = append(outcomes, SaveOutcome{
					ID:             rec.ID,
					Descriptor:     "INSERT",
					LinkageChanged: true,
				})
				continue
			}

			changed := DiffRecord(stored, rec)
			if len(changed) == 0 {
				outcomes = append(outcomes, SaveOutcome{ID: rec.ID, Descriptor: "NOOP"})
				continue
			}
			if err := s.records.UpdateColumnsTx(ctx, tx, rec, changed, rec.ModifiedBy, now); err != nil {
				return fmt.Errorf("update record %s: %w", rec.ID, err)
			}
			lm := now
			rec.LastModified = &lm
			linkage := false
			for _, col := range changed {
				if repository.IsLinkageColumn(col) {
					linkage = true
					break
				}
			}
			outcomes = append(outcomes, SaveOutcome{
				ID:             rec.ID,
				Descriptor:     "UPDATE(" + strings.Join(changed, ",") + ")",
				ChangedColumns: changed,
				LinkageChanged: linkage,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}

	wrote := false
	linkageTouched := false
	patched := make([]repository.ReconRecord, 0, len(records))
	for i, out := range outcomes {
		if out.Descriptor == "NOOP" {
			continue
		}
		wrote = true
		patched = append(patched, records[i])
		if out.LinkageChanged {
			linkageTouched = true
		}
	}
	if !wrote {
		return outcomes, nil
	}

	// A linkage change moves rows between groups; patched flags would lie,
	// so the whole country rebuilds on next read.
	if linkageTouched {
		s.cache.Invalidate(country)
	} else {
		s.cache.Patch(patched)
	}

	session := s.changes.Begin(country)
	for _, out := range outcomes {
		if out.Descriptor == "NOOP" {
			continue
		}
		session.Add("recon_records", out.ID, out.Descriptor)
	}
	if err := session.Commit(ctx); err != nil {
		s.log.Warn("change-log append failed",
			zap.String("country", country), zap.Error(err))
	}
	return outcomes, nil
}
