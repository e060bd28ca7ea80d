// Package service assembles, caches and persists the reconciliation view.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jask/ledgerrecon/internal/changelog"
	"github.com/jask/ledgerrecon/internal/config"
	"github.com/jask/ledgerrecon/internal/database/repository"
	"github.com/jask/ledgerrecon/internal/recon"
)

// Service is the facade callers use: view reads, diff-aware saves, rule runs
// and cache control.
type Service struct {
	cfg config.Config
	log *zap.Logger

	db      *sql.DB
	ledger  *repository.LedgerRepo
	records *repository.ReconRepo
	refs    *repository.ReferenceRepo

	cache   *ViewCache
	changes changelog.Log

	// catalogs is swapped wholesale on reload; readers never lock.
	catalogs atomic.Pointer[recon.Catalogs]
}

func New(db *sql.DB, cfg config.Config, changes changelog.Log, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if changes == nil {
		changes = changelog.NewMemoryLog()
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		db:      db,
		ledger:  repository.NewLedgerRepo(db),
		records: repository.NewReconRepo(db),
		refs:    repository.NewReferenceRepo(db),
		cache:   NewViewCache(),
		changes: changes,
	}
}

// GetView returns the annotated view for one country, served from cache when
// warm. A fragment that fails the safety gate is dropped with a warning and
// the query runs unfiltered, never erroring over caller input.
func (s *Service) GetView(ctx context.Context, country, filter string, includeDeleted bool) ([]recon.ViewRow, error) {
	fragment, ok, token := recon.SanitizeFragment(filter)
	if !ok {
		s.log.Warn("rejected filter fragment",
			zap.String("country", country),
			zap.String("token", token))
	}
	key := ViewKey{
		Country:        strings.ToUpper(strings.TrimSpace(country)),
		IncludeDeleted: includeDeleted,
		Filter:         fragment,
	}
	return s.cache.Get(ctx, key, func() ([]recon.ViewRow, error) {
		return s.buildView(context.WithoutCancel(ctx), key.Country, fragment, includeDeleted)
	})
}

// Invalidate drops the cached views for one country, or all when empty.
func (s *Service) Invalidate(country string) {
	s.cache.Invalidate(country)
}

// ReloadCatalogs refreshes the reference data snapshot from storage.
func (s *Service) ReloadCatalogs(ctx context.Context) error {
	invoices, err := s.refs.ListInvoices(ctx)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	guarantees, err := s.refs.ListGuarantees(ctx)
	if err != nil {
		return fmt.Errorf("load guarantees: %w", err)
	}
	s.catalogs.Store(recon.NewCatalogs(invoices, guarantees))
	return nil
}

// loadCatalogs returns the snapshot, loading it on first use. A load failure
// degrades to empty catalogs: rows stay visible with partial annotation.
func (s *Service) loadCatalogs(ctx context.Context) *recon.Catalogs {
	if c := s.catalogs.Load(); c != nil {
		return c
	}
	if err := s.ReloadCatalogs(ctx); err != nil {
		s.log.Warn("reference catalog load failed", zap.Error(err))
		return recon.NewCatalogs(nil, nil)
	}
	return s.catalogs.Load()
}

// RuleRunSummary reports one RunRules pass.
type RuleRunSummary struct {
	Evaluated int
	Matched   int
	Applied   int
	Saved     int
}

// RunRules evaluates the rule table over the current view and persists what
// changed. Rows whose context cannot be built are skipped silently and keep
// their previous fields.
func (s *Service) RunRules(ctx context.Context, country string, scope recon.Scope) (RuleRunSummary, error) {
	var summary RuleRunSummary

	countryCfg, ok := s.cfg.Country(country)
	if !ok {
		s.log.Warn("rule run skipped, country not configured", zap.String("country", country))
		return summary, nil
	}
	rules := recon.DefaultRules(s.cfg.Codes, countryCfg)

	rows, err := s.GetView(ctx, country, "", false)
	if err != nil {
		return summary, err
	}
	catalogs := s.loadCatalogs(ctx)
	now := nowFunc()

	changed := make([]repository.ReconRecord, 0, len(rows))
	for _, row := range rows {
		ruleCtx, err := recon.BuildContext(row, catalogs, s.cfg, country, now)
		if err != nil {
			continue
		}
		summary.Evaluated++
		res := recon.Evaluate(rules, ruleCtx)
		if res == nil {
			continue
		}
		summary.Matched++
		rec := row.Record
		before := rec.Comments
		applied := recon.Apply(res, &rec, scope, now)
		if applied || rec.Comments != before || row.LinkageDirty {
			if applied {
				summary.Applied++
			}
			rec.ModifiedBy = countryCfg.AutomatedActor
			changed = append(changed, rec)
		}
	}
	if len(changed) == 0 {
		return summary, nil
	}
	if _, err := s.Save(ctx, country, changed); err != nil {
		return summary, err
	}
	summary.Saved = len(changed)
	return summary, nil
}
