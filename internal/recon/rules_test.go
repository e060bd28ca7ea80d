package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/ledgerrecon/internal/config"
	"github.com/jask/ledgerrecon/internal/database/repository"
)

var testCodes = config.Codes{
	ActionClose:              1,
	ActionClaim:              2,
	ActionInvestigate:        3,
	KPIBalanced:              1,
	KPIPendingClaim:          2,
	KPIUnmatched:             3,
	IncidentMissingInvoice:   1,
	IncidentExpiredGuarantee: 2,
	IncidentAmountMismatch:   3,
}

var testCountry = config.CountryConfig{
	PivotAccounts:      []string{"PIVOT1"},
	ReceivableAccounts: []string{"RECV1"},
	AutomatedActor:     "recon-engine",
	ReminderOffsetDays: 7,
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Matched: TriTrue, Balanced: TriTrue, HasGuarantee: TriTrue, GuaranteeExpired: TriTrue}

	res := Evaluate(rules, ctx)
	require.NotNil(t, res)
	// matched-balanced sits above guarantee-expired in the table.
	require.Equal(t, "matched-balanced", res.RuleName)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Matched: TriTrue, Balanced: TriFalse}

	first := Evaluate(rules, ctx)
	second := Evaluate(rules, ctx)
	require.NotNil(t, first)
	require.Equal(t, first, second)
}

func TestEvaluateUnknownIsNotFalse(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)

	// Balanced unknown: neither matched-balanced nor matched-residual may fire.
	ctx := RuleContext{Matched: TriTrue, Balanced: TriUnknown}
	res := Evaluate(rules, ctx)
	if res != nil {
		require.NotEqual(t, "matched-balanced", res.RuleName)
		require.NotEqual(t, "matched-residual", res.RuleName)
	}
}

func TestEvaluateNoMatchReturnsNil(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Matched: TriUnknown, DaysSinceOperation: 1}
	require.Nil(t, Evaluate(rules, ctx))
}

func TestApplyImportScopeProtectsUserAction(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Matched: TriTrue, Balanced: TriTrue}
	res := Evaluate(rules, ctx)
	require.NotNil(t, res)

	userAction := int64(5)
	rec := &repository.ReconRecord{ID: "1", Action: &userAction}

	changed := Apply(res, rec, ScopeImport, fixedNow())
	require.False(t, changed)
	require.Equal(t, int64(5), *rec.Action, "import must never clobber manual work")
	require.Contains(t, rec.Comments, res.Advisory, "advisory still lands")
}

func TestApplyEditScopeOverwrites(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	res := Evaluate(rules, RuleContext{Matched: TriTrue, Balanced: TriTrue})
	require.NotNil(t, res)

	userAction := int64(5)
	rec := &repository.ReconRecord{ID: "1", Action: &userAction}

	changed := Apply(res, rec, ScopeEdit, fixedNow())
	require.True(t, changed)
	require.Equal(t, testCodes.ActionClose, *rec.Action)
	require.Equal(t, testCodes.KPIBalanced, *rec.KPI)
	require.NotNil(t, rec.RiskyItem)
	require.False(t, *rec.RiskyItem)
}

func TestApplyAdvisoryOnlyRuleNeverMutates(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Side: SideReceivable, HasInvoice: TriFalse, DaysSinceOperation: 45, Matched: TriUnknown}
	res := Evaluate(rules, ctx)
	require.NotNil(t, res)
	require.False(t, res.AutoApply)

	rec := &repository.ReconRecord{ID: "1"}
	changed := Apply(res, rec, ScopeRunNow, fixedNow())
	require.False(t, changed)
	require.Nil(t, rec.Action)
	require.Nil(t, rec.IncidentType)
	require.Contains(t, rec.Comments, "no linked invoice")
}

func TestApplyAdvisoryDeduplicatesByExactText(t *testing.T) {
	t.Parallel()

	res := &RuleResult{AutoApply: false, Advisory: "check this one"}
	rec := &repository.ReconRecord{ID: "1", Comments: "check this one"}

	Apply(res, rec, ScopeEdit, fixedNow())
	require.Equal(t, "check this one", rec.Comments)

	rec.Comments = "earlier note"
	Apply(res, rec, ScopeEdit, fixedNow())
	require.Equal(t, "earlier note\ncheck this one", rec.Comments)
}

func TestApplyGuaranteeExpiredStampsAndReminds(t *testing.T) {
	t.Parallel()

	rules := DefaultRules(testCodes, testCountry)
	ctx := RuleContext{Matched: TriFalse, HasGuarantee: TriTrue, GuaranteeExpired: TriTrue}
	res := Evaluate(rules, ctx)
	require.NotNil(t, res)
	require.Equal(t, "guarantee-expired", res.RuleName)

	now := fixedNow()
	existing := now.AddDate(0, 0, -30)
	rec := &repository.ReconRecord{ID: "1", FirstClaimDate: &existing}

	changed := Apply(res, rec, ScopeRunNow, now)
	require.True(t, changed)
	require.Equal(t, testCodes.ActionClaim, *rec.Action)
	require.True(t, existing.Equal(*rec.FirstClaimDate), "first claim date is stamp-once")
	require.True(t, now.Equal(*rec.LastClaimDate))
	require.True(t, rec.ToRemind)
	require.True(t, now.AddDate(0, 0, 7).Equal(*rec.ToRemindDate))
}

func TestBuildContextMissingCountryIsError(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Countries: map[string]config.CountryConfig{}}
	_, err := BuildContext(ViewRow{}, nil, cfg, "ZZ", fixedNow())
	require.Error(t, err)
}

func TestBuildContextDerivesTriStates(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Codes:     testCodes,
		Countries: map[string]config.CountryConfig{"FR": testCountry},
	}
	now := fixedNow()
	expired := now.AddDate(0, 0, -1)
	catalogs := NewCatalogs(nil, []repository.RefGuarantee{{ID: "BGI-42", ExpiryDate: &expired}})

	missing := decimal.NewFromInt(10)
	row := ViewRow{
		Entry: repository.LedgerEntry{
			ID:            "1",
			AccountID:     "PIVOT1",
			SignedAmount:  decimal.NewFromInt(100),
			OperationDate: now.AddDate(0, 0, -10),
		},
		Record:        repository.ReconRecord{ID: "1", GuaranteeID: "BGI-42"},
		Matched:       true,
		MissingAmount: &missing,
	}

	ctx, err := BuildContext(row, catalogs, cfg, "fr", now)
	require.NoError(t, err)
	require.Equal(t, SidePivot, ctx.Side)
	require.Equal(t, TriTrue, ctx.Positive)
	require.Equal(t, TriTrue, ctx.Matched)
	require.Equal(t, TriFalse, ctx.Balanced)
	require.Equal(t, TriTrue, ctx.HasGuarantee)
	require.Equal(t, TriTrue, ctx.GuaranteeExpired)
	require.Equal(t, 10, ctx.DaysSinceOperation)
	require.False(t, ctx.UserActionSet)

	// No missing amount at all: balance is unknown, not false.
	row.MissingAmount = nil
	ctx, err = BuildContext(row, catalogs, cfg, "FR", now)
	require.NoError(t, err)
	require.Equal(t, TriUnknown, ctx.Balanced)
}
