package recon

import "github.com/jask/ledgerrecon/internal/config"

func i64(v int64) *int64 { return &v }
func bp(v bool) *bool    { return &v }
func sp(v string) *string { return &v }

// DefaultRules builds the ordered truth table over the configured taxonomy
// codes. First match wins, so the specific conditions sit above the aging
// catch-alls.
func DefaultRules(codes config.Codes, country config.CountryConfig) []Rule {
	remindDays := country.ReminderOffsetDays
	if remindDays <= 0 {
		remindDays = 7
	}

	return []Rule{
		{
			Name:      "matched-balanced",
			AutoApply: true,
			Match: func(ctx RuleContext) bool {
				return ctx.Matched == TriTrue && ctx.Balanced == TriTrue
			},
			Result: RuleResult{
				Action:         i64(codes.ActionClose),
				KPI:            i64(codes.KPIBalanced),
				RiskyItem:      bp(false),
				ReasonNonRisky: sp("balanced across both sides"),
				SetRemind:      bp(false),
				Advisory:       "Both sides matched and balanced; item can be closed.",
			},
		},
		{
			Name:      "matched-residual",
			AutoApply: true,
			Match: func(ctx RuleContext) bool {
				return ctx.Matched == TriTrue && ctx.Balanced == TriFalse
			},
			Result: RuleResult{
				Action:       i64(codes.ActionInvestigate),
				KPI:          i64(codes.KPIPendingClaim),
				IncidentType: i64(codes.IncidentAmountMismatch),
				RiskyItem:    bp(true),
				Advisory:     "Sides matched but a residual amount remains.",
			},
		},
		{
			Name:      "guarantee-expired",
			AutoApply: true,
			Match: func(ctx RuleContext) bool {
				return ctx.HasGuarantee == TriTrue && ctx.GuaranteeExpired == TriTrue
			},
			Result: RuleResult{
				Action:           i64(codes.ActionClaim),
				IncidentType:     i64(codes.IncidentExpiredGuarantee),
				RiskyItem:        bp(true),
				SetRemind:        bp(true),
				RemindOffsetDays: remindDays,
				StampFirstClaim:  true,
				StampLastClaim:   true,
				Advisory:         "Linked guarantee has expired; claim immediately.",
			},
		},
		{
			Name:      "receivable-missing-invoice",
			AutoApply: false,
			Match: func(ctx RuleContext) bool {
				return ctx.Side == SideReceivable && ctx.HasInvoice == TriFalse &&
					ctx.DaysSinceOperation > 30
			},
			Result: RuleResult{
				Advisory: "Receivable entry over 30 days old with no linked invoice; check the invoice reference.",
			},
		},
		{
			Name:      "stale-pivot-unmatched",
			AutoApply: true,
			Match: func(ctx RuleContext) bool {
				return ctx.Side == SidePivot && ctx.Matched == TriFalse &&
					ctx.DaysSinceOperation > 60
			},
			Result: RuleResult{
				Action:           i64(codes.ActionClaim),
				KPI:              i64(codes.KPIUnmatched),
				SetRemind:        bp(true),
				RemindOffsetDays: remindDays,
				StampLastClaim:   true,
				Advisory:         "Pivot entry unmatched for over 60 days; claim raised.",
			},
		},
		{
			Name:      "aging-unmatched",
			AutoApply: false,
			Match: func(ctx RuleContext) bool {
				return ctx.Matched == TriFalse && ctx.DaysSinceOperation > 15
			},
			Result: RuleResult{
				Advisory: "Entry unmatched for over 15 days.",
			},
		},
	}
}
