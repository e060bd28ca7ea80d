package recon

import (
	"fmt"
	"strings"
	"time"

	"github.com/jask/ledgerrecon/internal/config"
	"github.com/jask/ledgerrecon/internal/database/repository"
)

// Scope names the path that triggered rule evaluation. Import must never
// clobber manual work; Edit and RunNow are explicit user actions.
type Scope int

const (
	ScopeImport Scope = iota
	ScopeEdit
	ScopeRunNow
)

func (s Scope) String() string {
	switch s {
	case ScopeImport:
		return "import"
	case ScopeEdit:
		return "edit"
	default:
		return "run-now"
	}
}

// RuleContext carries the derived facts one evaluation runs over. Conditions
// that could not be established stay TriUnknown; predicates needing a definite
// answer do not match on Unknown.
type RuleContext struct {
	Side             AccountSide
	Positive         Tri
	Matched          Tri
	Balanced         Tri
	HasInvoice       Tri
	HasGuarantee     Tri
	GuaranteeExpired Tri

	DaysSinceOperation int
	HasTrigger         Tri
	DaysSinceTrigger   int

	Category      string
	UserActionSet bool
}

// RuleResult is what a matched rule wants to do to the record.
type RuleResult struct {
	RuleName  string
	AutoApply bool

	Action         *int64
	KPI            *int64
	IncidentType   *int64
	RiskyItem      *bool
	ReasonNonRisky *string

	SetRemind        *bool
	RemindOffsetDays int
	StampFirstClaim  bool
	StampLastClaim   bool

	Advisory string
}

// Rule is one row of the ordered truth table.
type Rule struct {
	Name      string
	AutoApply bool
	Match     func(RuleContext) bool
	Result    RuleResult
}

// Evaluate scans the table in order and returns the first matching rule's
// result, or nil. Pure: same context and table always yield the same result.
func Evaluate(rules []Rule, ctx RuleContext) *RuleResult {
	for _, rule := range rules {
		if rule.Match == nil || !rule.Match(ctx) {
			continue
		}
		res := rule.Result
		res.RuleName = rule.Name
		res.AutoApply = rule.AutoApply
		return &res
	}
	return nil
}

// Apply mutates the in-memory record per the scope's precedence contract:
//   - advisory text is always appended, deduplicated by exact line match
//   - a non-auto-apply rule never mutates fields, any scope
//   - import scope never overwrites a record whose Action is already set
//   - edit and run-now overwrite freely when the rule is auto-apply
//
// Nothing is persisted here. Returns true when any field beyond the comment
// changed.
func Apply(res *RuleResult, rec *repository.ReconRecord, scope Scope, now time.Time) bool {
	if res == nil || rec == nil {
		return false
	}
	if res.Advisory != "" {
		appendAdvisory(rec, res.Advisory)
	}
	if !res.AutoApply {
		return false
	}
	if scope == ScopeImport && rec.Action != nil {
		return false
	}

	changed := false
	if res.Action != nil {
		v := *res.Action
		rec.Action = &v
		changed = true
	}
	if res.KPI != nil {
		v := *res.KPI
		rec.KPI = &v
		changed = true
	}
	if res.IncidentType != nil {
		v := *res.IncidentType
		rec.IncidentType = &v
		changed = true
	}
	if res.RiskyItem != nil {
		v := *res.RiskyItem
		rec.RiskyItem = &v
		changed = true
	}
	if res.ReasonNonRisky != nil {
		rec.ReasonNonRisky = *res.ReasonNonRisky
		changed = true
	}
	if res.SetRemind != nil {
		rec.ToRemind = *res.SetRemind
		if rec.ToRemind {
			d := now.AddDate(0, 0, res.RemindOffsetDays)
			rec.ToRemindDate = &d
		} else {
			rec.ToRemindDate = nil
		}
		changed = true
	}
	if res.StampFirstClaim && rec.FirstClaimDate == nil {
		d := now
		rec.FirstClaimDate = &d
		changed = true
	}
	if res.StampLastClaim {
		d := now
		rec.LastClaimDate = &d
		changed = true
	}
	return changed
}

func appendAdvisory(rec *repository.ReconRecord, msg string) {
	for _, line := range strings.Split(rec.Comments, "\n") {
		if strings.TrimSpace(line) == msg {
			return
		}
	}
	if rec.Comments == "" {
		rec.Comments = msg
		return
	}
	rec.Comments += "\n" + msg
}

// BuildContext derives the rule context for one grouped view row. A missing
// country configuration is an error; callers skip evaluation for the row and
// the previous fields stand, the save itself never fails over this.
func BuildContext(row ViewRow, catalogs *Catalogs, cfg config.Config, country string, now time.Time) (RuleContext, error) {
	countryCfg, ok := cfg.Country(country)
	if !ok {
		return RuleContext{}, fmt.Errorf("no configuration for country %q", country)
	}

	ctx := RuleContext{
		Side:               ClassifySide(row.Entry.AccountID, countryCfg),
		Positive:           TriOf(row.Entry.SignedAmount.Sign() > 0),
		Matched:            TriOf(row.Matched),
		HasInvoice:         TriOf(row.Record.InvoiceID != ""),
		HasGuarantee:       TriOf(row.Record.GuaranteeID != ""),
		GuaranteeExpired:   TriUnknown,
		DaysSinceOperation: daysBetween(row.Entry.OperationDate, now),
		HasTrigger:         TriFalse,
		Category:           row.Entry.Category,
		UserActionSet:      row.Record.Action != nil,
	}
	if row.MissingAmount == nil {
		ctx.Balanced = TriUnknown
	} else {
		ctx.Balanced = TriOf(row.MissingAmount.IsZero())
	}
	if row.Record.TriggerDate != nil {
		ctx.HasTrigger = TriTrue
		ctx.DaysSinceTrigger = daysBetween(*row.Record.TriggerDate, now)
	}
	if row.Record.GuaranteeID != "" && catalogs != nil {
		if g, found := catalogs.Guarantees[NormalizeKey(row.Record.GuaranteeID)]; found && g.ExpiryDate != nil {
			ctx.GuaranteeExpired = TriOf(g.ExpiryDate.Before(now))
		}
	}
	return ctx, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
