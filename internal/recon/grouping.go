package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerrecon/internal/config"
)

// ClassifySide compares an account id against the country's configured pivot
// and receivable account lists, case-insensitive and trimmed.
func ClassifySide(accountID string, cfg config.CountryConfig) AccountSide {
	id := strings.ToLower(strings.TrimSpace(accountID))
	for _, a := range cfg.PivotAccounts {
		if strings.ToLower(strings.TrimSpace(a)) == id {
			return SidePivot
		}
	}
	for _, a := range cfg.ReceivableAccounts {
		if strings.ToLower(strings.TrimSpace(a)) == id {
			return SideReceivable
		}
	}
	return SideUnknown
}

// GroupRows annotates every row with its account side, cross-side match flag
// and missing amount. Group membership is non-exclusive: each candidate key
// puts the row in one more group, and the match flag is the OR across them.
// Amount equality alone never groups; rows only meet through a shared key.
func GroupRows(rows []ViewRow, cfg config.CountryConfig) {
	for i := range rows {
		rows[i].Side = ClassifySide(rows[i].Entry.AccountID, cfg)
	}

	groups := make(map[string][]int)
	for i := range rows {
		for _, key := range rows[i].CandidateKeys {
			groups[key] = append(groups[key], i)
		}
	}

	// Residual per key, computed once. A group with a single side present
	// stays unmatched and keeps no residual: the balance is undefined.
	type groupState struct {
		matched bool
		missing decimal.Decimal
	}
	states := make(map[string]groupState, len(groups))
	for key, members := range groups {
		pivots, receivables := 0, 0
		sum := decimal.Zero
		for _, idx := range members {
			switch rows[idx].Side {
			case SidePivot:
				pivots++
			case SideReceivable:
				receivables++
			default:
				continue
			}
			sum = sum.Add(rows[idx].Entry.SignedAmount)
		}
		if pivots == 0 || receivables == 0 {
			continue
		}
		if sum.Abs().Cmp(BalanceTolerance) <= 0 {
			sum = decimal.Zero
		}
		states[key] = groupState{matched: true, missing: sum}
	}

	for i := range rows {
		row := &rows[i]
		row.Matched = false
		row.MissingAmount = nil
		if len(row.CandidateKeys) == 0 {
			continue
		}
		for _, key := range row.CandidateKeys {
			st, ok := states[key]
			if !ok || !st.matched {
				continue
			}
			row.Matched = true
			if row.MissingAmount == nil {
				missing := st.missing
				row.MissingAmount = &missing
			}
		}
	}
}
