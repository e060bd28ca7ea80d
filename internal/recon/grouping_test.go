package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/ledgerrecon/internal/config"
	"github.com/jask/ledgerrecon/internal/database/repository"
)

var frConfig = config.CountryConfig{
	PivotAccounts:      []string{"PIVOT1", "pivot2"},
	ReceivableAccounts: []string{"RECV1"},
}

func viewRow(id, account string, amount int64, keys ...string) ViewRow {
	row := ViewRow{
		Entry: repository.LedgerEntry{
			ID:           id,
			AccountID:    account,
			SignedAmount: decimal.NewFromInt(amount),
		},
		CandidateKeys: keys,
	}
	if len(keys) > 0 {
		row.CanonicalKey = keys[0]
	}
	return row
}

func TestClassifySide(t *testing.T) {
	t.Parallel()

	require.Equal(t, SidePivot, ClassifySide(" pivot1 ", frConfig))
	require.Equal(t, SidePivot, ClassifySide("PIVOT2", frConfig))
	require.Equal(t, SideReceivable, ClassifySide("recv1", frConfig))
	require.Equal(t, SideUnknown, ClassifySide("other", frConfig))
}

func TestGroupRowsBalancedPair(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "BGI-42"),
		viewRow("2", "RECV1", -100, "BGI-42"),
	}
	GroupRows(rows, frConfig)

	for _, row := range rows {
		require.True(t, row.Matched, "row %s", row.ID())
		require.NotNil(t, row.MissingAmount)
		require.True(t, row.MissingAmount.IsZero(), "missing=%s", row.MissingAmount)
	}
}

func TestGroupRowsResidual(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "BGI-42"),
		viewRow("2", "RECV1", -90, "BGI-42"),
	}
	GroupRows(rows, frConfig)

	for _, row := range rows {
		require.True(t, row.Matched)
		require.NotNil(t, row.MissingAmount)
		require.True(t, decimal.NewFromInt(10).Equal(*row.MissingAmount),
			"missing=%s", row.MissingAmount)
	}
}

func TestGroupRowsResidualTracksPerturbation(t *testing.T) {
	t.Parallel()

	base := []ViewRow{
		viewRow("1", "PIVOT1", 100, "K"),
		viewRow("2", "RECV1", -100, "K"),
	}
	GroupRows(base, frConfig)
	require.True(t, base[0].MissingAmount.IsZero())

	perturbed := []ViewRow{
		viewRow("1", "PIVOT1", 100, "K"),
		viewRow("2", "RECV1", -100, "K"),
	}
	perturbed[0].Entry.SignedAmount = perturbed[0].Entry.SignedAmount.Add(decimal.NewFromInt(7))
	GroupRows(perturbed, frConfig)
	require.True(t, decimal.NewFromInt(7).Equal(*perturbed[0].MissingAmount))
}

func TestGroupRowsToleranceTreatsOneCentAsBalanced(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 0, "K"),
		viewRow("2", "RECV1", 0, "K"),
	}
	rows[0].Entry.SignedAmount = decimal.RequireFromString("100.00")
	rows[1].Entry.SignedAmount = decimal.RequireFromString("-99.99")
	GroupRows(rows, frConfig)

	require.True(t, rows[0].Matched)
	require.True(t, rows[0].MissingAmount.IsZero())
}

func TestGroupRowsOneSidedGroupNotMatched(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "BGI-42"),
		viewRow("2", "PIVOT1", -100, "BGI-42"),
	}
	GroupRows(rows, frConfig)

	for _, row := range rows {
		require.False(t, row.Matched)
		require.Nil(t, row.MissingAmount)
	}
}

func TestGroupRowsAmountCancellationAloneNeverGroups(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "BGI-42"),
		viewRow("2", "RECV1", -100, "INV-7001"),
	}
	GroupRows(rows, frConfig)

	for _, row := range rows {
		require.False(t, row.Matched, "amounts cancel but keys differ")
	}
}

func TestGroupRowsUnresolvedRowsNeverMatch(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100),
		viewRow("2", "RECV1", -100),
	}
	GroupRows(rows, frConfig)

	for _, row := range rows {
		require.False(t, row.Matched)
		require.Nil(t, row.MissingAmount)
	}
}

func TestGroupRowsSymmetryIndependentOfOrder(t *testing.T) {
	t.Parallel()

	forward := []ViewRow{
		viewRow("1", "PIVOT1", 100, "K"),
		viewRow("2", "RECV1", -100, "K"),
		viewRow("3", "other", 5, "K"),
	}
	reversed := []ViewRow{forward[2], forward[1], forward[0]}

	GroupRows(forward, frConfig)
	GroupRows(reversed, frConfig)

	byID := func(rows []ViewRow) map[string]ViewRow {
		m := map[string]ViewRow{}
		for _, r := range rows {
			m[r.ID()] = r
		}
		return m
	}
	f, r := byID(forward), byID(reversed)
	for id := range f {
		require.Equal(t, f[id].Matched, r[id].Matched, "row %s", id)
	}
}

func TestGroupRowsNonExclusiveMembership(t *testing.T) {
	t.Parallel()

	// Row 2 carries two candidate keys; the internal-reference dimension is
	// the one that pairs it with row 3. One matching dimension is enough.
	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "BGI-42"),
		viewRow("2", "RECV1", -100, "BGI-99", "FR-REF-1"),
		viewRow("3", "PIVOT1", 100, "FR-REF-1"),
	}
	GroupRows(rows, frConfig)

	require.False(t, rows[0].Matched, "BGI-42 group is pivot-only")
	require.True(t, rows[1].Matched, "matched through the FR-REF-1 dimension")
	require.True(t, rows[2].Matched)
}

func TestGroupRowsUnknownSideExcludedFromResidual(t *testing.T) {
	t.Parallel()

	rows := []ViewRow{
		viewRow("1", "PIVOT1", 100, "K"),
		viewRow("2", "RECV1", -100, "K"),
		viewRow("3", "mystery", 55, "K"),
	}
	GroupRows(rows, frConfig)

	require.True(t, rows[0].Matched)
	require.True(t, rows[0].MissingAmount.IsZero(), "unknown-side amount must not pollute the residual")
	require.Equal(t, SideUnknown, rows[2].Side)
}
