package recon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFragment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "account_id = 'PIVOT1'", "account_id = 'PIVOT1'"},
		{"preset header stripped", "/*JSON:{\"view\":\"aged\"}*/ account_id = 'PIVOT1'", "account_id = 'PIVOT1'"},
		{"leading where stripped", "WHERE account_id = 'PIVOT1'", "account_id = 'PIVOT1'"},
		{"lowercase where stripped", "where account_id = 'PIVOT1'", "account_id = 'PIVOT1'"},
		{"redundant parens unwrapped", "((account_id = 'PIVOT1'))", "account_id = 'PIVOT1'"},
		{"meaningful parens kept", "(a = 1) OR (b = 2)", "(a = 1) OR (b = 2)"},
		{"whitespace collapsed", "  account_id\t=\n'PIVOT1' ", "account_id = 'PIVOT1'"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizeFragment(tc.in))
		})
	}
}

func TestSanitizeFragmentAcceptsPlainPredicate(t *testing.T) {
	t.Parallel()

	frag, ok, token := SanitizeFragment("Account_ID = 'PIVOT1'")
	require.True(t, ok)
	require.Empty(t, token)
	require.Equal(t, "Account_ID = 'PIVOT1'", frag)
}

func TestSanitizeFragmentRejectsStructuralSQL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
	}{
		{"statement separator", "a = 1; DROP TABLE x"},
		{"drop keyword", "a = 1 OR drop everything"},
		{"union select", "a = 1 UNION SELECT * FROM users"},
		{"line comment", "a = 1 -- trailing"},
		{"block comment", "a = 1 /* sneaky */"},
		{"exec", "exec sp_who"},
		{"update", "update recon_records set action = 1"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			frag, ok, token := SanitizeFragment(tc.in)
			require.False(t, ok)
			require.Empty(t, frag, "rejected fragment must come back empty")
			require.NotEmpty(t, token)
		})
	}
}

func TestSanitizeFragmentDeniedWordInsideIdentifierAllowed(t *testing.T) {
	t.Parallel()

	// "updated_at" contains "update" but is not the structural keyword.
	frag, ok, _ := SanitizeFragment("updated_at > '2026-01-01'")
	require.True(t, ok)
	require.Equal(t, "updated_at > '2026-01-01'", frag)
}
