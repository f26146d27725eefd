package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := New(
		[]Column{
			{Name: "trial_type", Kind: KindString},
			{Name: "rt", Kind: KindNumber},
			{Name: "correct", Kind: KindBool},
		},
		[][]any{
			{"target", 0.31, true},
			{"standard", 0.52, true},
			{"target", 0.28, false},
			{"standard", nil, false},
		},
	)
	require.NoError(t, err)
	return table
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
		rows [][]any
	}{
		{"empty_column_name", []Column{{Name: "", Kind: KindBool}}, nil},
		{"duplicate_column", []Column{{Name: "a", Kind: KindBool}, {Name: "a", Kind: KindString}}, nil},
		{"bad_kind", []Column{{Name: "a", Kind: Kind("blob")}}, nil},
		{"ragged_row", []Column{{Name: "a", Kind: KindBool}}, [][]any{{true, false}}},
		{"type_mismatch", []Column{{Name: "a", Kind: KindNumber}}, [][]any{{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols, tt.rows)
			require.Error(t, err)
		})
	}
}

func TestSelectReorders(t *testing.T) {
	table := sampleTable(t)
	sub, err := table.Select([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.NRows())
	assert.Equal(t, 0.28, sub.Row(0)["rt"])
	assert.Equal(t, 0.31, sub.Row(1)["rt"])

	_, err = table.Select([]int{9})
	require.Error(t, err)
}

func TestFilterEqualityAndMembership(t *testing.T) {
	table := sampleTable(t)

	idx, err := table.Filter("trial_type", OpEq, "target")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, idx)

	idx, err = table.Filter("correct", OpNe, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, idx)

	idx, err = table.Filter("rt", OpIn, []any{0.31, 0.52})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)

	_, err = table.Filter("missing", OpEq, 1)
	require.Error(t, err)
	_, err = table.Filter("rt", Op("<"), 1)
	require.Error(t, err)
}

func TestQueryExpressions(t *testing.T) {
	table := sampleTable(t)

	tests := []struct {
		name string
		expr string
		want []int
	}{
		{"string_equality", "trial_type = 'target'", []int{0, 2}},
		{"numeric_comparison", "rt < 0.3", []int{2}},
		{"boolean", "correct", []int{0, 1}},
		{"conjunction", "trial_type = 'target' AND correct", []int{0}},
		{"null_handling", "rt IS NULL", []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := table.Query(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestQueryErrors(t *testing.T) {
	table := sampleTable(t)
	_, err := table.Query("")
	require.Error(t, err)
	_, err = table.Query("no_such_column = 1")
	require.Error(t, err)
}

func TestConcat(t *testing.T) {
	table := sampleTable(t)
	both, err := table.Concat(table)
	require.NoError(t, err)
	assert.Equal(t, 8, both.NRows())

	other, err := New([]Column{{Name: "x", Kind: KindNumber}}, nil)
	require.NoError(t, err)
	_, err = table.Concat(other)
	require.Error(t, err)
}
