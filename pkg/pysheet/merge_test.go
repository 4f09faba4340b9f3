package pysheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUnionsRows(t *testing.T) {
	a, err := FromRows([][]string{
		{"Gene", "Chr"},
		{"ABL1", "9"},
		{"KRAS", "12"},
	}, 0, false, "a")
	require.NoError(t, err)
	b, err := FromRows([][]string{
		{"Gene", "Phenotype"},
		{"KRAS", "Noonan"},
		{"TP53", "LFS"},
	}, 0, false, "b")
	require.NoError(t, err)

	m, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"Gene", "Chr", "Phenotype"}, m.HeaderNames())
	assert.Equal(t, []string{"ABL1", "KRAS", "TP53"}, m.RowIDs())

	v, _ := m.Get("KRAS", "Chr")
	assert.Equal(t, "12", v)
	v, _ = m.Get("KRAS", "Phenotype")
	assert.Equal(t, "Noonan", v)

	// rows absent from one input stay blank in its columns
	_, ok := m.Get("TP53", "Chr")
	assert.False(t, ok)
	_, ok = m.Get("ABL1", "Phenotype")
	assert.False(t, ok)
}

func TestMergeKeyColumnsMayDiffer(t *testing.T) {
	a, err := FromRows([][]string{
		{"Gene", "Chr"},
		{"ABL1", "9"},
	}, 0, false, "a")
	require.NoError(t, err)
	// the second input keys on a different column index
	b, err := FromRows([][]string{
		{"Band", "Symbol"},
		{"q34", "ABL1"},
	}, 1, false, "b")
	require.NoError(t, err)

	m, err := Merge(a, b)
	require.NoError(t, err)
	// the first sheet's key header names the merged identifier column
	assert.Equal(t, "Gene", m.IDHeader().Name())
	v, _ := m.Get("ABL1", "Band")
	assert.Equal(t, "q34", v)
}

func TestMergeSuffixesCollidingHeaders(t *testing.T) {
	a, err := FromRows([][]string{
		{"ID", "Score"},
		{"1", "10"},
	}, 0, false, "a")
	require.NoError(t, err)
	b, err := FromRows([][]string{
		{"ID", "Score"},
		{"1", "20"},
	}, 0, false, "b")
	require.NoError(t, err)
	c, err := FromRows([][]string{
		{"ID", "Score"},
		{"1", "30"},
	}, 0, false, "c")
	require.NoError(t, err)

	m, err := Merge(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Score", "Score_2", "Score_3"}, m.HeaderNames())

	v, _ := m.Get("1", "Score")
	assert.Equal(t, "10", v)
	v, _ = m.Get("1", "Score_2")
	assert.Equal(t, "20", v)
	v, _ = m.Get("1", "Score_3")
	assert.Equal(t, "30", v)
}

func TestMergeKeepsLockFlag(t *testing.T) {
	a, err := FromRows([][]string{
		{"ID", "A"},
		{"1", "x"},
	}, 0, false, "a")
	require.NoError(t, err)
	b, err := FromRows([][]string{
		{"ID", "__Notes"},
		{"1", "n"},
	}, 0, false, "b")
	require.NoError(t, err)

	m, err := Merge(a, b)
	require.NoError(t, err)
	i, err := m.ResolveHeader("Notes")
	require.NoError(t, err)
	assert.True(t, m.Headers()[i].Locked())
	v, _ := m.Get("1", "Notes")
	assert.Equal(t, "n", v)
}

func TestMergeSingleAndEmpty(t *testing.T) {
	m, err := Merge()
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())

	a := fixture(t)
	m, err = Merge(a)
	require.NoError(t, err)
	assert.Equal(t, a.HeaderNames(), m.HeaderNames())
	assert.Equal(t, a.RowIDs(), m.RowIDs())
	v, _ := m.Get("2", "H2")
	assert.Equal(t, "bb", v)
}

func TestContractFoldsSuffixedColumns(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "Score", "Score_2", "Note"},
		{"1", "10", "10", "n1"},
		{"2", "10", "20", ""},
		{"3", "", "30", "n3"},
	}, 0, false, "c")
	require.NoError(t, err)

	require.NoError(t, s.Contract(ModeSmartAppend))
	assert.Equal(t, []string{"ID", "Score", "Note"}, s.HeaderNames())

	v, _ := s.Get("1", "Score")
	assert.Equal(t, "10", v)
	v, _ = s.Get("2", "Score")
	assert.Equal(t, "10;20", v)
	v, _ = s.Get("3", "Score")
	assert.Equal(t, "30", v)
}

func TestContractRenamesToBase(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "Score_2", "Score_3"},
		{"1", "1", "2"},
	}, 0, false, "c")
	require.NoError(t, err)
	require.NoError(t, s.Contract(ModeAdd))
	assert.Equal(t, []string{"ID", "Score"}, s.HeaderNames())
	v, _ := s.Get("1", "Score")
	assert.Equal(t, "3", v)
}

func TestMergeThenContractRestoresWidth(t *testing.T) {
	a, err := FromRows([][]string{
		{"ID", "Score"},
		{"1", "10"},
	}, 0, false, "a")
	require.NoError(t, err)
	b, err := FromRows([][]string{
		{"ID", "Score"},
		{"1", "10"},
		{"2", "5"},
	}, 0, false, "b")
	require.NoError(t, err)

	m, err := Merge(a, b)
	require.NoError(t, err)
	require.NoError(t, m.Contract(ModeSmartAppend))
	assert.Equal(t, []string{"ID", "Score"}, m.HeaderNames())
	v, _ := m.Get("1", "Score")
	assert.Equal(t, "10", v)
	v, _ = m.Get("2", "Score")
	assert.Equal(t, "5", v)
}

func TestMergeRowMatchIsCaseInsensitive(t *testing.T) {
	a, err := FromRows([][]string{
		{"Gene", "Chr"},
		{"abl1", "9"},
	}, 0, false, "a")
	require.NoError(t, err)
	b, err := FromRows([][]string{
		{"Gene", "Band"},
		{"ABL1", "q34"},
	}, 0, false, "b")
	require.NoError(t, err)

	m, err := Merge(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"abl1"}, m.RowIDs())
	v, _ := m.Get("ABL1", "Band")
	assert.Equal(t, "q34", v)
}
