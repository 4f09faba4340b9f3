package pysheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateSmartAppend(t *testing.T) {
	s := fixture(t)
	err := s.Consolidate([]Rule{{Target: "all", Keywords: []string{"H"}}}, ConsolidateOptions{})
	require.NoError(t, err)

	i, err := s.ResolveHeader("all")
	require.NoError(t, err)
	assert.True(t, s.Headers()[i].Locked())

	v, _ := s.Get("1", "all")
	assert.Equal(t, "a;b;c", v)
	v, _ = s.Get("2", "all")
	assert.Equal(t, "aa;bb;cc", v)
	// identical values collapse to one segment
	v, _ = s.Get("88", "all")
	assert.Equal(t, "8", v)
	// an all-blank row contributes nothing
	_, ok := s.Get("99", "all")
	assert.False(t, ok)

	// sources survive without clean
	assert.Equal(t, []string{"ID", "all", "H1", "H2", "H3"}, s.HeaderNames())
}

func TestConsolidateAppendKeepsDuplicates(t *testing.T) {
	s := fixture(t)
	err := s.Consolidate([]Rule{{Target: "all", Keywords: []string{"H"}}},
		ConsolidateOptions{Mode: ModeAppend})
	require.NoError(t, err)
	v, _ := s.Get("88", "all")
	assert.Equal(t, "8;8", v)
}

func TestConsolidateOverwrite(t *testing.T) {
	s := fixture(t)
	err := s.Consolidate([]Rule{{Target: "all", Keywords: []string{"H"}}},
		ConsolidateOptions{Mode: ModeOverwrite})
	require.NoError(t, err)
	// last non-blank source in header order wins
	v, _ := s.Get("1", "all")
	assert.Equal(t, "c", v)
}

func TestConsolidateAdd(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "N1", "N2", "N3"},
		{"r", "1", "2", ""},
		{"p", "50%", "0.25", ""},
	}, 0, false, "nums")
	require.NoError(t, err)
	require.NoError(t, s.Consolidate([]Rule{{Target: "sum", Keywords: []string{"N"}}},
		ConsolidateOptions{Mode: ModeAdd}))
	v, _ := s.Get("r", "sum")
	assert.Equal(t, "3", v)
	// a trailing % reads as value/100
	v, _ = s.Get("p", "sum")
	assert.Equal(t, "0.75", v)
}

func TestConsolidateAddNonNumeric(t *testing.T) {
	s := fixture(t)
	err := s.Consolidate([]Rule{{Target: "sum", Keywords: []string{"H"}}},
		ConsolidateOptions{Mode: ModeAdd})
	var np *NumericParseError
	require.ErrorAs(t, err, &np)
	assert.NotEmpty(t, np.ID)
	assert.NotEmpty(t, np.Header)
}

func TestConsolidateMean(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "S1", "S2", "S3"},
		{"r", "2", "4", "9"},
		{"q", "10", "", ""},
	}, 0, false, "nums")
	require.NoError(t, err)
	require.NoError(t, s.Consolidate([]Rule{{Target: "avg", Keywords: []string{"S"}}},
		ConsolidateOptions{Mode: ModeMean}))
	v, _ := s.Get("r", "avg")
	assert.Equal(t, "5", v)
	// a single sample averages to itself
	v, _ = s.Get("q", "avg")
	assert.Equal(t, "10", v)
}

func TestConsolidateKeywordCaseSensitive(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "store front", "Store back"},
		{"r", "x", "y"},
	}, 0, false, "case")
	require.NoError(t, err)
	require.NoError(t, s.Consolidate([]Rule{{Target: "Items", Keywords: []string{"store"}}},
		ConsolidateOptions{}))
	v, _ := s.Get("r", "Items")
	assert.Equal(t, "x", v)
}

func TestConsolidateSkipsLockedHeaders(t *testing.T) {
	s := fixture(t)
	require.NoError(t, s.RenameHeader("H1", "__H1"))
	require.NoError(t, s.Consolidate([]Rule{{Target: "all", Keywords: []string{"H"}}},
		ConsolidateOptions{}))
	v, _ := s.Get("1", "all")
	assert.Equal(t, "b;c", v)
}

func TestConsolidateNoKeywordsUsesTarget(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "Price A", "Price B"},
		{"r", "1", "1"},
	}, 0, false, "k")
	require.NoError(t, err)
	require.NoError(t, s.Consolidate([]Rule{{Target: "Price"}}, ConsolidateOptions{}))
	v, _ := s.Get("r", "Price")
	assert.Equal(t, "1", v)
}

func TestCleanRemovesSources(t *testing.T) {
	// the genetics workflow: collapse phenotype keyword columns into one
	// locked column and drop the sources
	s, err := FromRows([][]string{
		{"Gene", "Cancer Somatic", "Cancer Germline", "Mut Type", "Other Syndrome", "Chr"},
		{"ABL1", "yes", "", "Mis", "", "9"},
		{"KRAS", "yes", "yes", "Mis", "Noonan", "12"},
	}, 0, false, "cgc")
	require.NoError(t, err)
	require.NoError(t, s.Clean([]Rule{
		{Target: "Phenotype", Keywords: []string{"Cancer", "Mut", "Other"}},
	}, ConsolidateOptions{}))

	assert.Equal(t, []string{"Gene", "Phenotype", "Chr"}, s.HeaderNames())
	i, err := s.ResolveHeader("Phenotype")
	require.NoError(t, err)
	assert.True(t, s.Headers()[i].Locked())
	assert.Equal(t, LockPrefix+"Phenotype", s.Headers()[i].Stored())

	v, _ := s.Get("ABL1", "Phenotype")
	assert.Equal(t, "yes;Mis", v)
	v, _ = s.Get("KRAS", "Phenotype")
	assert.Equal(t, "yes;Mis;Noonan", v)
}

func TestConsolidateRulesRunInOrder(t *testing.T) {
	s, err := FromRows([][]string{
		{"ID", "Cost A", "Cost B"},
		{"r", "x", "y"},
	}, 0, false, "seq")
	require.NoError(t, err)
	// the first rule's target is locked, so the second rule's broad keyword
	// must not consume it
	require.NoError(t, s.Consolidate([]Rule{
		{Target: "Cost", Keywords: []string{"Cost"}},
		{Target: "Everything", Keywords: []string{"Cost"}},
	}, ConsolidateOptions{}))
	v, _ := s.Get("r", "Cost")
	assert.Equal(t, "x;y", v)
	v, _ = s.Get("r", "Everything")
	assert.Equal(t, "x;y", v)
}

func TestConsolidateCustomSeparator(t *testing.T) {
	s := fixture(t)
	require.NoError(t, s.Consolidate([]Rule{{Target: "all", Keywords: []string{"H"}}},
		ConsolidateOptions{Separator: "|"}))
	v, _ := s.Get("1", "all")
	assert.Equal(t, "a|b|c", v)
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Mode
	}{
		{"", ModeSmartAppend},
		{"smart_append", ModeSmartAppend},
		{"APPEND", ModeAppend},
		{"overwrite", ModeOverwrite},
		{"add", ModeAdd},
		{"mean", ModeMean},
	} {
		got, err := ParseMode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	_, err := ParseMode("subtract")
	assert.Error(t, err)
}
