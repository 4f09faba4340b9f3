package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isthisthat/Pysheet/pkg/pysheet"
)

func TestTable(t *testing.T) {
	s, err := pysheet.FromRows([][]string{
		{"ID", "Name"},
		{"1", "alice"},
		{"2", "bob"},
	}, 0, false, "t")
	require.NoError(t, err)

	out := Table(s)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTableEmpty(t *testing.T) {
	assert.Equal(t, "* empty *\n", Table(pysheet.New()))
}

func TestHeaderIndex(t *testing.T) {
	s, err := pysheet.FromRows([][]string{
		{"ID", "Name", "Age"},
		{"1", "alice", "30"},
	}, 0, false, "t")
	require.NoError(t, err)
	assert.Equal(t, "0 ID\n1 Name\n2 Age\n", HeaderIndex(s))
}
