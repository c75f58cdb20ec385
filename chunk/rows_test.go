package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterRowsCSVWithTextColumn(t *testing.T) {
	data := []byte("name,age\nAlice,30\nBob,40\n")
	rows, err := IterRows("doc1", "file:///t.csv", "t.csv", data, RowOptions{TextColumns: []string{"name", "age"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice 30", rows[0].Text)
	assert.Equal(t, 0, rows[0].RowIndex)
	assert.Equal(t, 1, rows[1].RowIndex)
}

func TestIterRowsPassThroughFilters(t *testing.T) {
	data := []byte("name,age,city\nAlice,30,NYC\n")
	rows, err := IterRows("doc1", "file:///t.csv", "t.csv", data, RowOptions{PassThrough: []string{"name"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, hasAge := rows[0].Columns["age"]
	assert.False(t, hasAge)
	assert.Equal(t, "Alice", rows[0].Columns["name"])
}

func TestCleanHeadersDeduplicates(t *testing.T) {
	out := cleanHeaders([]string{"a", "", "a"})
	assert.Equal(t, []string{"a", "col", "a_1"}, out)
}

func TestIterRowsUnsupportedFormat(t *testing.T) {
	_, err := IterRows("doc1", "file:///t.parquet", "t.parquet", []byte{}, RowOptions{})
	assert.Error(t, err)
}
