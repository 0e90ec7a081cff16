package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	assert.Equal(t, "15,400.5", Number(15400.5))
	assert.Equal(t, "1,000", Number(1000))
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "1,234,567", Count(1234567))
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	tbl := Table{
		Headers: []string{"Brand", "MRP"},
		Rows:    [][]string{{"Acme", "499.00"}, {"Zenith", "1299.50"}},
	}
	require.NoError(t, tbl.Render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Brand"))
	assert.True(t, strings.HasPrefix(lines[1], "-----"))
	assert.Contains(t, lines[3], "1299.50")
}

func TestKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValues(&buf, [][2]string{{"Date", "2024-03-01"}, {"Total Records", "120"}}))
	assert.Contains(t, buf.String(), "Date:")
	assert.Contains(t, buf.String(), "2024-03-01")
}

func TestDateFormats(t *testing.T) {
	assert.Equal(t, "2024-03-01", Date("2024-03-01T00:00:00"))
	assert.Equal(t, "2024-03-01", Date("Fri, 01 Mar 2024 00:00:00 GMT"))
	assert.Equal(t, "2024-03-01 10:00:00", DateTime("2024-03-01T10:00:00.123456"))
	assert.Equal(t, "soon", DateTime("soon"))
	assert.Equal(t, "", Date(""))
}
