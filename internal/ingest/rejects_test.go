package ingest

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/poi-ingest/internal/filing"
	"github.com/sells-group/poi-ingest/internal/model"
)

func readRejects(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVRejects_HeaderAndRecords(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRejects(&buf)

	_, cause := filing.ClassifyAddress("Bogus: x")
	require.Error(t, cause)

	require.NoError(t, r.Reject(3, model.FilingRow{KVK: "888", Adres0: "Bogus: x", Bedrijfsnaam: "Bogus BV"}, cause))
	require.NoError(t, r.Reject(5, model.FilingRow{Bedrijfsnaam: "No Number BV"}, filing.ErrInvalidRow))
	require.NoError(t, r.Close())

	records := readRejects(t, buf.Bytes())
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, []string{"line", "error", "kvk", "adres0"}, header[:4])
	assert.Contains(t, header, "Bedrijfsnaam")
	assert.Contains(t, header, "nevenactiviteit 2")

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q not found", name)
		return -1
	}

	assert.Equal(t, "3", records[1][col("line")])
	assert.Equal(t, `filing: unknown address type: "Bogus: x"`, records[1][col("error")])
	assert.Equal(t, "888", records[1][col("kvk")])
	assert.Equal(t, "Bogus: x", records[1][col("adres0")])
	assert.Equal(t, "Bogus BV", records[1][col("Bedrijfsnaam")])

	assert.Equal(t, "5", records[2][col("line")])
	assert.Equal(t, "filing: invalid row", records[2][col("error")])
	assert.Equal(t, "", records[2][col("kvk")])
}

func TestCSVRejects_NilCause(t *testing.T) {
	var buf bytes.Buffer
	r := NewCSVRejects(&buf)

	require.NoError(t, r.Reject(2, model.FilingRow{KVK: "1"}, nil))
	require.NoError(t, r.Close())

	records := readRejects(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "", records[1][1])
}

func TestCreateCSVRejects_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.csv")
	r, err := CreateCSVRejects(path)
	require.NoError(t, err)

	require.NoError(t, r.Reject(2, model.FilingRow{KVK: "1"}, filing.ErrInvalidRow))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records := readRejects(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[1][0])
}

func TestCreateCSVRejects_BadPath(t *testing.T) {
	_, err := CreateCSVRejects(filepath.Join(t.TempDir(), "missing", "rejects.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejects: create")
}

func TestCreateCSVRejects_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejects.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\nfrom,last run\n"), 0o644))

	r, err := CreateCSVRejects(path)
	require.NoError(t, err)
	require.NoError(t, r.Reject(4, model.FilingRow{KVK: "2"}, filing.ErrInvalidRow))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	records := readRejects(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, "line", records[0][0])
	assert.Equal(t, "4", records[1][0])
}
