package training

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDir_RecursiveConcatSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.csv"), "timestamp,value\n2024-01-01T02:00:00Z,3\n2024-01-01T00:00:00Z,1\n")
	writeFile(t, filepath.Join(dir, "nested", "deeper", "a.csv"), "timestamp,value\n2024-01-01T01:00:00Z,2\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	ds, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Len(t, ds.Files, 2)
	assert.Equal(t, []string{"timestamp", "value"}, ds.Columns())

	values, err := ds.Float("value")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)
}

func TestLoadDir_NoFiles(t *testing.T) {
	_, err := LoadDir(t.TempDir(), LoadOptions{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadDir_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "timestamp,value\n1,2\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "timestamp,price\n1,2\n")
	_, err := LoadDir(dir, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadDir_DropsIncompleteRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "timestamp,x,y,notes\n1,1,2,\n2,,4,ok\n3,3,NaN,ok\n4,4,8,ok\n")

	ds, err := LoadDir(dir, LoadOptions{Required: []string{"timestamp", "x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	all, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Len())

	_, err = LoadDir(dir, LoadOptions{Required: []string{"missing"}})
	assert.Error(t, err)
}

func TestLoadDir_OnlyEmptyRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "timestamp,x\n1,\n")
	_, err := LoadDir(dir, LoadOptions{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadDir_CustomTimestampColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "ts,v\n200,b\n100,a\n")
	ds, err := LoadDir(dir, LoadOptions{TimestampColumn: "ts"})
	require.NoError(t, err)
	secs, err := ds.Seconds("ts")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200}, secs)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, in := range []string{
		"2024-02-03T04:05:06Z",
		"2024-02-03T05:05:06+01:00",
		"2024-02-03 04:05:06",
		"2024-02-03T04:05:06",
		"1706933106",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
	day, err := ParseTimestamp("2024-02-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestDataset_UnknownColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "x\n1\n")
	ds, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	_, err = ds.Float("y")
	assert.Error(t, err)
	_, err = ds.Seconds("y")
	assert.Error(t, err)
	assert.False(t, ds.Has("y"))
}
