package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleItems() []types.TrendItem {
	return []types.TrendItem{
		{Title: "owner / repo", URL: "https://github.com/owner/repo", Description: "a <fast> tool", Metric: types.Int64(1234), Category: "Go", SourceID: "github"},
		{Title: "热搜", URL: "https://example.test/hot", SourceID: "weibo", Category: "Weibo"},
	}
}

func TestJSONStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("json", dir, "run", testLogger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run.json"), s.Path())

	require.NoError(t, Export(s, sampleItems()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "a <fast> tool")

	var got []types.TrendItem
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sampleItems(), got)
}

func TestJSONLStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("jsonl", filepath.Join(dir, "nested"), "", testLogger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "trending.jsonl"), s.Path())
	require.NoError(t, Export(s, sampleItems()))

	f, err := os.Open(s.Path())
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var item types.TrendItem
		require.NoError(t, json.Unmarshal(sc.Bytes(), &item))
		assert.True(t, item.Valid())
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestCSVStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("csv", dir, "run", testLogger)
	require.NoError(t, err)
	require.NoError(t, Export(s, sampleItems()))

	f, err := os.Open(s.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, []string{"github", "owner / repo", "https://github.com/owner/repo", "1234", "Go", "a <fast> tool"}, rows[1])
	assert.Equal(t, "", rows[2][3], "absent metric exports as an empty cell")
}

func TestCSVStorageEmptyRunHasHeader(t *testing.T) {
	s, err := NewCSVStorage(filepath.Join(t.TempDir(), "empty.csv"), testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "source_id,title,url,metric,category,description\n", string(data))
}

func TestNewFileStorageUnsupported(t *testing.T) {
	_, err := NewFileStorage("parquet", t.TempDir(), "", testLogger)
	assert.Error(t, err)
}

type brokenStorage struct{}

func (brokenStorage) Store([]types.TrendItem) error { return errors.New("disk full") }
func (brokenStorage) Close() error                  { return nil }
func (brokenStorage) Name() string                  { return "broken" }
func (brokenStorage) Path() string                  { return "" }

func TestExportWrapsError(t *testing.T) {
	err := Export(brokenStorage{}, sampleItems())
	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "broken", se.Backend)
}
