package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_RecordAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	l, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Record(ctx, Entry{Version: "v1", Outcome: "first_champion", MSE: 0.5, ArtifactKey: "champion_model.csv", CreatedAt: base}))
	require.NoError(t, l.Record(ctx, Entry{Version: "v2", Outcome: "challenger", MSE: 1.0, PreviousVersion: "v1", ArtifactKey: "challenger_v2.csv", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, l.Record(ctx, Entry{Version: "v3", Outcome: "promoted", MSE: 0.1, PreviousVersion: "v1", ArtifactKey: "champion_model.csv", CreatedAt: base.Add(2 * time.Second)}))

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "v3", all[0].Version)
	assert.Equal(t, "v1", all[2].Version)
	assert.Equal(t, "v1", all[0].PreviousVersion)
	assert.NotEqual(t, uuid.Nil, all[0].ID)
	assert.True(t, all[1].CreatedAt.Equal(base.Add(time.Second)))

	latest, err := l.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "promoted", latest[0].Outcome)
}

func TestSQLite_DuplicateVersionRejected(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.Record(ctx, Entry{Version: "v1", Outcome: "first_champion", ArtifactKey: "champion_model.csv"}))
	err = l.Record(ctx, Entry{Version: "v1", Outcome: "challenger", ArtifactKey: "challenger_v1.csv"})
	assert.Error(t, err)
}

func TestSQLite_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Entry{Version: "v1", Outcome: "first_champion", ArtifactKey: "champion_model.csv"}))
	require.NoError(t, l.Close())

	l, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	got, err := l.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, l)

	l, err = Open(ctx, Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "l.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, l)
	require.NoError(t, l.Close())

	_, err = Open(ctx, Config{Driver: DriverPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var l Ledger = Nop{}
	assert.NoError(t, l.Record(context.Background(), Entry{}))
	got, err := l.List(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, l.Close())
}
