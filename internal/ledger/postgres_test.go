package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &Postgres{pool: mock}, mock
}

func TestPostgres_CreatesTable(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS model_submissions`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	l, err := newPostgres(context.Background(), mock)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTableFailureClosesPool(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	_, err = newPostgres(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create model_submissions table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Record(t *testing.T) {
	l, mock := newMockPostgres(t)
	id := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO model_submissions`).
		WithArgs(id, "v2", "promoted", 0.1, "v1", "champion_model.csv", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := l.Record(context.Background(), Entry{
		ID: id, Version: "v2", Outcome: "promoted", MSE: 0.1,
		PreviousVersion: "v1", ArtifactKey: "champion_model.csv", CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordFillsDefaults(t *testing.T) {
	l, mock := newMockPostgres(t)
	mock.ExpectExec(`INSERT INTO model_submissions`).
		WithArgs(pgxmock.AnyArg(), "v1", "first_champion", 0.5, "", "champion_model.csv", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, l.Record(context.Background(), Entry{Version: "v1", Outcome: "first_champion", MSE: 0.5, ArtifactKey: "champion_model.csv"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordError(t *testing.T) {
	l, mock := newMockPostgres(t)
	mock.ExpectExec(`INSERT INTO model_submissions`).WillReturnError(errors.New("duplicate key"))

	err := l.Record(context.Background(), Entry{Version: "v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert v1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	l, mock := newMockPostgres(t)
	id := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "version", "outcome", "mse", "previous_version", "artifact_key", "created_at"}).
		AddRow(id, "v2", "challenger", 1.0, "v1", "challenger_v2.csv", at)
	mock.ExpectQuery(`SELECT id, version, outcome, mse, previous_version, artifact_key, created_at FROM model_submissions ORDER BY created_at DESC, version DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := l.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "challenger_v2.csv", got[0].ArtifactKey)
	assert.True(t, got[0].CreatedAt.Equal(at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListQueryError(t *testing.T) {
	l, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT id, version`).WillReturnError(errors.New("connection reset"))

	_, err := l.List(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select submissions")
	assert.NoError(t, mock.ExpectationsWereMet())
}
