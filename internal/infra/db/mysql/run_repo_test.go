package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

var runCols = []string{
	"id", "tenant_id", "sbom_id", "plugin_name", "plugin_version", "category",
	"config_hash", "reason", "status", "attempt", "started_at", "completed_at",
	"error", "triggered_by", "input_digest", "report_url", "result", "created_at",
}

func addRunRow(rows *sqlmock.Rows, id, plugin, status string, created time.Time, result []byte) {
	rows.AddRow(
		id, "acme", "sbom-1", plugin, "1.0.0", "compliance",
		"hash-1", "on_upload", status, 0, created, nil,
		nil, nil, nil, nil, result, created,
	)
}

func TestLatestPerPluginPicksMaxCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)
	newest := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(runCols)
	addRunRow(rows, "run-2", "license-policy", "completed", newest, []byte(`{"summary":{"total":1,"pass":1},"findings":[]}`))

	mock.ExpectQuery(`MAX\(created_at\)`).
		WithArgs("sbom-1", "sbom-1").
		WillReturnRows(rows)

	got, err := repo.LatestPerPlugin(context.Background(), "sbom-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RunID("run-2"), got[0].ID)
	assert.Equal(t, domain.StatusCompleted, got[0].Status)
	require.NotNil(t, got[0].Result)
	assert.Equal(t, 1, got[0].Result.Summary.Pass)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPerPluginSkipsMalformedResult(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(runCols)
	addRunRow(rows, "run-1", "license-policy", "completed", created, []byte(`{not json`))

	mock.ExpectQuery(`MAX\(created_at\)`).
		WithArgs("sbom-1", "sbom-1").
		WillReturnRows(rows)

	got, err := repo.LatestPerPlugin(context.Background(), "sbom-1")
	require.NoError(t, err, "one bad historical row must not abort the summary")
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Result)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestForNoRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WithArgs("sbom-1", "license-policy", "hash-1").
		WillReturnRows(sqlmock.NewRows(runCols))

	got, err := repo.LatestFor(context.Background(), "sbom-1", "license-policy", "hash-1")
	require.NoError(t, err)
	assert.Nil(t, got, "no run yet is a nil, not an error")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRefusesTerminalRow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)

	mock.ExpectExec(`UPDATE assessment_runs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM assessment_runs`).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err = repo.Transition(context.Background(), "run-1", domain.StatusRunning, domain.TransitionPatch{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already terminal")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionUnknownRun(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)

	mock.ExpectExec(`UPDATE assessment_runs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM assessment_runs`).
		WithArgs("run-missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err = repo.Transition(context.Background(), "run-missing", domain.StatusRunning, domain.TransitionPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAttempts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewRunRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assessment_runs`).
		WithArgs("sbom-1", "dependency-track", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountAttempts(context.Background(), "sbom-1", "dependency-track", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, mock.ExpectationsWereMet())
}
