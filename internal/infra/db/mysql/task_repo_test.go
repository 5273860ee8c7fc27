package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbomify/assessments/internal/domain/tasks"
)

func TestEnqueueAfterSetsNotBefore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewTaskRepository(db)

	mock.ExpectExec(`INSERT INTO assessment_tasks`).
		WithArgs("task-1", "acme", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.EnqueueAfter(context.Background(), tasks.Task{ID: "task-1", TenantID: "acme"}, 2*time.Minute)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueDropsPoisonPayload(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
			AddRow("task-good", []byte(`{"id":"task-good","tenant_id":"acme","plugin_name":"license-policy"}`)).
			AddRow("task-poison", []byte(`{broken`)))
	mock.ExpectExec(`UPDATE assessment_tasks SET claimed_at`).
		WithArgs(sqlmock.AnyArg(), "task-good").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM assessment_tasks`).
		WithArgs("task-poison").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.ClaimDue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "task-good", got[0].ID)
	assert.Equal(t, "license-policy", got[0].PluginName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteDeletesRow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewTaskRepository(db)

	mock.ExpectExec(`DELETE FROM assessment_tasks`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), "task-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseClearsClaim(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewTaskRepository(db)

	mock.ExpectExec(`UPDATE assessment_tasks SET claimed_at=NULL`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Release(context.Background(), "task-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
