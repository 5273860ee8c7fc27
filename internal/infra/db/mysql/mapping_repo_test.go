package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbomify/assessments/internal/domain/mappings"
)

func TestMappingGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewMappingRepository(db)

	mock.ExpectQuery(`FROM external_project_mappings`).
		WithArgs("rel-1", "primary").
		WillReturnRows(sqlmock.NewRows([]string{"release_id", "server_name", "external_id", "created_at"}))

	_, err = repo.Get(context.Background(), "rel-1", "primary")
	assert.ErrorIs(t, err, mappings.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingGetOrCreateInserts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewMappingRepository(db)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO external_project_mappings`).
		WithArgs("rel-1", "primary", "uuid-a", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := repo.GetOrCreate(context.Background(), &mappings.ExternalProject{
		ReleaseID:  "rel-1",
		ServerName: "primary",
		ExternalID: "uuid-a",
		CreatedAt:  created,
	})
	require.NoError(t, err)
	assert.Equal(t, "uuid-a", got.ExternalID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingGetOrCreateLosingRacerAdoptsWinner(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewMappingRepository(db)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO external_project_mappings`).
		WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery(`FROM external_project_mappings`).
		WithArgs("rel-1", "primary").
		WillReturnRows(sqlmock.NewRows([]string{"release_id", "server_name", "external_id", "created_at"}).
			AddRow("rel-1", "primary", "uuid-winner", created))

	got, err := repo.GetOrCreate(context.Background(), &mappings.ExternalProject{
		ReleaseID:  "rel-1",
		ServerName: "primary",
		ExternalID: "uuid-loser",
	})
	require.NoError(t, err)
	assert.Equal(t, "uuid-winner", got.ExternalID, "the loser adopts the committed row")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingGetOrCreateOtherErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewMappingRepository(db)

	mock.ExpectExec(`INSERT INTO external_project_mappings`).
		WillReturnError(&driver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

	_, err = repo.GetOrCreate(context.Background(), &mappings.ExternalProject{
		ReleaseID:  "rel-1",
		ServerName: "primary",
		ExternalID: "uuid-a",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, mappings.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
