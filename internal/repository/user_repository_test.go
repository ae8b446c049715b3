package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/synergy-api/internal/models"
)

func TestFirstOrCreateByExternalUID_Existing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE external_uid = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_uid", "name"}).AddRow(4, "sub-1", "Alice"))

	user := &models.User{ExternalUID: "sub-1", Name: "ignored"}
	require.NoError(t, repo.FirstOrCreateByExternalUID(context.Background(), user))
	require.Equal(t, uint64(4), user.ID)
	require.Equal(t, "Alice", user.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstOrCreateByExternalUID_LostInsertRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE external_uid = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_uid", "name"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE external_uid = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_uid", "name"}).AddRow(9, "sub-1", "Winner"))

	user := &models.User{ExternalUID: "sub-1", Name: "Loser"}
	require.NoError(t, repo.FirstOrCreateByExternalUID(context.Background(), user))
	require.Equal(t, uint64(9), user.ID)
	require.Equal(t, "Winner", user.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
