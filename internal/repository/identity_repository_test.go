package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepositoryEnsureUserExisting(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	accepted := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM similarity_users WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "remote_id", "last_eula_accepted", "last_eula_accepted_time", "last_eula_accepted_lang"}).
			AddRow("user-1", "remote-u1", "v1beta", accepted, "en-US"))

	user, err := repo.EnsureUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "remote-u1", user.RemoteID)
	assert.True(t, user.HasAcceptedEULA())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryEnsureUserMintsRemoteID(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM similarity_users WHERE user_id = $1")).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO similarity_users")).
		WithArgs("user-2", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM similarity_users WHERE user_id = $1")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "remote_id", "last_eula_accepted", "last_eula_accepted_time", "last_eula_accepted_lang"}).
			AddRow("user-2", "minted", nil, nil, nil))

	user, err := repo.EnsureUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, "minted", user.RemoteID)
	assert.False(t, user.HasAcceptedEULA())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryEnsureGroupMintsRemoteID(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM similarity_groups WHERE group_id = $1")).
		WithArgs("group-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO similarity_groups")).
		WithArgs("group-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM similarity_groups WHERE group_id = $1")).
		WithArgs("group-1").
		WillReturnRows(sqlmock.NewRows([]string{"group_id", "remote_id"}).AddRow("group-1", "remote-g1"))

	group, err := repo.EnsureGroup(context.Background(), "group-1")
	require.NoError(t, err)
	assert.Equal(t, "remote-g1", group.RemoteID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryListGroupMembers(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN lms_group_members m ON m.user_id = u.id WHERE m.group_id = $1")).
		WithArgs("group-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email"}).
			AddRow("user-1", "Ana", "Putri", "ana@example.com").
			AddRow("user-2", "Budi", "Santoso", "budi@example.com"))

	members, err := repo.ListGroupMembers(context.Background(), "group-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Budi", members[1].FirstName)
	require.NoError(t, mock.ExpectationsWereMet())
}
