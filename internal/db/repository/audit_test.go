package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Create_DBError(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+audit_logs`).
		WithArgs("login", "a@x.com", "1.2.3.4", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	repo := NewAuditRepository(conn)
	err = repo.Create(context.Background(), &models.AuditLog{
		Action:   models.ActionLogin,
		Email:    "a@x.com",
		ClientIP: "1.2.3.4",
		Success:  true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_SQLite(t *testing.T) {
	repo := NewAuditRepository(newSQLiteDB(t).DB)
	ctx := context.Background()

	entries := []*models.AuditLog{
		{Action: models.ActionRegister, Email: "a@x.com", ClientIP: "10.0.0.1", Success: true},
		{Action: models.ActionLoginFailed, Email: "a@x.com", ClientIP: "10.0.0.1", ErrorMsg: "password incorrect"},
		{Action: models.ActionLogin, Email: "b@x.com", ClientIP: "10.0.0.2", UserAgent: "curl", Success: true},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
		assert.NotZero(t, e.ID)
	}

	all, err := repo.List(ctx, "", "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, "b@x.com", all[0].Email)
	assert.Equal(t, "curl", all[0].UserAgent)

	byEmail, err := repo.List(ctx, "a@x.com", "", 10)
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	failed, err := repo.List(ctx, "a@x.com", models.ActionLoginFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.False(t, failed[0].Success)
	assert.Equal(t, "password incorrect", failed[0].ErrorMsg)

	limited, err := repo.List(ctx, "", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	deleted, err := repo.DeleteOld(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
