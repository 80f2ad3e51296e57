package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"tagboard/internal/models"
	"tagboard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)

	mock.ExpectQuery(query).WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin"}).AddRow(1, "root", true))
	user, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "root", user.Username)
	assert.Equal(t, models.RoleAdmin, user.Role())

	mock.ExpectQuery(query).WithArgs(99, 1).WillReturnError(gorm.ErrRecordNotFound)
	_, err = repo.GetByID(ctx, 99)
	assert.Equal(t, "NOT_FOUND", models.ErrorCode(err))

	mock.ExpectQuery(query).WithArgs(2, 1).WillReturnError(errors.New("connection reset"))
	_, err = repo.GetByID(ctx, 2)
	assert.Equal(t, "INTERNAL_ERROR", models.ErrorCode(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByLoginQueries(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE LOWER(email) = $1`)).
		WithArgs("albert@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(3, "albert@example.com"))
	user, err := repo.FindByLogin(ctx, "  Albert@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, uint(3), user.ID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE LOWER(username) = $1`)).
		WithArgs("ghost", 1).
		WillReturnError(gorm.ErrRecordNotFound)
	user, err = repo.FindByLogin(ctx, "Ghost")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByLogin(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, user, "blank logins never hit the database")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByLogin(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)
	created := testutil.CreateUser(t, db, "Bob", false)

	byName, err := repo.FindByLogin(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.FindByLogin(context.Background(), "BOB@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}))
	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	assert.Equal(t, "CONFLICT", models.ErrorCode(err))
}

func TestUserRepository_UpdateRoles(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "carol", false)

	user.SetRole(models.RoleBuilder)
	user.Email = "changed@example.com"
	require.NoError(t, repo.UpdateRoles(ctx, user))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuilder, stored.Role())
	assert.Equal(t, "carol@example.com", stored.Email, "only role columns are written")

	err = repo.UpdateRoles(ctx, &models.User{ID: 999, IsAdmin: true})
	assert.Equal(t, "NOT_FOUND", models.ErrorCode(err))
}

func TestUserRepository_ListAdmins(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewUserRepository(db)

	second := testutil.CreateUser(t, db, "second_admin", true)
	testutil.CreateUser(t, db, "member", false)
	third := testutil.CreateUser(t, db, "third_admin", true)

	admins, err := repo.ListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, second.ID, admins[0].ID)
	assert.Equal(t, third.ID, admins[1].ID)
}
