package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/UdhaarLedger/internal/models"
	repository "github.com/honeynil/UdhaarLedger/internal/repository/postgres"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "username", "password_hash", "name", "role", "address", "society_name", "monthly_limit", "created_at"}

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("NilUser", func(t *testing.T) {
		err := repo.Create(ctx, nil, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidRole", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "a", PasswordHash: "h", Role: "admin"}, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidRole)
	})

	t.Run("UserAlreadyExists", func(t *testing.T) {
		user := &models.User{Username: "asha", PasswordHash: "hash", Name: "Asha", Role: models.RoleCustomer}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.Create(ctx, user, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrUsernameExists)
		assert.ErrorIs(t, err, pkgerrors.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ShopkeeperWithShop", func(t *testing.T) {
		user := &models.User{Username: "ravi", PasswordHash: "hash", Name: "Ravi", Role: models.RoleShopkeeper}
		shop := &models.Shop{Name: "Ravi Kirana"}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, password_hash, name, role, address, society_name, monthly_limit) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`)).
			WithArgs(user.Username, user.PasswordHash, user.Name, user.Role, "", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), time.Now().UTC()))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO shops (owner_id, shop_name) VALUES ($1, $2) RETURNING id`)).
			WithArgs(int64(4), "Ravi Kirana").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
		mock.ExpectCommit()

		err := repo.Create(ctx, user, shop)
		require.NoError(t, err)
		assert.Equal(t, int64(4), user.ID)
		assert.Equal(t, int64(2), shop.ID)
		assert.Equal(t, int64(4), shop.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("EmptyUsername", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "")
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
			WithArgs("asha").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(int64(1), "asha", "hash", "Asha", "customer", "12 MG Road", "Green Park", "5000", time.Now().UTC()))

		user, err := repo.GetByUsername(ctx, "asha")
		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, user.Role)
		assert.True(t, decimal.NewFromInt(5000).Equal(user.MonthlyLimit))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		user, err := repo.GetByUsername(ctx, "ghost")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_UpdateProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)

	name := "Asha K"
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET`)).
		WithArgs(int64(1), name, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(1), "asha", "hash", name, "customer", "", "", "0", time.Now().UTC()))

	user, err := repo.UpdateProfile(context.Background(), 1, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
