package service

import (
	"context"
	"testing"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("ShopkeeperGetsDefaultShop", func(t *testing.T) {
		profile, err := f.auth.Register(ctx, RegisterInput{Username: "meena", Password: "pw", Name: "Meena", Role: models.RoleShopkeeper})
		require.NoError(t, err)
		assert.NotZero(t, profile.ShopID)
		assert.Equal(t, "Meena's Store", profile.ShopName)
		assert.NotEqual(t, "pw", profile.PasswordHash)
	})

	t.Run("Customer", func(t *testing.T) {
		profile, err := f.auth.Register(ctx, RegisterInput{Username: "kiran", Password: "pw", Role: models.RoleCustomer, SocietyName: "Green Park"})
		require.NoError(t, err)
		assert.Zero(t, profile.ShopID)
		assert.Equal(t, "kiran", profile.Name)
		assert.Equal(t, "Green Park", profile.SocietyName)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := f.auth.Register(ctx, RegisterInput{Username: "asha", Password: "pw", Role: models.RoleCustomer})
		assert.ErrorIs(t, err, pkgerrors.ErrConflict)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		_, err := f.auth.Register(ctx, RegisterInput{Username: "x", Password: "pw", Role: "admin"})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	})

	t.Run("MissingPassword", func(t *testing.T) {
		_, err := f.auth.Register(ctx, RegisterInput{Username: "y", Role: models.RoleCustomer})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	})
}

func TestAuthService_LoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, RegisterInput{Username: "meena", Password: "pw", Name: "Meena", Role: models.RoleShopkeeper, ShopName: "Meena General"})
	require.NoError(t, err)

	profile, token, err := f.auth.Login(ctx, "meena", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, registered.ShopID, profile.ShopID)
	assert.Equal(t, "Meena General", profile.ShopName)
	assert.Equal(t, token, f.redis.data[redis.TokenKey(profile.ID)])

	_, _, err = f.auth.Login(ctx, "meena", "wrong")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)

	require.NoError(t, f.auth.Logout(ctx, profile.ID))
	assert.False(t, f.redis.has(redis.TokenKey(profile.ID)))
}

func TestAuthService_LoginFailsWhenTokenCannotBeStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Username: "kiran", Password: "pw", Role: models.RoleCustomer})
	require.NoError(t, err)

	f.redis.err = errRedisDown
	_, _, err = f.auth.Login(ctx, "kiran", "pw")
	assert.ErrorIs(t, err, errRedisDown)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	address := "12 MG Road"
	limit := dec("5000")
	user, err := f.auth.UpdateProfile(ctx, f.customer.ID, models.ProfileUpdate{Address: &address, MonthlyLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, address, user.Address)
	assert.Equal(t, "Asha", user.Name)
	assert.True(t, user.MonthlyLimit.Equal(limit))

	negative := dec("-1")
	_, err = f.auth.UpdateProfile(ctx, f.customer.ID, models.ProfileUpdate{MonthlyLimit: &negative})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	fractional := dec("100.001")
	_, err = f.auth.UpdateProfile(ctx, f.customer.ID, models.ProfileUpdate{MonthlyLimit: &fractional})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = f.auth.UpdateProfile(ctx, 999, models.ProfileUpdate{Address: &address})
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
}
