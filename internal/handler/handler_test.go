package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/auth"
	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pkgerrors.ErrEmptyOrder, http.StatusBadRequest},
		{pkgerrors.Validationf("bad"), http.StatusBadRequest},
		{pkgerrors.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to record payment: %w", pkgerrors.ErrShopNotFound), http.StatusNotFound},
		{pkgerrors.ErrUsernameExists, http.StatusConflict},
		{pkgerrors.ErrTransitionFromFinal, http.StatusConflict},
		{pkgerrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{pkgerrors.ErrNotShopOwner, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestOwnShop(t *testing.T) {
	owner := &auth.Claims{UserID: 1, Role: models.RoleShopkeeper, ShopID: 4}

	shopID, err := ownShop(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), shopID)

	_, err = ownShop(owner, 5)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)

	customer := &auth.Claims{UserID: 2, Role: models.RoleCustomer}
	_, err = ownShop(customer, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
}
