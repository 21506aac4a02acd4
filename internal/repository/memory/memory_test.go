package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*Store, *models.User, *models.Shop) {
	t.Helper()
	store := New()
	ctx := context.Background()

	owner := &models.User{Username: "ravi", PasswordHash: "x", Name: "Ravi", Role: models.RoleShopkeeper}
	shop := &models.Shop{Name: "Ravi Kirana"}
	require.NoError(t, store.Users().Create(ctx, owner, shop))

	customer := &models.User{Username: "asha", PasswordHash: "x", Name: "Asha", Role: models.RoleCustomer}
	require.NoError(t, store.Users().Create(ctx, customer, nil))
	return store, customer, shop
}

func TestUserRepository_Create(t *testing.T) {
	store, _, shop := seed(t)
	ctx := context.Background()

	assert.NotZero(t, shop.ID)
	assert.Equal(t, "Ravi", shop.OwnerName)

	err := store.Users().Create(ctx, &models.User{Username: "asha", PasswordHash: "x", Role: models.RoleCustomer}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrUsernameExists)

	err = store.Users().Create(ctx, &models.User{Username: "new", PasswordHash: "x", Role: "admin"}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidRole)

	owned, err := store.Shops().GetByOwner(ctx, shop.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, owned.ID)
}

func TestOrderRepository_CreateChecksReferences(t *testing.T) {
	store, customer, shop := seed(t)
	ctx := context.Background()
	items := []models.LineItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(40), Quantity: 1}}

	assert.ErrorIs(t, store.Orders().Create(ctx, models.NewOrder(999, shop.ID, items)), pkgerrors.ErrUserNotFound)
	assert.ErrorIs(t, store.Orders().Create(ctx, models.NewOrder(customer.ID, 999, items)), pkgerrors.ErrShopNotFound)
	assert.ErrorIs(t, store.Orders().Create(ctx, models.NewOrder(customer.ID, shop.ID, nil)), pkgerrors.ErrEmptyOrder)

	order := models.NewOrder(customer.ID, shop.ID, items)
	require.NoError(t, store.Orders().Create(ctx, order))

	order.Items[0].Name = "mutated"
	stored, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", stored.Items[0].Name, "store keeps its own copy")
	assert.Equal(t, "Asha", stored.CustomerName)
	assert.Equal(t, "Ravi Kirana", stored.ShopName)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	store, customer, shop := seed(t)
	ctx := context.Background()
	order := models.NewOrder(customer.ID, shop.ID, []models.LineItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(40), Quantity: 2}})
	require.NoError(t, store.Orders().Create(ctx, order))

	abort := errors.New("abort")
	_, err := store.Orders().UpdateStatus(ctx, order.ID, models.OrderAccepted, func(models.Order) (*models.Transaction, error) {
		return nil, abort
	})
	assert.ErrorIs(t, err, abort)
	stored, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)

	updated, err := store.Orders().UpdateStatus(ctx, order.ID, models.OrderCompleted, func(current models.Order) (*models.Transaction, error) {
		return current.PurchaseTransaction(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, updated.Status)

	_, err = store.Orders().UpdateStatus(ctx, order.ID, models.OrderCompleted, func(current models.Order) (*models.Transaction, error) {
		return current.PurchaseTransaction(), nil
	})
	assert.ErrorIs(t, err, pkgerrors.ErrOrderAlreadyBilled)

	balance, err := store.Transactions().GetBalance(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(80)))

	_, err = store.Orders().UpdateStatus(ctx, 999, models.OrderAccepted, func(models.Order) (*models.Transaction, error) { return nil, nil })
	assert.ErrorIs(t, err, pkgerrors.ErrOrderNotFound)
}

func TestOrderRepository_ListActiveByCustomer(t *testing.T) {
	store, customer, shop := seed(t)
	ctx := context.Background()
	items := []models.LineItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(40), Quantity: 1}}

	var ids []int64
	for i := 0; i < 3; i++ {
		order := models.NewOrder(customer.ID, shop.ID, items)
		require.NoError(t, store.Orders().Create(ctx, order))
		ids = append(ids, order.ID)
	}
	_, err := store.Orders().UpdateStatus(ctx, ids[0], models.OrderRejected, func(models.Order) (*models.Transaction, error) { return nil, nil })
	require.NoError(t, err)

	active, err := store.Orders().ListActiveByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, ids[2], active[0].ID)
	assert.Equal(t, ids[1], active[1].ID)
}

func TestTransactionRepository(t *testing.T) {
	store, customer, shop := seed(t)
	ctx := context.Background()
	txs := store.Transactions()

	assert.ErrorIs(t, txs.Create(ctx, &models.Transaction{CustomerID: customer.ID, ShopID: shop.ID, Type: models.TypePurchase}), pkgerrors.ErrInvalidAmount)
	assert.ErrorIs(t, txs.Create(ctx, &models.Transaction{CustomerID: customer.ID, ShopID: shop.ID, Amount: decimal.NewFromInt(1), Type: "refund"}), pkgerrors.ErrInvalidTxType)
	assert.ErrorIs(t, txs.Create(ctx, &models.Transaction{CustomerID: 999, ShopID: shop.ID, Amount: decimal.NewFromInt(1), Type: models.TypePurchase}), pkgerrors.ErrUserNotFound)

	for _, amount := range []int64{100, 50, -30} {
		typ := models.TypePurchase
		if amount < 0 {
			typ = models.TypePayment
		}
		require.NoError(t, txs.Create(ctx, &models.Transaction{CustomerID: customer.ID, ShopID: shop.ID, Amount: decimal.NewFromInt(amount), Type: typ}))
	}

	balance, err := txs.GetBalance(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(120)))

	recent, err := txs.ListRecent(ctx, customer.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Amount.Equal(decimal.NewFromInt(-30)))
	assert.Equal(t, "Ravi Kirana", recent[0].ShopName)

	balances, err := txs.ListShopBalances(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "Asha", balances[0].CustomerName)
	assert.True(t, balances[0].Balance.Equal(decimal.NewFromInt(120)))

	none, err := txs.GetBalance(ctx, 999)
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}
