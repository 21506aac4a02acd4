package service

import (
	"context"
	"testing"

	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_Products(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := &models.Product{ShopID: f.shop.ID, Name: " Atta ", Price: dec("55.50")}
	require.NoError(t, f.catalog.AddProduct(ctx, product))
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Atta", product.Name)
	assert.Equal(t, models.DefaultCategory, product.Category)

	products, err := f.catalog.ListProducts(ctx, f.shop.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(dec("55.50")))

	_, err = f.catalog.ListProducts(ctx, 999)
	assert.ErrorIs(t, err, pkgerrors.ErrShopNotFound)
}

func TestCatalogService_AddProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.catalog.AddProduct(ctx, nil), pkgerrors.ErrValidation)
	assert.ErrorIs(t, f.catalog.AddProduct(ctx, &models.Product{ShopID: f.shop.ID, Price: dec("1")}), pkgerrors.ErrValidation)
	assert.ErrorIs(t, f.catalog.AddProduct(ctx, &models.Product{ShopID: f.shop.ID, Name: "Salt", Price: dec("-1")}), pkgerrors.ErrValidation)
	assert.ErrorIs(t, f.catalog.AddProduct(ctx, &models.Product{ShopID: f.shop.ID, Name: "Salt", Price: dec("1.999")}), pkgerrors.ErrValidation)
	assert.ErrorIs(t, f.catalog.AddProduct(ctx, &models.Product{ShopID: 999, Name: "Salt", Price: dec("1")}), pkgerrors.ErrShopNotFound)
}

func TestCatalogService_ListShops(t *testing.T) {
	f := newFixture(t)

	shops, err := f.catalog.ListShops(context.Background())
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, "Ravi Kirana", shops[0].Name)
	assert.Equal(t, "Ravi", shops[0].OwnerName)
}
