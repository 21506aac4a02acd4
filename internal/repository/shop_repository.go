package repository

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/models"
)

type ShopRepository interface {
	List(ctx context.Context) ([]models.Shop, error)
	GetByID(ctx context.Context, id int64) (*models.Shop, error)
	GetByOwner(ctx context.Context, ownerID int64) (*models.Shop, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	ListByShop(ctx context.Context, shopID int64) ([]models.Product, error)
}
