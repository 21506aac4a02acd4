package repository

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/models"
)

// StatusChange is evaluated while the order is locked. It returns an error
// to abort the change, or the ledger entry that must be written together
// with the new status (nil for none).
type StatusChange func(current models.Order) (*models.Transaction, error)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByShop(ctx context.Context, shopID int64) ([]models.Order, error)
	ListActiveByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, change StatusChange) (*models.Order, error)
}
