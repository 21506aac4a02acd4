package repository

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetBalance(ctx context.Context, customerID int64) (decimal.Decimal, error)
	ListRecent(ctx context.Context, customerID int64, limit int) ([]models.Transaction, error)
	ListShopBalances(ctx context.Context, shopID int64) ([]models.CustomerBalance, error)
}
