package repository

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/models"
)

type UserRepository interface {
	// Create inserts the user and, when shop is non-nil, the shop it owns in
	// the same transaction.
	Create(ctx context.Context, user *models.User, shop *models.Shop) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
}
