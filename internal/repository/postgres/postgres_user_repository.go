package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/UdhaarLedger/internal/models"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userTracer  = "user-repository"
	userColumns = `id, username, password_hash, name, role, address, society_name, monthly_limit, created_at`
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Address,
		&user.SocietyName,
		&user.MonthlyLimit,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User, shop *models.Shop) (err error) {
	ctx, done := observe(ctx, userTracer, "CreateUser")
	defer done(&err)

	if user == nil {
		err = pkgerrors.ErrNilUser
		slog.Error("failed to create user", "method", "Create", "error", err)
		return err
	}
	if user.Username == "" || user.PasswordHash == "" {
		err = pkgerrors.Validationf("username and password are required")
		return err
	}
	if !user.Role.Valid() {
		err = pkgerrors.ErrInvalidRole
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(dbTx)

	query := `INSERT INTO users (username, password_hash, name, role, address, society_name, monthly_limit) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err = dbTx.QueryRowContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.Address,
		user.SocietyName,
		user.MonthlyLimit,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if code, _ := pqCode(err); code == pqUniqueViolation {
			err = pkgerrors.ErrUsernameExists
			slog.Warn("username already exists", "method", "Create", "username", user.Username)
			return err
		}
		slog.Error("failed to create user", "method", "Create", "username", user.Username, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	if shop != nil {
		shop.OwnerID = user.ID
		err = dbTx.QueryRowContext(ctx,
			`INSERT INTO shops (owner_id, shop_name) VALUES ($1, $2) RETURNING id`,
			shop.OwnerID, shop.Name,
		).Scan(&shop.ID)
		if err != nil {
			slog.Error("failed to create shop", "method", "Create", "owner_id", user.ID, "error", err)
			return fmt.Errorf("failed to create shop: %w", err)
		}
		shop.OwnerName = user.Name
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("user created", "method", "Create", "user_id", user.ID, "role", user.Role)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (user *models.User, err error) {
	ctx, done := observe(ctx, userTracer, "GetUserByID", attribute.Int64("user_id", id))
	defer done(&err)

	user, err = scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to get user by id", "method", "GetByID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := observe(ctx, userTracer, "GetUserByUsername")
	defer done(&err)

	if username == "" {
		return nil, pkgerrors.Validationf("username cannot be empty")
	}

	user, err = scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (user *models.User, err error) {
	ctx, done := observe(ctx, userTracer, "UpdateProfile", attribute.Int64("user_id", id))
	defer done(&err)

	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			address = COALESCE($3, address),
			society_name = COALESCE($4, society_name),
			monthly_limit = COALESCE($5, monthly_limit)
		WHERE id = $1
		RETURNING ` + userColumns
	user, err = scanUser(r.db.QueryRowContext(ctx, query, id, update.Name, update.Address, update.SocietyName, update.MonthlyLimit))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to update profile", "method", "UpdateProfile", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", "method", "UpdateProfile", "user_id", id)
	return user, nil
}
